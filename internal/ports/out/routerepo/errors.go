package routerepo

import "errors"

var (
	ErrNotFound      = errors.New("route or stop not found")
	ErrAlreadyExists = errors.New("route or stop already exists")
)
