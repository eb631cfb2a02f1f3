package subscriptionrepo

import "errors"

var (
	ErrNotFound = errors.New("subscription not found")

	// ErrConflict indicates the user already has a subscription record.
	ErrConflict = errors.New("subscription already exists for user")
)
