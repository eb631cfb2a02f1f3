package triprepo

import "errors"

var (
	ErrAlreadyExists = errors.New("trip already exists")

	// ErrVehicleNotFound and ErrDriverNotFound are returned for lookups of the trip's
	// supporting records.
	ErrVehicleNotFound = errors.New("vehicle not found")
	ErrDriverNotFound  = errors.New("driver not found")
)
