package seatrepo

import (
	"context"
	"errors"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

var (
	ErrNotFound      = errors.New("seat allocation not found")
	ErrAlreadyExists = errors.New("seat allocation already exists")
)

// Allocation is one occupied seat on a trip.
type Allocation struct {
	ID     domain.SeatAllocationID
	TripID domain.TripID
	UserID domain.UserID
	Kind   domain.SeatKind

	// PickupStopID is nil when the rider boards at the route origin.
	PickupStopID *domain.StopID

	CreatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, a Allocation) error
}
