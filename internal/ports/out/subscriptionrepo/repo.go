package subscriptionrepo

import (
	"context"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

// Subscription is the persistence shape used by the subscription repository.
type Subscription struct {
	ID       domain.SubscriptionID
	UserID   domain.UserID
	StopName string
	Status   domain.SubscriptionStatus

	StartDate time.Time
	EndDate   time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted subscriptions.
//
// Status changes go through InTx so that a read-check-write on one user's record is
// serialized against concurrent requests for the same user.
type Repository interface {
	GetByID(ctx context.Context, id domain.SubscriptionID) (Subscription, error)
	GetByUser(ctx context.Context, userID domain.UserID) (Subscription, error)

	// ListByStatus returns records ordered by CreatedAt ascending, then ID.
	ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]Subscription, error)

	// DeleteByUser removes the user's record. ErrNotFound when there is none.
	DeleteByUser(ctx context.Context, userID domain.UserID) error

	// ExpireEndedBefore moves every ACTIVE record whose EndDate is before day to EXPIRED and
	// returns how many rows changed.
	ExpireEndedBefore(ctx context.Context, day time.Time, at time.Time) (int, error)

	// InTx runs fn as one unit of work. Writes made through tx are applied only if fn
	// returns nil.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the write side of a unit of work. Reads through Tx lock the row they return.
type Tx interface {
	GetByUserForUpdate(ctx context.Context, userID domain.UserID) (Subscription, error)
	GetByIDForUpdate(ctx context.Context, id domain.SubscriptionID) (Subscription, error)

	// Insert fails with ErrConflict if the user already has a record.
	Insert(ctx context.Context, s Subscription) error
	Update(ctx context.Context, s Subscription) error
}
