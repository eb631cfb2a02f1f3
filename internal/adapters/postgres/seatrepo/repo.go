package seatrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
	"github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
)

// Repo is a Postgres implementation of seatrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, a seatrepo.Allocation) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(a.ID))
	if err != nil {
		return fmt.Errorf("invalid seat allocation id: %w", err)
	}
	tripID, err := uuid.Parse(string(a.TripID))
	if err != nil {
		return seatrepo.ErrNotFound
	}
	userID, err := uuid.Parse(string(a.UserID))
	if err != nil {
		return seatrepo.ErrNotFound
	}
	var stopID *uuid.UUID
	if a.PickupStopID != nil {
		v, err := uuid.Parse(string(*a.PickupStopID))
		if err != nil {
			return seatrepo.ErrNotFound
		}
		stopID = &v
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO seat_allocations (id, trip_id, user_id, kind, pickup_stop_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, tripID, userID, string(a.Kind), stopID, a.CreatedAt.UTC())
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "seat_allocations_pkey"):
			return seatrepo.ErrAlreadyExists
		case postgres.IsForeignKeyViolation(err, ""):
			return seatrepo.ErrNotFound
		}
		return err
	}
	return nil
}
