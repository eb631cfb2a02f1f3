package seatrepo

import (
	"context"
	"sync"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
)

// Repo is an in-memory implementation of seatrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.SeatAllocationID]seatrepo.Allocation
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.SeatAllocationID]seatrepo.Allocation)}
}

func (r *Repo) Create(ctx context.Context, a seatrepo.Allocation) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[a.ID]; ok || a.ID == "" {
		return seatrepo.ErrAlreadyExists
	}
	r.byID[a.ID] = cloneAllocation(a)
	return nil
}

// CountsByTrip tallies allocations for every trip in a single pass.
func (r *Repo) CountsByTrip(ctx context.Context) (map[domain.TripID]int, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[domain.TripID]int)
	for _, a := range r.byID {
		out[a.TripID]++
	}
	return out, nil
}

func cloneAllocation(a seatrepo.Allocation) seatrepo.Allocation {
	out := a
	if a.PickupStopID != nil {
		v := *a.PickupStopID
		out.PickupStopID = &v
	}
	return out
}
