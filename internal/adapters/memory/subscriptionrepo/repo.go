package subscriptionrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
)

// Repo is an in-memory implementation of subscriptionrepo.Repository.
// It is safe for concurrent use.
//
// Units of work are serialized by txMu and stage their writes; staged writes are applied
// under mu only when the unit of work succeeds.
type Repo struct {
	txMu sync.Mutex

	mu       sync.RWMutex
	byID     map[domain.SubscriptionID]subscriptionrepo.Subscription
	idByUser map[domain.UserID]domain.SubscriptionID
}

func NewRepo() *Repo {
	return &Repo{
		byID:     make(map[domain.SubscriptionID]subscriptionrepo.Subscription),
		idByUser: make(map[domain.UserID]domain.SubscriptionID),
	}
}

func (r *Repo) GetByID(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}
	return s, nil
}

func (r *Repo) GetByUser(ctx context.Context, userID domain.UserID) (subscriptionrepo.Subscription, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByUser[userID]
	if !ok {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}
	return r.byID[id], nil
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]subscriptionrepo.Subscription, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]subscriptionrepo.Subscription, 0)
	for _, s := range r.byID {
		if s.Status == status {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Repo) DeleteByUser(ctx context.Context, userID domain.UserID) error {
	_ = ctx
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idByUser[userID]
	if !ok {
		return subscriptionrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByUser, userID)
	return nil
}

func (r *Repo) ExpireEndedBefore(ctx context.Context, day time.Time, at time.Time) (int, error) {
	_ = ctx
	r.txMu.Lock()
	defer r.txMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, s := range r.byID {
		if s.Status == domain.SubscriptionStatusActive && s.EndDate.Before(day) {
			s.Status = domain.SubscriptionStatusExpired
			s.UpdatedAt = at
			r.byID[id] = s
			n++
		}
	}
	return n, nil
}

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx subscriptionrepo.Tx) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()

	tx := &unitOfWork{
		repo:   r,
		staged: make(map[domain.SubscriptionID]subscriptionrepo.Subscription),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range tx.staged {
		r.byID[id] = s
		r.idByUser[s.UserID] = id
	}
	return nil
}

type unitOfWork struct {
	repo   *Repo
	staged map[domain.SubscriptionID]subscriptionrepo.Subscription
}

func (u *unitOfWork) GetByUserForUpdate(ctx context.Context, userID domain.UserID) (subscriptionrepo.Subscription, error) {
	for _, s := range u.staged {
		if s.UserID == userID {
			return s, nil
		}
	}
	return u.repo.GetByUser(ctx, userID)
}

func (u *unitOfWork) GetByIDForUpdate(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	if s, ok := u.staged[id]; ok {
		return s, nil
	}
	return u.repo.GetByID(ctx, id)
}

func (u *unitOfWork) Insert(ctx context.Context, s subscriptionrepo.Subscription) error {
	if _, err := u.GetByUserForUpdate(ctx, s.UserID); err == nil {
		return subscriptionrepo.ErrConflict
	}
	if _, err := u.GetByIDForUpdate(ctx, s.ID); err == nil {
		return subscriptionrepo.ErrConflict
	}
	u.staged[s.ID] = s
	return nil
}

func (u *unitOfWork) Update(ctx context.Context, s subscriptionrepo.Subscription) error {
	existing, err := u.GetByIDForUpdate(ctx, s.ID)
	if err != nil {
		return err
	}
	// The owning user never changes.
	s.UserID = existing.UserID
	u.staged[s.ID] = s
	return nil
}
