package userrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID      map[domain.UserID]userrepo.User
	idByEmail map[string]domain.UserID
	roles     map[domain.UserID]map[domain.RoleName]struct{}
}

func NewRepo() *Repo {
	return &Repo{
		byID:      make(map[domain.UserID]userrepo.User),
		idByEmail: make(map[string]domain.UserID),
		roles:     make(map[domain.UserID]map[domain.RoleName]struct{}),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	_ = ctx
	if u.ID == "" {
		return userrepo.ErrAlreadyExists
	}
	email := domain.NormalizeEmail(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[u.ID]; ok {
		return userrepo.ErrAlreadyExists
	}
	if _, ok := r.idByEmail[email]; ok {
		return userrepo.ErrEmailTaken
	}

	u.Email = email
	r.byID[u.ID] = cloneUser(u)
	r.idByEmail[email] = u.ID
	return nil
}

func (r *Repo) Update(ctx context.Context, u userrepo.User) error {
	_ = ctx
	email := domain.NormalizeEmail(u.Email)
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[u.ID]
	if !ok {
		return userrepo.ErrNotFound
	}
	if email != existing.Email {
		if owner, taken := r.idByEmail[email]; taken && owner != u.ID {
			return userrepo.ErrEmailTaken
		}
		delete(r.idByEmail, existing.Email)
		r.idByEmail[email] = u.ID
	}

	u.Email = email
	r.byID[u.ID] = cloneUser(u)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByEmail[domain.NormalizeEmail(email)]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return cloneUser(r.byID[id]), nil
}

func (r *Repo) GrantRole(ctx context.Context, id domain.UserID, role domain.RoleName) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return userrepo.ErrNotFound
	}
	held, ok := r.roles[id]
	if !ok {
		held = make(map[domain.RoleName]struct{})
		r.roles[id] = held
	}
	held[role] = struct{}{}
	return nil
}

func (r *Repo) ListRoles(ctx context.Context, id domain.UserID) ([]domain.RoleName, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[id]; !ok {
		return nil, userrepo.ErrNotFound
	}
	out := make([]domain.RoleName, 0, len(r.roles[id]))
	for role := range r.roles[id] {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Repo) HasRole(ctx context.Context, id domain.UserID, role domain.RoleName) (bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roles[id][role]
	return ok, nil
}

func cloneUser(u userrepo.User) userrepo.User {
	out := u
	if u.LastLoginAt != nil {
		v := *u.LastLoginAt
		out.LastLoginAt = &v
	}
	return out
}
