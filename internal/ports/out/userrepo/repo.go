package userrepo

import (
	"context"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

// User is the persistence shape used by the user repository. It is not an HTTP DTO.
type User struct {
	ID domain.UserID
	// Email is stored normalized (trimmed, lower-cased).
	Email        string
	PasswordHash string
	FullName     string
	Type         domain.UserType

	// LastLoginAt is nil until the first successful login.
	LastLoginAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted users and their role memberships.
type Repository interface {
	Create(ctx context.Context, u User) error
	Update(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// GrantRole adds a role membership. Granting a held role is a no-op.
	GrantRole(ctx context.Context, id domain.UserID, role domain.RoleName) error
	// ListRoles returns the user's roles sorted by name.
	ListRoles(ctx context.Context, id domain.UserID) ([]domain.RoleName, error)
	// HasRole reports membership; an unknown user holds no roles.
	HasRole(ctx context.Context, id domain.UserID, role domain.RoleName) (bool, error)
}
