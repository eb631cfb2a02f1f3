package accounts

import (
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

type SignUpInput struct {
	Email    string
	Password string
	FullName string
}

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	AccessToken string
	TokenType   string
	ExpiresAt   time.Time
	User        domain.User
}

// EnsureUserInput describes an account provisioned out of band (seeding, operator CLI).
type EnsureUserInput struct {
	Email    string
	Password string
	FullName string
	Type     domain.UserType
	Roles    []domain.RoleName
}
