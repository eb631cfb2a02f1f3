package accounts

import (
	"context"
	"errors"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-shuttle/transport-api/internal/app/apperr"
	"github.com/campus-shuttle/transport-api/internal/domain"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

const (
	minPasswordLen = 8
	// bcrypt ignores input past 72 bytes; longer passwords are rejected instead of truncated.
	maxPasswordLen = 72
)

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(subject domain.UserID, now time.Time) (token string, expiresAt time.Time, err error)
}

type Service struct {
	users  userrepo.Repository
	clk    clockport.Clock
	tokens TokenIssuer

	newUserID func() domain.UserID

	// HashCost is the bcrypt cost for new password hashes.
	HashCost int

	// dummyHash is compared against when the email is unknown so that both failure paths
	// cost one bcrypt comparison.
	dummyHash []byte
}

// NewService builds the accounts service. tokens may be nil when the deployment delegates
// authentication to an external issuer; Login then fails with LOGIN_UNAVAILABLE.
func NewService(users userrepo.Repository, clk clockport.Clock, tokens TokenIssuer) *Service {
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.MinCost)
	return &Service{
		users:  users,
		clk:    clk,
		tokens: tokens,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
		HashCost:  bcrypt.DefaultCost,
		dummyHash: dummy,
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// SignUp creates a STAFF user holding the NORMAL_STAFF role.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (domain.User, error) {
	fullName := domain.NormalizeHumanName(in.FullName)
	email := domain.NormalizeEmail(in.Email)

	details := map[string]any{}
	if fullName == "" {
		details["fullName"] = "must be non-empty"
	}
	if err := validateEmail(email); err != nil {
		details["email"] = err.Error()
	}
	if err := validatePassword(in.Password); err != nil {
		details["password"] = err.Error()
	}
	if len(details) > 0 {
		return domain.User{}, &apperr.Error{
			Kind:    apperr.KindInvalidInput,
			Code:    "VALIDATION_ERROR",
			Message: "invalid signup request",
			Details: details,
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.HashCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clk.Now().UTC()
	u := userrepo.User{
		ID:           s.newUserID(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     fullName,
		Type:         domain.UserTypeStaff,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return domain.User{}, &apperr.Error{
				Kind:    apperr.KindConflict,
				Code:    "EMAIL_ALREADY_IN_USE",
				Message: "An account with this email already exists.",
			}
		}
		return domain.User{}, err
	}
	if err := s.users.GrantRole(ctx, u.ID, domain.RoleNormalStaff); err != nil {
		return domain.User{}, err
	}
	return toDomain(u, []domain.RoleName{domain.RoleNormalStaff}), nil
}

// Login checks the password, stamps the last login time and issues a bearer token.
func (s *Service) Login(ctx context.Context, in LoginInput) (LoginResult, error) {
	if s.tokens == nil {
		return LoginResult{}, &apperr.Error{
			Kind:    apperr.KindUnauthenticated,
			Code:    "LOGIN_UNAVAILABLE",
			Message: "Password login is disabled; use the configured identity provider.",
		}
	}
	invalid := &apperr.Error{
		Kind:    apperr.KindUnauthenticated,
		Code:    "INVALID_CREDENTIALS",
		Message: "Email or password is incorrect.",
	}

	u, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
			return LoginResult{}, invalid
		}
		return LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return LoginResult{}, invalid
	}

	now := s.clk.Now().UTC()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.users.Update(ctx, u); err != nil {
		return LoginResult{}, err
	}

	token, exp, err := s.tokens.Issue(u.ID, now)
	if err != nil {
		return LoginResult{}, err
	}
	roles, err := s.users.ListRoles(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   exp,
		User:        toDomain(u, roles),
	}, nil
}

// Me returns the caller's profile with roles.
func (s *Service) Me(ctx context.Context, caller domain.UserID) (domain.User, error) {
	u, err := s.users.GetByID(ctx, caller)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &apperr.Error{
				Kind:    apperr.KindUnauthenticated,
				Code:    "USER_NOT_PROVISIONED",
				Message: "No account exists for the authenticated subject.",
			}
		}
		return domain.User{}, err
	}
	roles, err := s.users.ListRoles(ctx, u.ID)
	if err != nil {
		return domain.User{}, err
	}
	return toDomain(u, roles), nil
}

// GrantRole adds role to the user with the given email.
func (s *Service) GrantRole(ctx context.Context, email string, role domain.RoleName) error {
	if !role.Valid() {
		return apperr.Invalid("invalid role", map[string]any{"role": "must be one of NORMAL_STAFF, FACULTY, TO"})
	}
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return apperr.NotFound("USER_NOT_FOUND", "no user with email "+domain.NormalizeEmail(email))
		}
		return err
	}
	return s.users.GrantRole(ctx, u.ID, role)
}

// EnsureUser creates the user if the email is unknown and grants the listed roles either
// way. It reports whether a user was created.
func (s *Service) EnsureUser(ctx context.Context, in EnsureUserInput) (domain.User, bool, error) {
	created := false
	u, err := s.users.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
	case errors.Is(err, userrepo.ErrNotFound):
		if !in.Type.Valid() {
			return domain.User{}, false, apperr.Invalid("invalid user type", map[string]any{"type": "must be STAFF or DRIVER"})
		}
		if err := validatePassword(in.Password); err != nil {
			return domain.User{}, false, apperr.Invalid("invalid password", map[string]any{"password": err.Error()})
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.HashCost)
		if err != nil {
			return domain.User{}, false, err
		}
		now := s.clk.Now().UTC()
		u = userrepo.User{
			ID:           s.newUserID(),
			Email:        domain.NormalizeEmail(in.Email),
			PasswordHash: string(hash),
			FullName:     domain.NormalizeHumanName(in.FullName),
			Type:         in.Type,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return domain.User{}, false, err
		}
		created = true
	default:
		return domain.User{}, false, err
	}

	for _, role := range in.Roles {
		if err := s.users.GrantRole(ctx, u.ID, role); err != nil {
			return domain.User{}, false, err
		}
	}
	roles, err := s.users.ListRoles(ctx, u.ID)
	if err != nil {
		return domain.User{}, false, err
	}
	return toDomain(u, roles), created, nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return errors.New("must be a valid email address")
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func validatePassword(pw string) error {
	switch {
	case len(pw) < minPasswordLen:
		return errors.New("must be at least 8 characters")
	case len(pw) > maxPasswordLen:
		return errors.New("must be at most 72 bytes")
	}
	return nil
}

func toDomain(u userrepo.User, roles []domain.RoleName) domain.User {
	out := domain.User{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Type:      u.Type,
		Roles:     append([]domain.RoleName(nil), roles...),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.LastLoginAt != nil {
		t := *u.LastLoginAt
		out.LastLoginAt = &t
	}
	return out
}
