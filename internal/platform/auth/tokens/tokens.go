// Package tokens issues and verifies the HS256 access tokens used when the service is its
// own identity provider (auth.mode=local).
package tokens

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

// DefaultTTL matches the access token lifetime of the staff portal.
const DefaultTTL = 8 * time.Hour

var ErrUnauthorized = errors.New("unauthorized")

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
	// Leeway tolerates clock drift on exp/nbf checks.
	Leeway time.Duration
}

// HS256 mints and checks symmetric tokens whose `sub` claim is the user id.
type HS256 struct {
	key    []byte
	issuer string
	ttl    time.Duration
	leeway time.Duration
	now    func() time.Time
}

func NewHS256(cfg Config) (*HS256, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &HS256{
		key:    []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    cfg.TTL,
		leeway: cfg.Leeway,
		now:    time.Now,
	}, nil
}

// SetNowForTest overrides the verification clock.
func (h *HS256) SetNowForTest(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

func (h *HS256) Issue(subject domain.UserID, now time.Time) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("empty subject")
	}
	exp := now.Add(h.ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    h.issuer,
		Subject:   string(subject),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify returns the subject of a valid token. Every failure collapses to ErrUnauthorized.
func (h *HS256) Verify(_ context.Context, token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(h.leeway),
		jwt.WithTimeFunc(h.now),
	}
	if h.issuer != "" {
		opts = append(opts, jwt.WithIssuer(h.issuer))
	}
	var claims jwt.RegisteredClaims
	tok, err := jwt.NewParser(opts...).ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return h.key, nil
	})
	if err != nil || !tok.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
