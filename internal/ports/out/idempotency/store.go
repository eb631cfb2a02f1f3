package idempotency

import (
	"context"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

// Key is the caller-provided idempotency key (Idempotency-Key header).
type Key string

// Fingerprint identifies a request uniquely for idempotency purposes:
// key + route + caller + request body hash.
// Route is represented as the HTTP method plus the route template (e.g. "/subscriptions/{subscriptionId}/approve").
type Fingerprint struct {
	Key      Key
	Subject  domain.UserID
	Method   string
	Route    string
	BodyHash string
}

// Record is the stored response we can replay for a duplicate request.
type Record struct {
	StatusCode  int
	ContentType string
	Body        []byte
	CreatedAt   time.Time
}

// Store persists idempotency records for replaying safe responses on retries.
type Store interface {
	Get(ctx context.Context, fp Fingerprint) (Record, bool, error)
	Put(ctx context.Context, fp Fingerprint, rec Record) error

	// DeleteBefore drops records created before cutoff and reports how many went.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int, error)
}
