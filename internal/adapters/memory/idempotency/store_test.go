package idempotency

import (
	"context"
	"testing"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
)

func TestStore_PutThenGet(t *testing.T) {
	t.Parallel()

	s := NewStore()
	fp := idempotency.Fingerprint{
		Key:      "k1",
		Subject:  domain.UserID("user-1"),
		Method:   "POST",
		Route:    "/subscriptions",
		BodyHash: "abc123",
	}
	rec := idempotency.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{"ok":true}`),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}

	if err := s.Put(context.Background(), fp, rec); err != nil {
		t.Fatalf("Put() err=%v", err)
	}
	rec.Body[0] = 'X'

	got, ok, err := s.Get(context.Background(), fp)
	if err != nil {
		t.Fatalf("Get() err=%v", err)
	}
	if !ok {
		t.Fatalf("Get() ok=false, want true")
	}
	if got.StatusCode != 201 || got.ContentType != rec.ContentType || string(got.Body) != `{"ok":true}` {
		t.Fatalf("Get()=%+v, stored body must be detached from caller", got)
	}

	other := fp
	other.Subject = "user-2"
	if _, ok, _ := s.Get(context.Background(), other); ok {
		t.Fatalf("fingerprint must be scoped to the caller")
	}
}
