package subscriptionrepo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
)

func TestRepo_InTx_RollsBackOnError(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	boom := errors.New("boom")
	err := r.InTx(context.Background(), func(ctx context.Context, tx subscriptionrepo.Tx) error {
		if err := tx.Insert(ctx, subscriptionrepo.Subscription{
			ID:     domain.SubscriptionID(uuid.NewString()),
			UserID: "u-1",
			Status: domain.SubscriptionStatusPending,
		}); err != nil {
			t.Fatalf("Insert err=%v", err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("InTx err=%v, want boom", err)
	}
	if _, err := r.GetByUser(context.Background(), "u-1"); !errors.Is(err, subscriptionrepo.ErrNotFound) {
		t.Fatalf("GetByUser err=%v, want ErrNotFound after rollback", err)
	}
}

func TestRepo_InTx_SerializesInsertsForSameUser(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		inserted  int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := r.InTx(context.Background(), func(ctx context.Context, tx subscriptionrepo.Tx) error {
				if _, err := tx.GetByUserForUpdate(ctx, "u-1"); err == nil {
					return subscriptionrepo.ErrConflict
				}
				return tx.Insert(ctx, subscriptionrepo.Subscription{
					ID:        domain.SubscriptionID(uuid.NewString()),
					UserID:    "u-1",
					Status:    domain.SubscriptionStatusPending,
					CreatedAt: time.Unix(100, 0).UTC(),
				})
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				inserted++
			case errors.Is(err, subscriptionrepo.ErrConflict):
				conflicts++
			default:
				t.Errorf("unexpected err=%v", err)
			}
		}()
	}
	wg.Wait()
	if inserted != 1 || conflicts != workers-1 {
		t.Fatalf("inserted=%d conflicts=%d, want 1 and %d", inserted, conflicts, workers-1)
	}
}
