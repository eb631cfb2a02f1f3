package seatrepo

import (
	"context"
	"testing"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
)

func TestRepo_CountsByTrip(t *testing.T) {
	t.Parallel()

	r := NewRepo()
	ctx := context.Background()
	for i, trip := range []domain.TripID{"t-1", "t-1", "t-2", "t-1"} {
		if err := r.Create(ctx, seatrepo.Allocation{
			ID:        domain.SeatAllocationID(string(rune('a' + i))),
			TripID:    trip,
			UserID:    "u-1",
			Kind:      domain.SeatKindSubscription,
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}); err != nil {
			t.Fatalf("Create err=%v", err)
		}
	}

	counts, err := r.CountsByTrip(ctx)
	if err != nil {
		t.Fatalf("CountsByTrip err=%v", err)
	}
	if counts["t-1"] != 3 || counts["t-2"] != 1 || counts["t-3"] != 0 {
		t.Fatalf("counts=%v", counts)
	}
}
