package subscriptionrepo

import (
	"testing"

	"github.com/campus-shuttle/transport-api/internal/adapters/contracttest"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
)

func TestContract_SubscriptionRepo(t *testing.T) {
	contracttest.RunSubscriptionRepo(t, func(t *testing.T) (contracttest.SubscriptionFixture, func()) {
		t.Helper()
		return contracttest.SubscriptionFixture{Repo: NewRepo(), Users: memuserrepo.NewRepo()}, nil
	})
}
