package triprepo

import (
	"testing"

	"github.com/campus-shuttle/transport-api/internal/adapters/contracttest"
	"github.com/campus-shuttle/transport-api/internal/adapters/postgres/routerepo"
	"github.com/campus-shuttle/transport-api/internal/adapters/postgres/seatrepo"
	"github.com/campus-shuttle/transport-api/internal/adapters/postgres/testutil"
	"github.com/campus-shuttle/transport-api/internal/adapters/postgres/userrepo"
)

func TestContract_PostgresTripAndSeatRepos(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunTripRepo(t, func(t *testing.T) (contracttest.FleetFixture, func()) {
		t.Helper()
		return contracttest.FleetFixture{
			Users:  userrepo.NewRepo(pool),
			Routes: routerepo.NewRepo(pool),
			Seats:  seatrepo.NewRepo(pool),
			Trips:  NewRepo(pool),
		}, nil
	})
}
