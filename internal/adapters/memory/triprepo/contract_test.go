package triprepo

import (
	"testing"

	"github.com/campus-shuttle/transport-api/internal/adapters/contracttest"
	memrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/routerepo"
	memseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/seatrepo"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
)

func TestContract_TripRepo(t *testing.T) {
	contracttest.RunTripRepo(t, func(t *testing.T) (contracttest.FleetFixture, func()) {
		t.Helper()
		users := memuserrepo.NewRepo()
		routes := memrouterepo.NewRepo()
		seats := memseatrepo.NewRepo()
		return contracttest.FleetFixture{
			Users:  users,
			Routes: routes,
			Seats:  seats,
			Trips:  NewRepo(routes, users, seats),
		}, nil
	})
}
