package seed

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	memclock "github.com/campus-shuttle/transport-api/internal/adapters/memory/clock"
	memrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/routerepo"
	memseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/seatrepo"
	memtriprepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
)

func TestRun_SeedsFleetOnceAndIsIdempotent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	users := memuserrepo.NewRepo()
	routes := memrouterepo.NewRepo()
	seats := memseatrepo.NewRepo()
	trips := memtriprepo.NewRepo(routes, users, seats)
	clk := memclock.NewManualClock(time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC))

	acct := accounts.NewService(users, clk, nil)
	acct.HashCost = bcrypt.MinCost

	log := logrus.New()
	log.SetOutput(io.Discard)
	s := New(acct, routes, trips, clk, nil, log)

	officer := Officer{Email: "to@iut-dhaka.edu", Password: "officer-pass"}
	rep, err := s.Run(ctx, officer)
	require.NoError(t, err)
	assert.Equal(t, Report{Users: 5, Routes: 2, Stops: 12, Vehicles: 4, Drivers: 4, Trips: 4}, rep)

	again, err := s.Run(ctx, officer)
	require.NoError(t, err)
	assert.Equal(t, Report{}, again)

	to, err := users.GetByEmail(ctx, "to@iut-dhaka.edu")
	require.NoError(t, err)
	ok, err := users.HasRole(ctx, to.ID, domain.RoleTransportOfficer)
	require.NoError(t, err)
	assert.True(t, ok)

	loc, err := routes.FindStopByName(ctx, "banani")
	require.NoError(t, err)
	assert.Equal(t, "Route-1", loc.RouteName)
	assert.Equal(t, 4, loc.Stop.Sequence)

	rows, err := trips.ListAvailability(ctx, triprepo.AvailabilityFilter{DateFrom: clk.Now()})
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "04:45", rows[0].Trip.StartTime.String())
	assert.Equal(t, "NR-514", rows[0].VehicleNumber)
	assert.Equal(t, "Nazia Rahman", rows[0].DriverName)
	assert.Equal(t, 36, rows[0].Capacity)
	assert.Equal(t, "07:30", rows[1].Trip.StartTime.String())
	assert.Equal(t, "Route-1", rows[1].RouteName)
	assert.Equal(t, domain.TripStatusStarted, rows[1].Trip.Status)

	driver, err := users.GetByEmail(ctx, "shafiul.islam@iut-dhaka.edu")
	require.NoError(t, err)
	assert.Equal(t, domain.UserTypeDriver, driver.Type)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(driver.PasswordHash), []byte(driverPassword)))
}
