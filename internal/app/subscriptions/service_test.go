package subscriptions

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/campus-shuttle/transport-api/internal/adapters/memory/clock"
	memrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/routerepo"
	memsubscriptionrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/subscriptionrepo"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
	"github.com/campus-shuttle/transport-api/internal/app/apperr"
	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

const (
	alice   domain.UserID = "alice"
	bob     domain.UserID = "bob"
	officer domain.UserID = "officer"
	driver  domain.UserID = "driver"
)

type fixture struct {
	svc   *Service
	subs  *memsubscriptionrepo.Repo
	users *memuserrepo.Repo
	clk   *memclock.ManualClock
}

func newFixture(t *testing.T, loc *time.Location) fixture {
	t.Helper()
	ctx := context.Background()

	users := memuserrepo.NewRepo()
	for _, u := range []userrepo.User{
		{ID: alice, Email: "alice@example.com", FullName: "Alice Akter", Type: domain.UserTypeStaff},
		{ID: bob, Email: "bob@example.com", FullName: "Bob Biswas", Type: domain.UserTypeStaff},
		{ID: officer, Email: "to@example.com", FullName: "Transport Officer", Type: domain.UserTypeStaff},
		{ID: driver, Email: "driver@example.com", FullName: "Shafiul Islam", Type: domain.UserTypeDriver},
	} {
		require.NoError(t, users.Create(ctx, u))
	}
	require.NoError(t, users.GrantRole(ctx, officer, domain.RoleTransportOfficer))
	require.NoError(t, users.GrantRole(ctx, alice, domain.RoleNormalStaff))

	routes := memrouterepo.NewRepo()
	require.NoError(t, routes.CreateRoute(ctx, routerepo.Route{ID: "r1", Name: "Route-1", StartPoint: "Tongi Station Road", EndPoint: "Farmgate", IsActive: true}))
	require.NoError(t, routes.CreateRoute(ctx, routerepo.Route{ID: "r2", Name: "Route-2", StartPoint: "Abdullahpur", EndPoint: "Motijheel", IsActive: true}))
	for i, name := range []string{"Uttara Sector 7", "Banani", "Farmgate"} {
		require.NoError(t, routes.AddStop(ctx, routerepo.Stop{ID: domain.StopID(fmt.Sprintf("r1-s%d", i)), RouteID: "r1", Name: name, Sequence: i + 1}))
	}
	require.NoError(t, routes.AddStop(ctx, routerepo.Stop{ID: "r2-s0", RouteID: "r2", Name: "Mirpur 10", Sequence: 1}))

	subs := memsubscriptionrepo.NewRepo()
	clk := memclock.NewManualClock(time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC))
	svc := NewService(subs, users, routes, users, clk, loc)
	next := 0
	svc.SetNewSubscriptionIDForTest(func() domain.SubscriptionID {
		next++
		return domain.SubscriptionID(fmt.Sprintf("sub-%03d", next))
	})
	return fixture{svc: svc, subs: subs, users: users, clk: clk}
}

func bananiQ1() RequestInput {
	return RequestInput{StopName: "Banani", StartMonth: "01", EndMonth: "03", Year: 2025}
}

func requireKind(t *testing.T, err error, kind apperr.Kind) *apperr.Error {
	t.Helper()
	require.Error(t, err)
	ae, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %T: %v", err, err)
	require.Equal(t, kind, ae.Kind, "code=%s message=%s", ae.Code, ae.Message)
	return ae
}

func TestRequest_CreatesPendingForQuarter(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)

	got, err := fx.svc.Request(context.Background(), alice, RequestInput{StopName: "  banani ", StartMonth: "1", EndMonth: "3", Year: 2025})
	require.NoError(t, err)

	assert.Equal(t, domain.SubscriptionStatusPending, got.Status)
	assert.Equal(t, "Banani", got.StopName)
	assert.Equal(t, "Route-1", got.RouteName)
	assert.Equal(t, "2025-01-01", got.StartDate.Format("2006-01-02"))
	assert.Equal(t, "2025-03-31", got.EndDate.Format("2006-01-02"))
	assert.Equal(t, alice, got.UserID)
}

func TestRequest_SecondRequestConflicts(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	first, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)

	ae := requireKind(t, mustErr(fx.svc.Request(ctx, alice, RequestInput{StopName: "Farmgate", StartMonth: "04", EndMonth: "06", Year: 2025})), apperr.KindConflict)
	assert.Equal(t, "SUBSCRIPTION_CONFLICT", ae.Code)

	stored, err := fx.subs.GetByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "Banani", stored.StopName)

	// Still conflicting once approved.
	_, err = fx.svc.Approve(ctx, officer, first.ID)
	require.NoError(t, err)
	requireKind(t, mustErr(fx.svc.Request(ctx, alice, bananiQ1())), apperr.KindConflict)
}

func TestRequest_Validation(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	cases := []struct {
		name   string
		in     RequestInput
		detail string
	}{
		{"reversed months win over other problems", RequestInput{StopName: "Nowhere", StartMonth: "05", EndMonth: "03", Year: 12}, "endMonth"},
		{"month out of range", RequestInput{StopName: "Banani", StartMonth: "13", EndMonth: "12", Year: 2025}, "startMonth"},
		{"month not a number", RequestInput{StopName: "Banani", StartMonth: "01", EndMonth: "March", Year: 2025}, "endMonth"},
		{"year too small", RequestInput{StopName: "Banani", StartMonth: "01", EndMonth: "02", Year: 999}, "year"},
		{"year too large", RequestInput{StopName: "Banani", StartMonth: "01", EndMonth: "02", Year: 10000}, "year"},
		{"unknown stop", RequestInput{StopName: "Gulshan", StartMonth: "01", EndMonth: "02", Year: 2025}, "stopName"},
		{"blank stop", RequestInput{StopName: "   ", StartMonth: "01", EndMonth: "02", Year: 2025}, "stopName"},
	}
	for _, tc := range cases {
		ae := requireKind(t, mustErr(fx.svc.Request(ctx, alice, tc.in)), apperr.KindInvalidInput)
		assert.Contains(t, ae.Details, tc.detail, tc.name)
	}

	_, err := fx.subs.GetByUser(ctx, alice)
	assert.Error(t, err, "validation failures must not write")
}

func TestRequest_OnlyStaff(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)

	requireKind(t, mustErr(fx.svc.Request(context.Background(), driver, bananiQ1())), apperr.KindForbidden)
	requireKind(t, mustErr(fx.svc.Request(context.Background(), "ghost", bananiQ1())), apperr.KindForbidden)
}

func TestApprove_ThenApproveAgainIsInvalidState(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)

	fx.clk.Advance(time.Hour)
	got, err := fx.svc.Approve(ctx, officer, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, got.Status)
	assert.Equal(t, "Route-1", got.RouteName)
	assert.True(t, got.UpdatedAt.Equal(fx.clk.Now()))

	ae := requireKind(t, mustErr(fx.svc.Approve(ctx, officer, req.ID)), apperr.KindInvalidState)
	assert.Equal(t, "INVALID_STATE", ae.Code)
	assert.Equal(t, "ACTIVE", ae.Details["status"])
	assert.Equal(t, []string{"EXPIRED"}, ae.Details["allowed"])
	requireKind(t, mustErr(fx.svc.Decline(ctx, officer, req.ID)), apperr.KindInvalidState)

	stored, err := fx.subs.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, stored.Status)
}

func TestDecline_ThenReRequestReusesRecord(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)

	got, err := fx.svc.Decline(ctx, officer, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusInactive, got.Status)

	again, err := fx.svc.Request(ctx, alice, RequestInput{StopName: "Mirpur 10", StartMonth: "2", EndMonth: "2", Year: 2024})
	require.NoError(t, err)
	assert.Equal(t, req.ID, again.ID)
	assert.Equal(t, domain.SubscriptionStatusPending, again.Status)
	assert.Equal(t, "Route-2", again.RouteName)
	assert.Equal(t, "2024-02-29", again.EndDate.Format("2006-01-02"))
}

func TestDecisions_RequireTransportOfficer(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)

	requireKind(t, mustErr(fx.svc.Approve(ctx, alice, req.ID)), apperr.KindForbidden)
	requireKind(t, mustErr(fx.svc.Decline(ctx, bob, req.ID)), apperr.KindForbidden)
	_, err = fx.svc.ListPending(ctx, alice)
	requireKind(t, err, apperr.KindForbidden)

	// Forbidden wins over not found.
	requireKind(t, mustErr(fx.svc.Approve(ctx, alice, "missing")), apperr.KindForbidden)
	ae := requireKind(t, mustErr(fx.svc.Approve(ctx, officer, "missing")), apperr.KindNotFound)
	assert.Equal(t, "SUBSCRIPTION_NOT_FOUND", ae.Code)

	stored, err := fx.subs.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPending, stored.Status)
}

func TestListPending_OrderedAndEnriched(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.Request(ctx, bob, RequestInput{StopName: "Mirpur 10", StartMonth: "01", EndMonth: "01", Year: 2025})
	require.NoError(t, err)
	fx.clk.Advance(time.Minute)
	aliceReq, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	fx.clk.Advance(time.Minute)
	officerReq, err := fx.svc.Request(ctx, officer, bananiQ1())
	require.NoError(t, err)
	_, err = fx.svc.Approve(ctx, officer, officerReq.ID)
	require.NoError(t, err)

	got, err := fx.svc.ListPending(ctx, officer)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, bob, got[0].UserID)
	assert.Equal(t, "Bob Biswas", got[0].RequesterName)
	assert.Equal(t, "Route-2", got[0].RouteName)
	assert.Equal(t, aliceReq.ID, got[1].ID)
	assert.Equal(t, "Alice Akter", got[1].RequesterName)
	assert.Equal(t, "Route-1", got[1].RouteName)
}

func TestGetMine_LazyExpiryIsPersisted(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	_, err = fx.svc.Approve(ctx, officer, req.ID)
	require.NoError(t, err)

	fx.clk.Set(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	got, err := fx.svc.GetMine(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusActive, got.Status, "still active on its last day")

	fx.clk.Set(time.Date(2025, 4, 1, 0, 30, 0, 0, time.UTC))
	got, err = fx.svc.GetMine(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusExpired, got.Status)
	assert.Equal(t, "Route-1", got.RouteName)

	stored, err := fx.subs.GetByUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusExpired, stored.Status)

	// An expired subscription can be re-requested.
	again, err := fx.svc.Request(ctx, alice, RequestInput{StopName: "Banani", StartMonth: "04", EndMonth: "06", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPending, again.Status)
}

func TestRequest_ExpiresStaleActiveBeforeConflictCheck(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	_, err = fx.svc.Approve(ctx, officer, req.ID)
	require.NoError(t, err)

	fx.clk.Set(time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC))
	got, err := fx.svc.Request(ctx, alice, RequestInput{StopName: "Farmgate", StartMonth: "05", EndMonth: "07", Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)
	assert.Equal(t, domain.SubscriptionStatusPending, got.Status)
	assert.Equal(t, "Farmgate", got.StopName)
}

func TestTodayFollowsServiceTimeZone(t *testing.T) {
	t.Parallel()
	dhaka := time.FixedZone("BDT", 6*60*60)
	fx := newFixture(t, dhaka)
	ctx := context.Background()

	req, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	_, err = fx.svc.Approve(ctx, officer, req.ID)
	require.NoError(t, err)

	// 20:00 UTC on the 31st is already April 1st in Dhaka.
	fx.clk.Set(time.Date(2025, 3, 31, 20, 0, 0, 0, time.UTC))
	got, err := fx.svc.GetMine(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusExpired, got.Status)
}

func TestCancel(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	_, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	require.NoError(t, fx.svc.Cancel(ctx, alice))

	_, err = fx.svc.GetMine(ctx, alice)
	requireKind(t, err, apperr.KindNotFound)
	requireKind(t, fx.svc.Cancel(ctx, alice), apperr.KindNotFound)

	// A fresh request after cancellation creates a new record.
	_, err = fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
}

func TestExpireDue(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	a, err := fx.svc.Request(ctx, alice, bananiQ1())
	require.NoError(t, err)
	_, err = fx.svc.Approve(ctx, officer, a.ID)
	require.NoError(t, err)
	_, err = fx.svc.Request(ctx, bob, RequestInput{StopName: "Banani", StartMonth: "01", EndMonth: "12", Year: 2025})
	require.NoError(t, err)

	fx.clk.Set(time.Date(2025, 4, 1, 1, 0, 0, 0, time.UTC))
	n, err := fx.svc.ExpireDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	stored, err := fx.subs.GetByUser(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionStatusPending, stored.Status)
}

func TestRequest_ConcurrentRequestsCreateOneRecord(t *testing.T) {
	t.Parallel()
	fx := newFixture(t, nil)
	ctx := context.Background()

	const n = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		conflicts int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.svc.Request(ctx, alice, bananiQ1())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case apperr.KindOf(err) == apperr.KindConflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func mustErr(_ Details, err error) error {
	return err
}
