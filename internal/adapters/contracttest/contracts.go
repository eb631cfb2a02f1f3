package contracttest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/campus-shuttle/transport-api/internal/domain"
	idempotencyport "github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
	routerepoport "github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	seatrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
	subscriptionrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
	triprepoport "github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
	userrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

// SubscriptionFixture pairs a subscription store with the user store its records reference.
type SubscriptionFixture struct {
	Repo  subscriptionrepoport.Repository
	Users userrepoport.Repository
}

// FleetFixture bundles the stores the availability query joins across.
type FleetFixture struct {
	Users  userrepoport.Repository
	Routes routerepoport.Repository
	Seats  seatrepoport.Repository
	Trips  triprepoport.Repository
}

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type RouteRepoFactory func(t *testing.T) (routerepoport.Repository, CleanupFunc)
type SubscriptionRepoFactory func(t *testing.T) (SubscriptionFixture, CleanupFunc)
type TripRepoFactory func(t *testing.T) (FleetFixture, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      "k-1",
		Subject:  domain.UserID(uuid.NewString()),
		Method:   "POST",
		Route:    "/subscriptions",
		BodyHash: "",
	}
	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// Retention: only records older than the cutoff go.
	fresh := fp
	fresh.BodyHash = "hash-def"
	if err := store.Put(ctx, fresh, idempotencyport.Record{
		StatusCode:  201,
		ContentType: "application/json",
		Body:        []byte(`{}`),
		CreatedAt:   time.Unix(500, 0).UTC(),
	}); err != nil {
		t.Fatalf("Put fresh: %v", err)
	}
	n, err := store.DeleteBefore(ctx, time.Unix(200, 0).UTC())
	if err != nil {
		t.Fatalf("DeleteBefore: %v", err)
	}
	if n != 1 {
		t.Fatalf("DeleteBefore removed %d, want 1", n)
	}
	if _, ok, _ := store.Get(ctx, fp); ok {
		t.Fatalf("expected old record to be gone")
	}
	if _, ok, _ := store.Get(ctx, fresh); !ok {
		t.Fatalf("expected fresh record to survive")
	}
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	aID := domain.UserID(uuid.NewString())
	if err := repo.Create(ctx, userrepoport.User{
		ID:           aID,
		Email:        "Alice@Example.com",
		PasswordHash: "hash-a",
		FullName:     "Alice Rahman",
		Type:         domain.UserTypeStaff,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("Create a: %v", err)
	}
	got, err := repo.GetByEmail(ctx, "alice@example.COM")
	if err != nil {
		t.Fatalf("GetByEmail: %v", err)
	}
	if got.ID != aID || got.Email != "alice@example.com" || got.Type != domain.UserTypeStaff || got.LastLoginAt != nil {
		t.Fatalf("unexpected user: %+v", got)
	}

	// Email uniqueness is case-insensitive.
	err = repo.Create(ctx, userrepoport.User{
		ID:        domain.UserID(uuid.NewString()),
		Email:     "ALICE@example.com",
		FullName:  "Alice 2",
		Type:      domain.UserTypeStaff,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, userrepoport.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	err = repo.Create(ctx, userrepoport.User{
		ID:        aID,
		Email:     "other@example.com",
		FullName:  "Other",
		Type:      domain.UserTypeStaff,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}

	// Update stamps last login.
	login := now.Add(time.Hour)
	got.LastLoginAt = &login
	got.UpdatedAt = login
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err = repo.GetByID(ctx, aID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(login) {
		t.Fatalf("LastLoginAt=%v, want %v", got.LastLoginAt, login)
	}

	// Role memberships.
	if ok, err := repo.HasRole(ctx, aID, domain.RoleTransportOfficer); err != nil || ok {
		t.Fatalf("HasRole before grant: ok=%v err=%v", ok, err)
	}
	for _, role := range []domain.RoleName{domain.RoleTransportOfficer, domain.RoleNormalStaff, domain.RoleTransportOfficer} {
		if err := repo.GrantRole(ctx, aID, role); err != nil {
			t.Fatalf("GrantRole(%s): %v", role, err)
		}
	}
	roles, err := repo.ListRoles(ctx, aID)
	if err != nil {
		t.Fatalf("ListRoles: %v", err)
	}
	if len(roles) != 2 || roles[0] != domain.RoleNormalStaff || roles[1] != domain.RoleTransportOfficer {
		t.Fatalf("roles=%v, want [NORMAL_STAFF TO]", roles)
	}
	if ok, err := repo.HasRole(ctx, aID, domain.RoleTransportOfficer); err != nil || !ok {
		t.Fatalf("HasRole after grant: ok=%v err=%v", ok, err)
	}

	missing := domain.UserID(uuid.NewString())
	if ok, err := repo.HasRole(ctx, missing, domain.RoleTransportOfficer); err != nil || ok {
		t.Fatalf("HasRole unknown user: ok=%v err=%v", ok, err)
	}
	if err := repo.GrantRole(ctx, missing, domain.RoleFaculty); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GrantRole unknown user: %v", err)
	}
	if _, err := repo.GetByID(ctx, missing); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown user: %v", err)
	}
}

func RunRouteRepo(t *testing.T, newRepo RouteRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	r1 := routerepoport.Route{
		ID:         domain.RouteID(uuid.NewString()),
		Name:       "Route-1",
		StartPoint: "Tongi Station Road",
		EndPoint:   "Farmgate",
		IsActive:   true,
		CreatedAt:  time.Unix(1000, 0).UTC(),
	}
	if err := repo.CreateRoute(ctx, r1); err != nil {
		t.Fatalf("CreateRoute: %v", err)
	}
	dup := r1
	dup.ID = domain.RouteID(uuid.NewString())
	if err := repo.CreateRoute(ctx, dup); !errors.Is(err, routerepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate route name: %v", err)
	}

	// Insert out of order; ListStops must sort by sequence.
	for i, name := range []string{"Airport", "Uttara Sector 7", "Banani"} {
		seq := []int{3, 2, 4}[i]
		if err := repo.AddStop(ctx, routerepoport.Stop{
			ID:       domain.StopID(uuid.NewString()),
			RouteID:  r1.ID,
			Name:     name,
			Sequence: seq,
		}); err != nil {
			t.Fatalf("AddStop(%s): %v", name, err)
		}
	}
	err := repo.AddStop(ctx, routerepoport.Stop{
		ID:       domain.StopID(uuid.NewString()),
		RouteID:  r1.ID,
		Name:     "BANANI",
		Sequence: 9,
	})
	if !errors.Is(err, routerepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate stop name: %v", err)
	}
	err = repo.AddStop(ctx, routerepoport.Stop{
		ID:       domain.StopID(uuid.NewString()),
		RouteID:  domain.RouteID(uuid.NewString()),
		Name:     "Nowhere",
		Sequence: 1,
	})
	if !errors.Is(err, routerepoport.ErrNotFound) {
		t.Fatalf("stop on unknown route: %v", err)
	}

	stops, err := repo.ListStops(ctx, r1.ID)
	if err != nil {
		t.Fatalf("ListStops: %v", err)
	}
	if len(stops) != 3 || stops[0].Name != "Uttara Sector 7" || stops[2].Name != "Banani" {
		t.Fatalf("unexpected stop order: %+v", stops)
	}

	loc, err := repo.FindStopByName(ctx, "banani")
	if err != nil {
		t.Fatalf("FindStopByName: %v", err)
	}
	if loc.Stop.Name != "Banani" || loc.Stop.RouteID != r1.ID || loc.RouteName != "Route-1" {
		t.Fatalf("unexpected stop location: %+v", loc)
	}
	if _, err := repo.FindStopByName(ctx, "Gulshan"); !errors.Is(err, routerepoport.ErrNotFound) {
		t.Fatalf("unknown stop: %v", err)
	}

	all, err := repo.ListStopLocations(ctx)
	if err != nil {
		t.Fatalf("ListStopLocations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListStopLocations len=%d, want 3", len(all))
	}

	byName, err := repo.GetRouteByName(ctx, "route-1")
	if err != nil || byName.ID != r1.ID {
		t.Fatalf("GetRouteByName: %+v err=%v", byName, err)
	}
	routes, err := repo.ListRoutes(ctx)
	if err != nil || len(routes) != 1 || routes[0].StartPoint != "Tongi Station Road" {
		t.Fatalf("ListRoutes: %+v err=%v", routes, err)
	}
}

func RunSubscriptionRepo(t *testing.T, newFixture SubscriptionRepoFactory) {
	t.Helper()
	ctx := context.Background()

	fx, cleanup := newFixture(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}
	repo := fx.Repo

	now := time.Unix(1_700_000_000, 0).UTC()
	alice := mustCreateUser(t, fx.Users, "alice@example.com", "Alice", domain.UserTypeStaff, now)
	bob := mustCreateUser(t, fx.Users, "bob@example.com", "Bob", domain.UserTypeStaff, now)

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	aliceSub := subscriptionrepoport.Subscription{
		ID:        domain.SubscriptionID(uuid.NewString()),
		UserID:    alice,
		StopName:  "Banani",
		Status:    domain.SubscriptionStatusPending,
		StartDate: start,
		EndDate:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	bobSub := aliceSub
	bobSub.ID = domain.SubscriptionID(uuid.NewString())
	bobSub.UserID = bob
	bobSub.CreatedAt = now.Add(time.Minute)
	bobSub.UpdatedAt = bobSub.CreatedAt

	// Insert bob first to prove listing orders by CreatedAt rather than insertion.
	for _, s := range []subscriptionrepoport.Subscription{bobSub, aliceSub} {
		s := s
		if err := repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
			return tx.Insert(ctx, s)
		}); err != nil {
			t.Fatalf("Insert %s: %v", s.UserID, err)
		}
	}

	got, err := repo.GetByUser(ctx, alice)
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if got.ID != aliceSub.ID || got.StopName != "Banani" || !got.StartDate.Equal(start) || !got.EndDate.Equal(end) || got.Status != domain.SubscriptionStatusPending {
		t.Fatalf("unexpected subscription: %+v", got)
	}

	pending, err := repo.ListByStatus(ctx, domain.SubscriptionStatusPending)
	if err != nil {
		t.Fatalf("ListByStatus: %v", err)
	}
	if len(pending) != 2 || pending[0].UserID != alice || pending[1].UserID != bob {
		t.Fatalf("unexpected pending order: %+v", pending)
	}

	// One record per user.
	err = repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
		again := aliceSub
		again.ID = domain.SubscriptionID(uuid.NewString())
		return tx.Insert(ctx, again)
	})
	if !errors.Is(err, subscriptionrepoport.ErrConflict) {
		t.Fatalf("second insert for user: %v", err)
	}

	// Approve inside a unit of work.
	err = repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
		s, err := tx.GetByIDForUpdate(ctx, aliceSub.ID)
		if err != nil {
			return err
		}
		s.Status = domain.SubscriptionStatusActive
		s.UpdatedAt = now.Add(time.Hour)
		return tx.Update(ctx, s)
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	got, err = repo.GetByID(ctx, aliceSub.ID)
	if err != nil || got.Status != domain.SubscriptionStatusActive {
		t.Fatalf("after approve: %+v err=%v", got, err)
	}

	// A failed unit of work leaves no trace.
	boom := errors.New("boom")
	err = repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
		s, err := tx.GetByUserForUpdate(ctx, bob)
		if err != nil {
			return err
		}
		s.Status = domain.SubscriptionStatusInactive
		if err := tx.Update(ctx, s); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, err = repo.GetByUser(ctx, bob)
	if err != nil || got.Status != domain.SubscriptionStatusPending {
		t.Fatalf("rollback failed: %+v err=%v", got, err)
	}

	if _, err := repo.GetByID(ctx, domain.SubscriptionID(uuid.NewString())); !errors.Is(err, subscriptionrepoport.ErrNotFound) {
		t.Fatalf("GetByID unknown: %v", err)
	}
	err = repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
		_, err := tx.GetByIDForUpdate(ctx, domain.SubscriptionID(uuid.NewString()))
		return err
	})
	if !errors.Is(err, subscriptionrepoport.ErrNotFound) {
		t.Fatalf("GetByIDForUpdate unknown: %v", err)
	}

	// Sweep: only ACTIVE rows that ended before the day.
	n, err := repo.ExpireEndedBefore(ctx, end, now.Add(2*time.Hour))
	if err != nil || n != 0 {
		t.Fatalf("sweep on last day: n=%d err=%v", n, err)
	}
	n, err = repo.ExpireEndedBefore(ctx, end.AddDate(0, 0, 1), now.Add(2*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("sweep after end: n=%d err=%v", n, err)
	}
	got, _ = repo.GetByUser(ctx, alice)
	if got.Status != domain.SubscriptionStatusExpired {
		t.Fatalf("status=%s, want EXPIRED", got.Status)
	}
	got, _ = repo.GetByUser(ctx, bob)
	if got.Status != domain.SubscriptionStatusPending {
		t.Fatalf("pending row touched by sweep: %s", got.Status)
	}

	if err := repo.DeleteByUser(ctx, alice); err != nil {
		t.Fatalf("DeleteByUser: %v", err)
	}
	if _, err := repo.GetByUser(ctx, alice); !errors.Is(err, subscriptionrepoport.ErrNotFound) {
		t.Fatalf("GetByUser after delete: %v", err)
	}
	if err := repo.DeleteByUser(ctx, alice); !errors.Is(err, subscriptionrepoport.ErrNotFound) {
		t.Fatalf("second DeleteByUser: %v", err)
	}

	runConcurrentSubscribe(t, fx, now, start, end)
}

// runConcurrentSubscribe races read-check-insert units of work for one user and
// expects exactly one of them to commit.
func runConcurrentSubscribe(t *testing.T, fx SubscriptionFixture, now, start, end time.Time) {
	t.Helper()
	ctx := context.Background()
	repo := fx.Repo
	carol := mustCreateUser(t, fx.Users, "carol@example.com", "Carol", domain.UserTypeStaff, now)

	errHeld := errors.New("record already held")
	const workers = 8
	ids := make([]domain.SubscriptionID, workers)
	errs := make([]error, workers)

	var ready, wg sync.WaitGroup
	gate := make(chan struct{})
	ready.Add(workers)
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		ids[i] = domain.SubscriptionID(uuid.NewString())
		go func(i int) {
			defer wg.Done()
			ready.Done()
			<-gate
			errs[i] = repo.InTx(ctx, func(ctx context.Context, tx subscriptionrepoport.Tx) error {
				_, err := tx.GetByUserForUpdate(ctx, carol)
				switch {
				case err == nil:
					return errHeld
				case !errors.Is(err, subscriptionrepoport.ErrNotFound):
					return err
				}
				return tx.Insert(ctx, subscriptionrepoport.Subscription{
					ID:        ids[i],
					UserID:    carol,
					StopName:  "Farmgate",
					Status:    domain.SubscriptionStatusPending,
					StartDate: start,
					EndDate:   end,
					CreatedAt: now,
					UpdatedAt: now,
				})
			})
		}(i)
	}
	ready.Wait()
	close(gate)
	wg.Wait()

	var winner domain.SubscriptionID
	committed := 0
	for i, err := range errs {
		switch {
		case err == nil:
			committed++
			winner = ids[i]
		case errors.Is(err, errHeld), errors.Is(err, subscriptionrepoport.ErrConflict):
		default:
			t.Fatalf("worker %d: unexpected error %v", i, err)
		}
	}
	if committed != 1 {
		t.Fatalf("committed=%d, want exactly 1 (errs=%v)", committed, errs)
	}
	got, err := repo.GetByUser(ctx, carol)
	if err != nil || got.ID != winner {
		t.Fatalf("stored record %+v err=%v, want id %s", got, err, winner)
	}
}

func RunTripRepo(t *testing.T, newFixture TripRepoFactory) {
	t.Helper()
	ctx := context.Background()

	fx, cleanup := newFixture(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1_700_000_000, 0).UTC()
	route1 := mustCreateRoute(t, fx.Routes, "Route-1", now)
	route2 := mustCreateRoute(t, fx.Routes, "Route-2", now)

	v208 := triprepoport.Vehicle{ID: domain.VehicleID(uuid.NewString()), Number: "NR-208", Capacity: 32, Status: domain.VehicleStatusAvailable}
	v331 := triprepoport.Vehicle{ID: domain.VehicleID(uuid.NewString()), Number: "NR-331", Capacity: 28, Status: domain.VehicleStatusAvailable}
	for _, v := range []triprepoport.Vehicle{v208, v331} {
		if err := fx.Trips.CreateVehicle(ctx, v); err != nil {
			t.Fatalf("CreateVehicle(%s): %v", v.Number, err)
		}
	}
	if err := fx.Trips.CreateVehicle(ctx, triprepoport.Vehicle{ID: domain.VehicleID(uuid.NewString()), Number: "NR-208", Capacity: 10, Status: domain.VehicleStatusAvailable}); !errors.Is(err, triprepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate vehicle number: %v", err)
	}
	gotVehicle, err := fx.Trips.GetVehicleByNumber(ctx, "NR-331")
	if err != nil || gotVehicle.ID != v331.ID || gotVehicle.Capacity != 28 {
		t.Fatalf("GetVehicleByNumber: %+v err=%v", gotVehicle, err)
	}

	shafiul := mustCreateUser(t, fx.Users, "shafiul@example.com", "Shafiul Islam", domain.UserTypeDriver, now)
	imran := mustCreateUser(t, fx.Users, "imran@example.com", "Imran Hossain", domain.UserTypeDriver, now)
	for _, d := range []triprepoport.Driver{
		{UserID: shafiul, LicenseNumber: "DL-1021", VehicleID: &v208.ID},
		{UserID: imran, LicenseNumber: "DL-1045", VehicleID: &v331.ID},
	} {
		if err := fx.Trips.CreateDriver(ctx, d); err != nil {
			t.Fatalf("CreateDriver(%s): %v", d.LicenseNumber, err)
		}
	}

	day0 := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	day1 := day0.AddDate(0, 0, 1)
	day3 := day0.AddDate(0, 0, 3)
	at := func(h, m int) domain.ClockTime { return domain.ClockTime{Hour: h, Minute: m} }

	mkTrip := func(route domain.RouteID, v triprepoport.Vehicle, driver domain.UserID, day time.Time, start domain.ClockTime, status domain.TripStatus) triprepoport.Trip {
		t.Helper()
		tr := triprepoport.Trip{
			ID:        domain.TripID(uuid.NewString()),
			VehicleID: v.ID,
			DriverID:  driver,
			RouteID:   route,
			TripDate:  day,
			StartTime: start,
			Status:    status,
			CreatedAt: now,
		}
		if err := fx.Trips.Create(ctx, tr); err != nil {
			t.Fatalf("Create trip: %v", err)
		}
		return tr
	}
	past := mkTrip(route1, v208, shafiul, day0, at(7, 30), domain.TripStatusCompleted)
	late := mkTrip(route1, v208, shafiul, day1, at(8, 5), domain.TripStatusScheduled)
	morning := mkTrip(route1, v208, shafiul, day1, at(7, 30), domain.TripStatusStarted)
	early := mkTrip(route2, v331, imran, day1, at(4, 45), domain.TripStatusScheduled)
	later := mkTrip(route2, v331, imran, day3, at(8, 15), domain.TripStatusScheduled)

	err = fx.Trips.Create(ctx, triprepoport.Trip{
		ID:        domain.TripID(uuid.NewString()),
		VehicleID: domain.VehicleID(uuid.NewString()),
		DriverID:  shafiul,
		RouteID:   route1,
		TripDate:  day1,
		StartTime: at(9, 0),
		Status:    domain.TripStatusScheduled,
		CreatedAt: now,
	})
	if !errors.Is(err, triprepoport.ErrVehicleNotFound) {
		t.Fatalf("trip with unknown vehicle: %v", err)
	}

	rider := mustCreateUser(t, fx.Users, "rider@example.com", "Rider", domain.UserTypeStaff, now)
	for i := 0; i < 5; i++ {
		if err := fx.Seats.Create(ctx, seatrepoport.Allocation{
			ID:        domain.SeatAllocationID(uuid.NewString()),
			TripID:    morning.ID,
			UserID:    rider,
			Kind:      domain.SeatKindSubscription,
			CreatedAt: now.Add(time.Duration(i) * time.Second),
		}); err != nil {
			t.Fatalf("seat %d: %v", i, err)
		}
	}
	if err := fx.Seats.Create(ctx, seatrepoport.Allocation{
		ID:        domain.SeatAllocationID(uuid.NewString()),
		TripID:    early.ID,
		UserID:    rider,
		Kind:      domain.SeatKindGuest,
		CreatedAt: now,
	}); err != nil {
		t.Fatalf("guest seat: %v", err)
	}
	dup := seatrepoport.Allocation{ID: domain.SeatAllocationID(uuid.NewString()), TripID: later.ID, UserID: rider, Kind: domain.SeatKindGuest, CreatedAt: now}
	if err := fx.Seats.Create(ctx, dup); err != nil {
		t.Fatalf("seat on later trip: %v", err)
	}
	if err := fx.Seats.Create(ctx, dup); !errors.Is(err, seatrepoport.ErrAlreadyExists) {
		t.Fatalf("duplicate seat: %v", err)
	}

	rows, err := fx.Trips.ListAvailability(ctx, triprepoport.AvailabilityFilter{DateFrom: day1})
	if err != nil {
		t.Fatalf("ListAvailability: %v", err)
	}
	wantOrder := []domain.TripID{early.ID, morning.ID, late.ID, later.ID}
	if len(rows) != len(wantOrder) {
		t.Fatalf("rows=%d, want %d: %+v", len(rows), len(wantOrder), rows)
	}
	for i, id := range wantOrder {
		if rows[i].Trip.ID != id {
			t.Fatalf("row %d trip=%s, want %s", i, rows[i].Trip.ID, id)
		}
	}
	m := rows[1]
	if m.RouteName != "Route-1" || m.VehicleNumber != "NR-208" || m.Capacity != 32 || m.DriverName != "Shafiul Islam" || m.Booked != 5 {
		t.Fatalf("unexpected morning row: %+v", m)
	}
	if !m.Trip.TripDate.Equal(day1) || m.Trip.StartTime != at(7, 30) || m.Trip.Status != domain.TripStatusStarted {
		t.Fatalf("unexpected morning trip: %+v", m.Trip)
	}
	if rows[0].Booked != 1 || rows[2].Booked != 0 || rows[3].Booked != 1 {
		t.Fatalf("unexpected booked counts: early=%d late=%d later=%d", rows[0].Booked, rows[2].Booked, rows[3].Booked)
	}

	to := day1
	rows, err = fx.Trips.ListAvailability(ctx, triprepoport.AvailabilityFilter{DateFrom: day0, DateTo: &to})
	if err != nil || len(rows) != 4 || rows[0].Trip.ID != past.ID {
		t.Fatalf("bounded range: rows=%d err=%v", len(rows), err)
	}
	rows, err = fx.Trips.ListAvailability(ctx, triprepoport.AvailabilityFilter{DateFrom: day1, RouteID: &route2})
	if err != nil || len(rows) != 2 || rows[0].Trip.ID != early.ID || rows[1].Trip.ID != later.ID {
		t.Fatalf("route filter: %+v err=%v", rows, err)
	}

	onDay1, err := fx.Trips.ListByDate(ctx, day1)
	if err != nil || len(onDay1) != 3 {
		t.Fatalf("ListByDate: n=%d err=%v", len(onDay1), err)
	}
}

func mustCreateUser(t *testing.T, users userrepoport.Repository, email, name string, typ domain.UserType, now time.Time) domain.UserID {
	t.Helper()
	id := domain.UserID(uuid.NewString())
	if err := users.Create(context.Background(), userrepoport.User{
		ID:           id,
		Email:        email,
		PasswordHash: "x",
		FullName:     name,
		Type:         typ,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return id
}

func mustCreateRoute(t *testing.T, routes routerepoport.Repository, name string, now time.Time) domain.RouteID {
	t.Helper()
	id := domain.RouteID(uuid.NewString())
	if err := routes.CreateRoute(context.Background(), routerepoport.Route{
		ID:         id,
		Name:       name,
		StartPoint: "A",
		EndPoint:   "B",
		IsActive:   true,
		CreatedAt:  now,
	}); err != nil {
		t.Fatalf("create route %s: %v", name, err)
	}
	return id
}
