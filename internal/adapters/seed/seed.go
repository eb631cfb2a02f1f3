// Package seed provisions the reference fleet: two routes with their stops, four vehicles
// with one driver each, today's trips and a transport officer account.
//
// Every step checks for existing rows first, so running it twice is harmless.
package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/domain"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
)

const driverPassword = "driver123"

type routeSeed struct {
	name  string
	stops []string
}

var routeSeeds = []routeSeed{
	{name: "Route-1", stops: []string{"Tongi Station Road", "Uttara Sector 7", "Airport", "Banani", "Mohakhali", "Farmgate"}},
	{name: "Route-2", stops: []string{"Abdullahpur", "Mirpur 10", "Agargaon", "Bijoy Sarani", "Shahbagh", "Motijheel"}},
}

type vehicleSeed struct {
	number   string
	capacity int
	status   domain.VehicleStatus
}

var vehicleSeeds = []vehicleSeed{
	{number: "NR-208", capacity: 32, status: domain.VehicleStatusAvailable},
	{number: "NR-331", capacity: 28, status: domain.VehicleStatusAvailable},
	{number: "NR-219", capacity: 30, status: domain.VehicleStatusInService},
	{number: "NR-514", capacity: 36, status: domain.VehicleStatusAvailable},
}

type driverSeed struct {
	name    string
	email   string
	license string
	vehicle string
}

var driverSeeds = []driverSeed{
	{name: "Shafiul Islam", email: "shafiul.islam@iut-dhaka.edu", license: "DL-1021", vehicle: "NR-208"},
	{name: "Imran Hossain", email: "imran.hossain@iut-dhaka.edu", license: "DL-1045", vehicle: "NR-331"},
	{name: "Sabbir Ahmed", email: "sabbir.ahmed@iut-dhaka.edu", license: "DL-1206", vehicle: "NR-219"},
	{name: "Nazia Rahman", email: "nazia.rahman@iut-dhaka.edu", license: "DL-1110", vehicle: "NR-514"},
}

type tripSeed struct {
	route   string
	start   domain.ClockTime
	status  domain.TripStatus
	vehicle string
}

var tripSeeds = []tripSeed{
	{route: "Route-1", start: domain.ClockTime{Hour: 7, Minute: 30}, status: domain.TripStatusStarted, vehicle: "NR-208"},
	{route: "Route-1", start: domain.ClockTime{Hour: 8, Minute: 5}, status: domain.TripStatusScheduled, vehicle: "NR-219"},
	{route: "Route-2", start: domain.ClockTime{Hour: 8, Minute: 15}, status: domain.TripStatusStarted, vehicle: "NR-331"},
	{route: "Route-2", start: domain.ClockTime{Hour: 4, Minute: 45}, status: domain.TripStatusScheduled, vehicle: "NR-514"},
}

// UserProvisioner creates accounts out of band. *accounts.Service satisfies it.
type UserProvisioner interface {
	EnsureUser(ctx context.Context, in accounts.EnsureUserInput) (domain.User, bool, error)
}

// Officer is the transport officer account to provision. An empty Email skips it.
type Officer struct {
	Email    string
	Password string
	FullName string
}

// Report counts the rows each run created.
type Report struct {
	Users    int
	Routes   int
	Stops    int
	Vehicles int
	Drivers  int
	Trips    int
}

type Seeder struct {
	users  UserProvisioner
	routes routerepo.Repository
	trips  triprepo.Repository
	clk    clockport.Clock
	loc    *time.Location
	log    logrus.FieldLogger

	newID func() string
}

func New(users UserProvisioner, routes routerepo.Repository, trips triprepo.Repository, clk clockport.Clock, loc *time.Location, log logrus.FieldLogger) *Seeder {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Seeder{
		users:  users,
		routes: routes,
		trips:  trips,
		clk:    clk,
		loc:    loc,
		log:    log,
		newID:  uuid.NewString,
	}
}

func (s *Seeder) Run(ctx context.Context, officer Officer) (Report, error) {
	var rep Report
	now := s.clk.Now().UTC()

	if officer.Email != "" {
		name := officer.FullName
		if name == "" {
			name = "Transport Officer"
		}
		_, created, err := s.users.EnsureUser(ctx, accounts.EnsureUserInput{
			Email:    officer.Email,
			Password: officer.Password,
			FullName: name,
			Type:     domain.UserTypeStaff,
			Roles:    []domain.RoleName{domain.RoleNormalStaff, domain.RoleTransportOfficer},
		})
		if err != nil {
			return rep, fmt.Errorf("seed officer: %w", err)
		}
		if created {
			rep.Users++
		}
	}

	routeIDs := make(map[string]domain.RouteID, len(routeSeeds))
	for _, rs := range routeSeeds {
		id, created, err := s.ensureRoute(ctx, rs, now)
		if err != nil {
			return rep, fmt.Errorf("seed route %s: %w", rs.name, err)
		}
		if created {
			rep.Routes++
		}
		routeIDs[rs.name] = id
		for i, stop := range rs.stops {
			created, err := s.ensureStop(ctx, id, stop, i+1)
			if err != nil {
				return rep, fmt.Errorf("seed stop %s: %w", stop, err)
			}
			if created {
				rep.Stops++
			}
		}
	}

	vehicles := make(map[string]domain.VehicleID, len(vehicleSeeds))
	for _, vs := range vehicleSeeds {
		id, created, err := s.ensureVehicle(ctx, vs)
		if err != nil {
			return rep, fmt.Errorf("seed vehicle %s: %w", vs.number, err)
		}
		if created {
			rep.Vehicles++
		}
		vehicles[vs.number] = id
	}

	drivers := make(map[string]domain.UserID, len(driverSeeds))
	for _, ds := range driverSeeds {
		u, created, err := s.users.EnsureUser(ctx, accounts.EnsureUserInput{
			Email:    ds.email,
			Password: driverPassword,
			FullName: ds.name,
			Type:     domain.UserTypeDriver,
		})
		if err != nil {
			return rep, fmt.Errorf("seed driver user %s: %w", ds.email, err)
		}
		if created {
			rep.Users++
		}
		vid := vehicles[ds.vehicle]
		err = s.trips.CreateDriver(ctx, triprepo.Driver{UserID: u.ID, LicenseNumber: ds.license, VehicleID: &vid})
		switch {
		case err == nil:
			rep.Drivers++
		case errors.Is(err, triprepo.ErrAlreadyExists):
		default:
			return rep, fmt.Errorf("seed driver %s: %w", ds.license, err)
		}
		drivers[ds.vehicle] = u.ID
	}

	today := domain.DateOf(now.In(s.loc))
	existing, err := s.trips.ListByDate(ctx, today)
	if err != nil {
		return rep, fmt.Errorf("list today's trips: %w", err)
	}
	for _, ts := range tripSeeds {
		vid := vehicles[ts.vehicle]
		if hasTrip(existing, vid, ts.start) {
			continue
		}
		err := s.trips.Create(ctx, triprepo.Trip{
			ID:        domain.TripID(s.newID()),
			VehicleID: vid,
			DriverID:  drivers[ts.vehicle],
			RouteID:   routeIDs[ts.route],
			TripDate:  today,
			StartTime: ts.start,
			Status:    ts.status,
			CreatedAt: now,
		})
		if err != nil {
			return rep, fmt.Errorf("seed trip %s %s: %w", ts.route, ts.start, err)
		}
		rep.Trips++
	}

	s.log.WithFields(logrus.Fields{
		"users":    rep.Users,
		"routes":   rep.Routes,
		"stops":    rep.Stops,
		"vehicles": rep.Vehicles,
		"drivers":  rep.Drivers,
		"trips":    rep.Trips,
		"date":     today.Format(time.DateOnly),
	}).Info("seed complete")
	return rep, nil
}

func (s *Seeder) ensureRoute(ctx context.Context, rs routeSeed, now time.Time) (domain.RouteID, bool, error) {
	r, err := s.routes.GetRouteByName(ctx, rs.name)
	if err == nil {
		return r.ID, false, nil
	}
	if !errors.Is(err, routerepo.ErrNotFound) {
		return "", false, err
	}
	id := domain.RouteID(s.newID())
	err = s.routes.CreateRoute(ctx, routerepo.Route{
		ID:         id,
		Name:       rs.name,
		StartPoint: rs.stops[0],
		EndPoint:   rs.stops[len(rs.stops)-1],
		IsActive:   true,
		CreatedAt:  now,
	})
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (s *Seeder) ensureStop(ctx context.Context, routeID domain.RouteID, name string, seq int) (bool, error) {
	if _, err := s.routes.FindStopByName(ctx, name); err == nil {
		return false, nil
	} else if !errors.Is(err, routerepo.ErrNotFound) {
		return false, err
	}
	err := s.routes.AddStop(ctx, routerepo.Stop{
		ID:       domain.StopID(s.newID()),
		RouteID:  routeID,
		Name:     name,
		Sequence: seq,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Seeder) ensureVehicle(ctx context.Context, vs vehicleSeed) (domain.VehicleID, bool, error) {
	v, err := s.trips.GetVehicleByNumber(ctx, vs.number)
	if err == nil {
		return v.ID, false, nil
	}
	if !errors.Is(err, triprepo.ErrVehicleNotFound) {
		return "", false, err
	}
	id := domain.VehicleID(s.newID())
	if err := s.trips.CreateVehicle(ctx, triprepo.Vehicle{ID: id, Number: vs.number, Capacity: vs.capacity, Status: vs.status}); err != nil {
		return "", false, err
	}
	return id, true, nil
}

func hasTrip(ts []triprepo.Trip, vehicle domain.VehicleID, start domain.ClockTime) bool {
	for _, t := range ts {
		if t.VehicleID == vehicle && t.StartTime == start {
			return true
		}
	}
	return false
}
