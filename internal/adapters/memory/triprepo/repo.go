package triprepo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// RouteReader resolves route names for the availability join.
type RouteReader interface {
	GetRoute(ctx context.Context, id domain.RouteID) (routerepo.Route, error)
}

// UserReader resolves driver names for the availability join.
type UserReader interface {
	GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error)
}

// SeatCounter tallies seat allocations per trip in one pass.
type SeatCounter interface {
	CountsByTrip(ctx context.Context) (map[domain.TripID]int, error)
}

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	routes RouteReader
	users  UserReader
	seats  SeatCounter

	mu              sync.RWMutex
	trips           map[domain.TripID]triprepo.Trip
	vehicles        map[domain.VehicleID]triprepo.Vehicle
	vehicleByNumber map[string]domain.VehicleID
	drivers         map[domain.UserID]triprepo.Driver
}

func NewRepo(routes RouteReader, users UserReader, seats SeatCounter) *Repo {
	return &Repo{
		routes:          routes,
		users:           users,
		seats:           seats,
		trips:           make(map[domain.TripID]triprepo.Trip),
		vehicles:        make(map[domain.VehicleID]triprepo.Vehicle),
		vehicleByNumber: make(map[string]domain.VehicleID),
		drivers:         make(map[domain.UserID]triprepo.Driver),
	}
}

func (r *Repo) CreateVehicle(ctx context.Context, v triprepo.Vehicle) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.vehicles[v.ID]; ok || v.ID == "" {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := r.vehicleByNumber[v.Number]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.vehicles[v.ID] = v
	r.vehicleByNumber[v.Number] = v.ID
	return nil
}

func (r *Repo) GetVehicleByNumber(ctx context.Context, number string) (triprepo.Vehicle, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.vehicleByNumber[number]
	if !ok {
		return triprepo.Vehicle{}, triprepo.ErrVehicleNotFound
	}
	return r.vehicles[id], nil
}

func (r *Repo) CreateDriver(ctx context.Context, d triprepo.Driver) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drivers[d.UserID]; ok {
		return triprepo.ErrAlreadyExists
	}
	if d.VehicleID != nil {
		if _, ok := r.vehicles[*d.VehicleID]; !ok {
			return triprepo.ErrVehicleNotFound
		}
	}
	r.drivers[d.UserID] = cloneDriver(d)
	return nil
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.trips[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	if _, ok := r.vehicles[t.VehicleID]; !ok {
		return triprepo.ErrVehicleNotFound
	}
	if _, ok := r.drivers[t.DriverID]; !ok {
		return triprepo.ErrDriverNotFound
	}
	t.TripDate = domain.DateOf(t.TripDate)
	r.trips[t.ID] = t
	return nil
}

func (r *Repo) ListByDate(ctx context.Context, day time.Time) ([]triprepo.Trip, error) {
	_ = ctx
	day = domain.DateOf(day)
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0)
	for _, t := range r.trips {
		if t.TripDate.Equal(day) {
			out = append(out, t)
		}
	}
	sortTrips(out)
	return out, nil
}

func (r *Repo) ListAvailability(ctx context.Context, f triprepo.AvailabilityFilter) ([]triprepo.AvailabilityRow, error) {
	from := domain.DateOf(f.DateFrom)
	var to *time.Time
	if f.DateTo != nil {
		v := domain.DateOf(*f.DateTo)
		to = &v
	}

	r.mu.RLock()
	selected := make([]triprepo.Trip, 0)
	vehicles := make(map[domain.VehicleID]triprepo.Vehicle, len(r.vehicles))
	for id, v := range r.vehicles {
		vehicles[id] = v
	}
	for _, t := range r.trips {
		if t.TripDate.Before(from) {
			continue
		}
		if to != nil && t.TripDate.After(*to) {
			continue
		}
		if f.RouteID != nil && t.RouteID != *f.RouteID {
			continue
		}
		selected = append(selected, t)
	}
	r.mu.RUnlock()

	sortTrips(selected)

	counts, err := r.seats.CountsByTrip(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]triprepo.AvailabilityRow, 0, len(selected))
	for _, t := range selected {
		v, ok := vehicles[t.VehicleID]
		if !ok {
			continue
		}
		rt, err := r.routes.GetRoute(ctx, t.RouteID)
		if err != nil {
			if errors.Is(err, routerepo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		driver, err := r.users.GetByID(ctx, t.DriverID)
		if err != nil {
			if errors.Is(err, userrepo.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, triprepo.AvailabilityRow{
			Trip:          t,
			RouteName:     rt.Name,
			VehicleNumber: v.Number,
			Capacity:      v.Capacity,
			DriverName:    driver.FullName,
			Booked:        counts[t.ID],
		})
	}
	return out, nil
}

func sortTrips(ts []triprepo.Trip) {
	sort.Slice(ts, func(i, j int) bool {
		if !ts[i].TripDate.Equal(ts[j].TripDate) {
			return ts[i].TripDate.Before(ts[j].TripDate)
		}
		if ts[i].StartTime != ts[j].StartTime {
			return ts[i].StartTime.Before(ts[j].StartTime)
		}
		return ts[i].ID < ts[j].ID
	})
}

func cloneDriver(d triprepo.Driver) triprepo.Driver {
	out := d
	if d.VehicleID != nil {
		v := *d.VehicleID
		out.VehicleID = &v
	}
	return out
}
