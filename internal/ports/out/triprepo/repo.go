package triprepo

import (
	"context"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

type Vehicle struct {
	ID       domain.VehicleID
	Number   string
	Capacity int
	Status   domain.VehicleStatus
}

// Driver is the driving profile of a DRIVER user.
type Driver struct {
	UserID        domain.UserID
	LicenseNumber string
	// VehicleID is the vehicle the driver is assigned to, if any.
	VehicleID *domain.VehicleID
}

// Trip is the persistence shape used by the trip repository. It is not an HTTP DTO.
type Trip struct {
	ID        domain.TripID
	VehicleID domain.VehicleID
	DriverID  domain.UserID
	RouteID   domain.RouteID

	TripDate  time.Time // date-only
	StartTime domain.ClockTime
	Status    domain.TripStatus

	CreatedAt time.Time
}

// AvailabilityFilter selects trips for the availability query. DateFrom is inclusive and
// required; DateTo and RouteID are optional.
type AvailabilityFilter struct {
	DateFrom time.Time
	DateTo   *time.Time
	RouteID  *domain.RouteID
}

// AvailabilityRow is a trip joined with its route, vehicle and driver, plus the number of
// seat allocations held against it.
type AvailabilityRow struct {
	Trip Trip

	RouteName     string
	VehicleNumber string
	Capacity      int
	DriverName    string

	Booked int
}

// Repository provides access to trips and their supporting fleet records.
//
// Result ordering expectations:
// - ListAvailability returns rows ordered by TripDate, StartTime, then ID.
type Repository interface {
	CreateVehicle(ctx context.Context, v Vehicle) error
	GetVehicleByNumber(ctx context.Context, number string) (Vehicle, error)

	CreateDriver(ctx context.Context, d Driver) error

	Create(ctx context.Context, t Trip) error
	// ListByDate returns the trips scheduled on the given day.
	ListByDate(ctx context.Context, day time.Time) ([]Trip, error)

	// ListAvailability answers the availability query with a single aggregated read.
	ListAvailability(ctx context.Context, f AvailabilityFilter) ([]AvailabilityRow, error)
}
