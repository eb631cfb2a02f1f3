package availability

import (
	"context"
	"errors"
	"time"

	"github.com/campus-shuttle/transport-api/internal/app/apperr"
	"github.com/campus-shuttle/transport-api/internal/domain"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	"github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// Query selects trips by date range and route. A nil DateFrom means today.
type Query struct {
	DateFrom *time.Time
	DateTo   *time.Time
	RouteID  *domain.RouteID
}

// TripReader is the aggregated availability read.
type TripReader interface {
	ListAvailability(ctx context.Context, f triprepo.AvailabilityFilter) ([]triprepo.AvailabilityRow, error)
}

// UserDirectory confirms the caller exists.
type UserDirectory interface {
	GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error)
}

type Service struct {
	trips TripReader
	users UserDirectory
	clk   clockport.Clock
	loc   *time.Location
}

func NewService(trips TripReader, users UserDirectory, clk clockport.Clock, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{trips: trips, users: users, clk: clk, loc: loc}
}

// TripAvailability reports seats left per trip, ordered by date, start time, then trip id.
// AvailableSeats is not clamped, so an overbooked trip reports a negative number.
func (s *Service) TripAvailability(ctx context.Context, caller domain.UserID, q Query) ([]domain.TripAvailability, error) {
	if _, err := s.users.GetByID(ctx, caller); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return nil, apperr.Unauthenticated("USER_NOT_PROVISIONED", "No account exists for the authenticated subject.")
		}
		return nil, err
	}

	from := domain.DateOf(s.clk.Now().In(s.loc))
	if q.DateFrom != nil {
		from = domain.DateOf(*q.DateFrom)
	}
	f := triprepo.AvailabilityFilter{DateFrom: from, RouteID: q.RouteID}
	if q.DateTo != nil {
		to := domain.DateOf(*q.DateTo)
		if from.After(to) {
			return []domain.TripAvailability{}, nil
		}
		f.DateTo = &to
	}

	rows, err := s.trips.ListAvailability(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TripAvailability, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.TripAvailability{
			TripID:         r.Trip.ID,
			TripDate:       r.Trip.TripDate,
			StartTime:      r.Trip.StartTime,
			Status:         r.Trip.Status,
			RouteID:        r.Trip.RouteID,
			RouteName:      r.RouteName,
			VehicleID:      r.Trip.VehicleID,
			VehicleNumber:  r.VehicleNumber,
			DriverName:     r.DriverName,
			TotalCapacity:  r.Capacity,
			BookedSeats:    r.Booked,
			AvailableSeats: r.Capacity - r.Booked,
		})
	}
	return out, nil
}
