package routerepo

import (
	"context"
	"time"

	"github.com/campus-shuttle/transport-api/internal/domain"
)

type Route struct {
	ID         domain.RouteID
	Name       string
	StartPoint string
	EndPoint   string
	IsActive   bool

	CreatedAt time.Time
}

type Stop struct {
	ID       domain.StopID
	RouteID  domain.RouteID
	Name     string
	Sequence int
}

// StopLocation is a stop resolved together with the route that serves it.
type StopLocation struct {
	Stop      Stop
	RouteName string
}

// Repository is the stop/route directory.
//
// Stop names are unique across routes, compared case-insensitively.
type Repository interface {
	CreateRoute(ctx context.Context, r Route) error
	// AddStop fails with ErrNotFound for an unknown route and ErrAlreadyExists for a taken name.
	AddStop(ctx context.Context, s Stop) error

	GetRoute(ctx context.Context, id domain.RouteID) (Route, error)
	GetRouteByName(ctx context.Context, name string) (Route, error)
	// ListRoutes returns routes ordered by name.
	ListRoutes(ctx context.Context) ([]Route, error)
	// ListStops returns the route's stops ordered by sequence.
	ListStops(ctx context.Context, routeID domain.RouteID) ([]Stop, error)

	// FindStopByName performs a case-insensitive exact match.
	FindStopByName(ctx context.Context, name string) (StopLocation, error)
	// ListStopLocations returns every stop with its route name.
	ListStopLocations(ctx context.Context) ([]StopLocation, error)
}
