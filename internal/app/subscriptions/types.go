package subscriptions

import (
	"context"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// RequestInput is a subscription request. Months are kept as text so that "01" and "1"
// are both accepted; the HTTP layer renders JSON numbers into the same form.
type RequestInput struct {
	StopName   string
	StartMonth string
	EndMonth   string
	Year       int
}

// Details is a subscription enriched for display.
type Details struct {
	domain.Subscription

	// RouteName is empty when the stop has since been removed from the directory.
	RouteName string
	// RequesterName is only populated in the pending listing.
	RequesterName string
}

// UserDirectory resolves callers and requesters.
type UserDirectory interface {
	GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error)
}

// StopDirectory resolves stop names to their routes.
type StopDirectory interface {
	FindStopByName(ctx context.Context, name string) (routerepo.StopLocation, error)
	ListStopLocations(ctx context.Context) ([]routerepo.StopLocation, error)
}
