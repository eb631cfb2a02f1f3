package routes

import (
	"context"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
)

// Directory is the read side of the route store.
type Directory interface {
	ListRoutes(ctx context.Context) ([]routerepo.Route, error)
	ListStops(ctx context.Context, routeID domain.RouteID) ([]routerepo.Stop, error)
}

type Service struct {
	dir Directory
}

func NewService(dir Directory) *Service {
	return &Service{dir: dir}
}

// ListRoutes returns every route with its stops in boarding order.
func (s *Service) ListRoutes(ctx context.Context) ([]domain.Route, error) {
	rs, err := s.dir.ListRoutes(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Route, 0, len(rs))
	for _, r := range rs {
		stops, err := s.dir.ListStops(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		dr := domain.Route{
			ID:         r.ID,
			Name:       r.Name,
			StartPoint: r.StartPoint,
			EndPoint:   r.EndPoint,
			IsActive:   r.IsActive,
			Stops:      make([]domain.Stop, 0, len(stops)),
		}
		for _, st := range stops {
			dr.Stops = append(dr.Stops, domain.Stop{ID: st.ID, RouteID: st.RouteID, Name: st.Name, Sequence: st.Sequence})
		}
		out = append(out, dr)
	}
	return out, nil
}
