package routerepo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
)

// Repo is an in-memory implementation of routerepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	routes       map[domain.RouteID]routerepo.Route
	stops        map[domain.StopID]routerepo.Stop
	stopByLower  map[string]domain.StopID
	routeByLower map[string]domain.RouteID
}

func NewRepo() *Repo {
	return &Repo{
		routes:       make(map[domain.RouteID]routerepo.Route),
		stops:        make(map[domain.StopID]routerepo.Stop),
		stopByLower:  make(map[string]domain.StopID),
		routeByLower: make(map[string]domain.RouteID),
	}
}

func (r *Repo) CreateRoute(ctx context.Context, rt routerepo.Route) error {
	_ = ctx
	key := strings.ToLower(rt.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[rt.ID]; ok || rt.ID == "" {
		return routerepo.ErrAlreadyExists
	}
	if _, ok := r.routeByLower[key]; ok {
		return routerepo.ErrAlreadyExists
	}
	r.routes[rt.ID] = rt
	r.routeByLower[key] = rt.ID
	return nil
}

func (r *Repo) AddStop(ctx context.Context, s routerepo.Stop) error {
	_ = ctx
	key := strings.ToLower(s.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.routes[s.RouteID]; !ok {
		return routerepo.ErrNotFound
	}
	if _, ok := r.stops[s.ID]; ok || s.ID == "" {
		return routerepo.ErrAlreadyExists
	}
	if _, ok := r.stopByLower[key]; ok {
		return routerepo.ErrAlreadyExists
	}
	r.stops[s.ID] = s
	r.stopByLower[key] = s.ID
	return nil
}

func (r *Repo) GetRoute(ctx context.Context, id domain.RouteID) (routerepo.Route, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[id]
	if !ok {
		return routerepo.Route{}, routerepo.ErrNotFound
	}
	return rt, nil
}

func (r *Repo) GetRouteByName(ctx context.Context, name string) (routerepo.Route, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.routeByLower[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return routerepo.Route{}, routerepo.ErrNotFound
	}
	return r.routes[id], nil
}

func (r *Repo) ListRoutes(ctx context.Context) ([]routerepo.Route, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]routerepo.Route, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repo) ListStops(ctx context.Context, routeID domain.RouteID) ([]routerepo.Stop, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]routerepo.Stop, 0)
	for _, s := range r.stops {
		if s.RouteID == routeID {
			out = append(out, s)
		}
	}
	sortStops(out)
	return out, nil
}

func (r *Repo) FindStopByName(ctx context.Context, name string) (routerepo.StopLocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.stopByLower[strings.ToLower(name)]
	if !ok {
		return routerepo.StopLocation{}, routerepo.ErrNotFound
	}
	s := r.stops[id]
	return routerepo.StopLocation{Stop: s, RouteName: r.routes[s.RouteID].Name}, nil
}

func (r *Repo) ListStopLocations(ctx context.Context) ([]routerepo.StopLocation, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	stops := make([]routerepo.Stop, 0, len(r.stops))
	for _, s := range r.stops {
		stops = append(stops, s)
	}
	sortStops(stops)
	out := make([]routerepo.StopLocation, 0, len(stops))
	for _, s := range stops {
		out = append(out, routerepo.StopLocation{Stop: s, RouteName: r.routes[s.RouteID].Name})
	}
	return out, nil
}

func sortStops(ss []routerepo.Stop) {
	sort.Slice(ss, func(i, j int) bool {
		if ss[i].RouteID != ss[j].RouteID {
			return ss[i].RouteID < ss[j].RouteID
		}
		if ss[i].Sequence == ss[j].Sequence {
			return ss[i].ID < ss[j].ID
		}
		return ss[i].Sequence < ss[j].Sequence
	})
}
