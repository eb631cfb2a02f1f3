package routerepo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
)

// Repo is a Postgres implementation of routerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) CreateRoute(ctx context.Context, rt routerepo.Route) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(rt.ID))
	if err != nil {
		return fmt.Errorf("invalid route id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO routes (id, name, start_point, end_point, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, rt.Name, rt.StartPoint, rt.EndPoint, rt.IsActive, rt.CreatedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return routerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) AddStop(ctx context.Context, s routerepo.Stop) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid stop id: %w", err)
	}
	routeID, err := uuid.Parse(string(s.RouteID))
	if err != nil {
		return routerepo.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO route_stops (id, route_id, name, sequence)
		VALUES ($1, $2, $3, $4)
	`, id, routeID, strings.TrimSpace(s.Name), s.Sequence)
	if err != nil {
		switch {
		case postgres.IsForeignKeyViolation(err, "route_stops_route_fk"):
			return routerepo.ErrNotFound
		case postgres.IsUniqueViolation(err, ""):
			return routerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetRoute(ctx context.Context, id domain.RouteID) (routerepo.Route, error) {
	if r.pool == nil {
		return routerepo.Route{}, errors.New("nil postgres pool")
	}
	rid, err := uuid.Parse(string(id))
	if err != nil {
		return routerepo.Route{}, routerepo.ErrNotFound
	}
	return scanRoute(r.pool.QueryRow(ctx, selectRoute+` WHERE id = $1`, rid))
}

func (r *Repo) GetRouteByName(ctx context.Context, name string) (routerepo.Route, error) {
	if r.pool == nil {
		return routerepo.Route{}, errors.New("nil postgres pool")
	}
	return scanRoute(r.pool.QueryRow(ctx, selectRoute+` WHERE lower(name) = lower($1)`, strings.TrimSpace(name)))
}

func (r *Repo) ListRoutes(ctx context.Context) ([]routerepo.Route, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectRoute+` ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]routerepo.Route, 0)
	for rows.Next() {
		rt, err := scanRoute(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}

func (r *Repo) ListStops(ctx context.Context, routeID domain.RouteID) ([]routerepo.Stop, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rid, err := uuid.Parse(string(routeID))
	if err != nil {
		return []routerepo.Stop{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, route_id, name, sequence
		FROM route_stops
		WHERE route_id = $1
		ORDER BY sequence, id
	`, rid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]routerepo.Stop, 0)
	for rows.Next() {
		s, err := scanStop(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) FindStopByName(ctx context.Context, name string) (routerepo.StopLocation, error) {
	if r.pool == nil {
		return routerepo.StopLocation{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, selectStopLocation+` WHERE lower(s.name) = lower($1)`, strings.TrimSpace(name))
	loc, err := scanStopLocation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return routerepo.StopLocation{}, routerepo.ErrNotFound
		}
		return routerepo.StopLocation{}, err
	}
	return loc, nil
}

func (r *Repo) ListStopLocations(ctx context.Context) ([]routerepo.StopLocation, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectStopLocation+` ORDER BY rt.name, s.sequence, s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]routerepo.StopLocation, 0)
	for rows.Next() {
		loc, err := scanStopLocation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

const selectRoute = `
	SELECT id, name, start_point, end_point, is_active, created_at
	FROM routes`

const selectStopLocation = `
	SELECT s.id, s.route_id, s.name, s.sequence, rt.name
	FROM route_stops s
	JOIN routes rt ON rt.id = s.route_id`

func scanRoute(row pgx.Row) (routerepo.Route, error) {
	var (
		id uuid.UUID
		rt routerepo.Route
	)
	if err := row.Scan(&id, &rt.Name, &rt.StartPoint, &rt.EndPoint, &rt.IsActive, &rt.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return routerepo.Route{}, routerepo.ErrNotFound
		}
		return routerepo.Route{}, err
	}
	rt.ID = domain.RouteID(id.String())
	rt.CreatedAt = rt.CreatedAt.UTC()
	return rt, nil
}

func scanStop(row pgx.Row) (routerepo.Stop, error) {
	var (
		id, routeID uuid.UUID
		s           routerepo.Stop
	)
	if err := row.Scan(&id, &routeID, &s.Name, &s.Sequence); err != nil {
		return routerepo.Stop{}, err
	}
	s.ID = domain.StopID(id.String())
	s.RouteID = domain.RouteID(routeID.String())
	return s, nil
}

func scanStopLocation(row pgx.Row) (routerepo.StopLocation, error) {
	var (
		id, routeID uuid.UUID
		loc         routerepo.StopLocation
	)
	if err := row.Scan(&id, &routeID, &loc.Stop.Name, &loc.Stop.Sequence, &loc.RouteName); err != nil {
		return routerepo.StopLocation{}, err
	}
	loc.Stop.ID = domain.StopID(id.String())
	loc.Stop.RouteID = domain.RouteID(routeID.String())
	return loc, nil
}
