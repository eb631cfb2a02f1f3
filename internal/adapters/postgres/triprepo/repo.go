package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) CreateVehicle(ctx context.Context, v triprepo.Vehicle) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(v.ID))
	if err != nil {
		return fmt.Errorf("invalid vehicle id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO vehicles (id, vehicle_number, capacity, status)
		VALUES ($1, $2, $3, $4)
	`, id, v.Number, v.Capacity, string(v.Status))
	if err != nil {
		if postgres.IsUniqueViolation(err, "") {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) GetVehicleByNumber(ctx context.Context, number string) (triprepo.Vehicle, error) {
	if r.pool == nil {
		return triprepo.Vehicle{}, errors.New("nil postgres pool")
	}
	var (
		id     uuid.UUID
		v      triprepo.Vehicle
		status string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, vehicle_number, capacity, status
		FROM vehicles
		WHERE vehicle_number = $1
	`, number).Scan(&id, &v.Number, &v.Capacity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return triprepo.Vehicle{}, triprepo.ErrVehicleNotFound
		}
		return triprepo.Vehicle{}, err
	}
	v.ID = domain.VehicleID(id.String())
	v.Status = domain.VehicleStatus(status)
	return v, nil
}

func (r *Repo) CreateDriver(ctx context.Context, d triprepo.Driver) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	userID, err := uuid.Parse(string(d.UserID))
	if err != nil {
		return fmt.Errorf("invalid driver user id: %w", err)
	}
	var vehicleID *uuid.UUID
	if d.VehicleID != nil {
		v, err := uuid.Parse(string(*d.VehicleID))
		if err != nil {
			return triprepo.ErrVehicleNotFound
		}
		vehicleID = &v
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO drivers (user_id, license_number, vehicle_id)
		VALUES ($1, $2, $3)
	`, userID, d.LicenseNumber, vehicleID)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "drivers_pkey"):
			return triprepo.ErrAlreadyExists
		case postgres.IsForeignKeyViolation(err, "drivers_vehicle_fk"):
			return triprepo.ErrVehicleNotFound
		case postgres.IsForeignKeyViolation(err, "drivers_user_fk"):
			return triprepo.ErrDriverNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tripID, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	vehicleID, err := uuid.Parse(string(t.VehicleID))
	if err != nil {
		return triprepo.ErrVehicleNotFound
	}
	driverID, err := uuid.Parse(string(t.DriverID))
	if err != nil {
		return triprepo.ErrDriverNotFound
	}
	routeID, err := uuid.Parse(string(t.RouteID))
	if err != nil {
		return fmt.Errorf("invalid route id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO trips (
			id,
			vehicle_id,
			driver_id,
			route_id,
			trip_date,
			start_time,
			status,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		tripID,
		vehicleID,
		driverID,
		routeID,
		domain.DateOf(t.TripDate),
		clockToPg(t.StartTime),
		string(t.Status),
		t.CreatedAt.UTC(),
	)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "trips_pkey"):
			return triprepo.ErrAlreadyExists
		case postgres.IsForeignKeyViolation(err, "trips_vehicle_fk"):
			return triprepo.ErrVehicleNotFound
		case postgres.IsForeignKeyViolation(err, "trips_driver_fk"):
			return triprepo.ErrDriverNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) ListByDate(ctx context.Context, day time.Time) ([]triprepo.Trip, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectTrip+`
		WHERE t.trip_date = $1
		ORDER BY t.start_time, t.id
	`, domain.DateOf(day))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0)
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) ListAvailability(ctx context.Context, f triprepo.AvailabilityFilter) ([]triprepo.AvailabilityRow, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	var to *time.Time
	if f.DateTo != nil {
		v := domain.DateOf(*f.DateTo)
		to = &v
	}
	var routeID *uuid.UUID
	if f.RouteID != nil {
		v, err := uuid.Parse(string(*f.RouteID))
		if err != nil {
			return []triprepo.AvailabilityRow{}, nil
		}
		routeID = &v
	}

	// Seat counts are aggregated once in a derived table rather than per trip.
	rows, err := r.pool.Query(ctx, `
		SELECT
			t.id, t.vehicle_id, t.driver_id, t.route_id, t.trip_date, t.start_time, t.status, t.created_at,
			rt.name,
			v.vehicle_number,
			v.capacity,
			u.full_name,
			COALESCE(b.booked, 0)
		FROM trips t
		JOIN routes rt ON rt.id = t.route_id
		JOIN vehicles v ON v.id = t.vehicle_id
		JOIN users u ON u.id = t.driver_id
		LEFT JOIN (
			SELECT trip_id, count(*) AS booked
			FROM seat_allocations
			GROUP BY trip_id
		) b ON b.trip_id = t.id
		WHERE t.trip_date >= $1
		  AND ($2::date IS NULL OR t.trip_date <= $2::date)
		  AND ($3::uuid IS NULL OR t.route_id = $3::uuid)
		ORDER BY t.trip_date, t.start_time, t.id
	`, domain.DateOf(f.DateFrom), to, routeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triprepo.AvailabilityRow, 0)
	for rows.Next() {
		var (
			tr     tripRow
			row    triprepo.AvailabilityRow
			booked int64
		)
		if err := rows.Scan(
			&tr.id, &tr.vehicleID, &tr.driverID, &tr.routeID, &tr.tripDate, &tr.startTime, &tr.status, &tr.createdAt,
			&row.RouteName,
			&row.VehicleNumber,
			&row.Capacity,
			&row.DriverName,
			&booked,
		); err != nil {
			return nil, err
		}
		row.Trip = tr.toTrip()
		row.Booked = int(booked)
		out = append(out, row)
	}
	return out, rows.Err()
}

const selectTrip = `
	SELECT t.id, t.vehicle_id, t.driver_id, t.route_id, t.trip_date, t.start_time, t.status, t.created_at
	FROM trips t`

type tripRow struct {
	id, vehicleID, driverID, routeID uuid.UUID
	tripDate                         time.Time
	startTime                        pgtype.Time
	status                           string
	createdAt                        time.Time
}

func (tr tripRow) toTrip() triprepo.Trip {
	return triprepo.Trip{
		ID:        domain.TripID(tr.id.String()),
		VehicleID: domain.VehicleID(tr.vehicleID.String()),
		DriverID:  domain.UserID(tr.driverID.String()),
		RouteID:   domain.RouteID(tr.routeID.String()),
		TripDate:  domain.DateOf(tr.tripDate),
		StartTime: clockFromPg(tr.startTime),
		Status:    domain.TripStatus(tr.status),
		CreatedAt: tr.createdAt.UTC(),
	}
}

func scanTrip(row pgx.Row) (triprepo.Trip, error) {
	var tr tripRow
	if err := row.Scan(&tr.id, &tr.vehicleID, &tr.driverID, &tr.routeID, &tr.tripDate, &tr.startTime, &tr.status, &tr.createdAt); err != nil {
		return triprepo.Trip{}, err
	}
	return tr.toTrip(), nil
}

func clockToPg(c domain.ClockTime) pgtype.Time {
	return pgtype.Time{Microseconds: c.SinceMidnight().Microseconds(), Valid: true}
}

func clockFromPg(t pgtype.Time) domain.ClockTime {
	if !t.Valid {
		return domain.ClockTime{}
	}
	d := time.Duration(t.Microseconds) * time.Microsecond
	return domain.ClockTime{Hour: int(d / time.Hour), Minute: int((d % time.Hour) / time.Minute)}
}
