package subscriptionrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
	"github.com/campus-shuttle/transport-api/internal/domain"
	"github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
)

// Repo is a Postgres implementation of subscriptionrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *Repo) GetByID(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	if r.pool == nil {
		return subscriptionrepo.Subscription{}, errors.New("nil postgres pool")
	}
	return getByID(ctx, r.pool, id, false)
}

func (r *Repo) GetByUser(ctx context.Context, userID domain.UserID) (subscriptionrepo.Subscription, error) {
	if r.pool == nil {
		return subscriptionrepo.Subscription{}, errors.New("nil postgres pool")
	}
	return getByUser(ctx, r.pool, userID, false)
}

func (r *Repo) ListByStatus(ctx context.Context, status domain.SubscriptionStatus) ([]subscriptionrepo.Subscription, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, selectSubscription+`
		WHERE status = $1
		ORDER BY created_at, id
	`, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]subscriptionrepo.Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) DeleteByUser(ctx context.Context, userID domain.UserID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return subscriptionrepo.ErrNotFound
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		ct, err := tx.Exec(ctx, `DELETE FROM subscriptions WHERE user_id = $1`, uid)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return subscriptionrepo.ErrNotFound
		}
		return nil
	})
}

func (r *Repo) ExpireEndedBefore(ctx context.Context, day time.Time, at time.Time) (int, error) {
	if r.pool == nil {
		return 0, errors.New("nil postgres pool")
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE subscriptions
		SET status = $1,
		    updated_at = $2
		WHERE status = $3
		  AND end_date < $4
	`,
		string(domain.SubscriptionStatusExpired),
		at.UTC(),
		string(domain.SubscriptionStatusActive),
		dateOnly(day),
	)
	if err != nil {
		return 0, err
	}
	return int(ct.RowsAffected()), nil
}

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx subscriptionrepo.Tx) error) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &unitOfWork{tx: tx})
	})
}

type unitOfWork struct {
	tx pgx.Tx
}

func (u *unitOfWork) GetByUserForUpdate(ctx context.Context, userID domain.UserID) (subscriptionrepo.Subscription, error) {
	// The advisory lock serializes callers even when the user has no row to lock yet.
	if err := lockUser(ctx, u.tx, userID); err != nil {
		return subscriptionrepo.Subscription{}, err
	}
	return getByUser(ctx, u.tx, userID, true)
}

func (u *unitOfWork) GetByIDForUpdate(ctx context.Context, id domain.SubscriptionID) (subscriptionrepo.Subscription, error) {
	return getByID(ctx, u.tx, id, true)
}

func (u *unitOfWork) Insert(ctx context.Context, s subscriptionrepo.Subscription) error {
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return fmt.Errorf("invalid subscription id: %w", err)
	}
	userID, err := uuid.Parse(string(s.UserID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	if err := lockUser(ctx, u.tx, s.UserID); err != nil {
		return err
	}

	// A savepoint keeps the outer transaction usable after a constraint violation.
	nested, err := u.tx.Begin(ctx)
	if err != nil {
		return err
	}
	_, err = nested.Exec(ctx, `
		INSERT INTO subscriptions (
			id,
			user_id,
			stop_name,
			status,
			start_date,
			end_date,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id,
		userID,
		s.StopName,
		string(s.Status),
		dateOnly(s.StartDate),
		dateOnly(s.EndDate),
		s.CreatedAt.UTC(),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		_ = nested.Rollback(ctx)
		if postgres.IsUniqueViolation(err, "") {
			return subscriptionrepo.ErrConflict
		}
		return err
	}
	return nested.Commit(ctx)
}

func (u *unitOfWork) Update(ctx context.Context, s subscriptionrepo.Subscription) error {
	id, err := uuid.Parse(string(s.ID))
	if err != nil {
		return subscriptionrepo.ErrNotFound
	}
	ct, err := u.tx.Exec(ctx, `
		UPDATE subscriptions
		SET stop_name = $2,
		    status = $3,
		    start_date = $4,
		    end_date = $5,
		    updated_at = $6
		WHERE id = $1
	`,
		id,
		s.StopName,
		string(s.Status),
		dateOnly(s.StartDate),
		dateOnly(s.EndDate),
		s.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return subscriptionrepo.ErrNotFound
	}
	return nil
}

func lockUser(ctx context.Context, tx pgx.Tx, userID domain.UserID) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "subscription:"+string(userID))
	return err
}

const selectSubscription = `
	SELECT id, user_id, stop_name, status, start_date, end_date, created_at, updated_at
	FROM subscriptions`

func getByID(ctx context.Context, q querier, id domain.SubscriptionID, forUpdate bool) (subscriptionrepo.Subscription, error) {
	sid, err := uuid.Parse(string(id))
	if err != nil {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}
	sql := selectSubscription + ` WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanSubscription(q.QueryRow(ctx, sql, sid))
}

func getByUser(ctx context.Context, q querier, userID domain.UserID, forUpdate bool) (subscriptionrepo.Subscription, error) {
	uid, err := uuid.Parse(string(userID))
	if err != nil {
		return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
	}
	sql := selectSubscription + ` WHERE user_id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanSubscription(q.QueryRow(ctx, sql, uid))
}

func scanSubscription(row pgx.Row) (subscriptionrepo.Subscription, error) {
	var (
		id, userID uuid.UUID
		status     string
		s          subscriptionrepo.Subscription
	)
	if err := row.Scan(&id, &userID, &s.StopName, &status, &s.StartDate, &s.EndDate, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return subscriptionrepo.Subscription{}, subscriptionrepo.ErrNotFound
		}
		return subscriptionrepo.Subscription{}, err
	}
	s.ID = domain.SubscriptionID(id.String())
	s.UserID = domain.UserID(userID.String())
	s.Status = domain.SubscriptionStatus(status)
	s.StartDate = domain.DateOf(s.StartDate)
	s.EndDate = domain.DateOf(s.EndDate)
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}

// dateOnly drops the clock and zone so the value binds cleanly to a date column.
func dateOnly(t time.Time) time.Time {
	return domain.DateOf(t)
}
