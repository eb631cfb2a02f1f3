package userrepo

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
	"github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

// Repo is a Postgres implementation of userrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return fmt.Errorf("invalid user id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (
			id,
			email,
			password_hash,
			full_name,
			user_type,
			last_login_at,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		id,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.FullName,
		string(u.Type),
		utcPtr(u.LastLoginAt),
		u.CreatedAt.UTC(),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		switch {
		case postgres.IsUniqueViolation(err, "users_pkey"):
			return userrepo.ErrAlreadyExists
		case postgres.IsUniqueViolation(err, "users_email_unique"):
			return userrepo.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *Repo) Update(ctx context.Context, u userrepo.User) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(u.ID))
	if err != nil {
		return userrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $2,
		    password_hash = $3,
		    full_name = $4,
		    user_type = $5,
		    last_login_at = $6,
		    updated_at = $7
		WHERE id = $1
	`,
		id,
		domain.NormalizeEmail(u.Email),
		u.PasswordHash,
		u.FullName,
		string(u.Type),
		utcPtr(u.LastLoginAt),
		u.UpdatedAt.UTC(),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "users_email_unique") {
			return userrepo.ErrEmailTaken
		}
		return err
	}
	if ct.RowsAffected() == 0 {
		return userrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, uid))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (userrepo.User, error) {
	if r.pool == nil {
		return userrepo.User{}, errors.New("nil postgres pool")
	}
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE lower(email) = $1`, domain.NormalizeEmail(email)))
}

func (r *Repo) GrantRole(ctx context.Context, id domain.UserID, role domain.RoleName) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return userrepo.ErrNotFound
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role) DO NOTHING
	`, uid, string(role))
	if err != nil {
		if postgres.IsForeignKeyViolation(err, "user_roles_user_fk") {
			return userrepo.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *Repo) ListRoles(ctx context.Context, id domain.UserID) ([]domain.RoleName, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return []domain.RoleName{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT role
		FROM user_roles
		WHERE user_id = $1
		ORDER BY role
	`, uid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.RoleName, 0)
	for rows.Next() {
		var role string
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		out = append(out, domain.RoleName(role))
	}
	return out, rows.Err()
}

func (r *Repo) HasRole(ctx context.Context, id domain.UserID, role domain.RoleName) (bool, error) {
	if r.pool == nil {
		return false, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return false, nil
	}
	var ok bool
	err = r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2
		)
	`, uid, string(role)).Scan(&ok)
	return ok, err
}

const selectUser = `
	SELECT id, email, password_hash, full_name, user_type, last_login_at, created_at, updated_at
	FROM users`

func scanUser(row pgx.Row) (userrepo.User, error) {
	var (
		id        uuid.UUID
		u         userrepo.User
		userType  string
		lastLogin *time.Time
	)
	if err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.FullName, &userType, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return userrepo.User{}, userrepo.ErrNotFound
		}
		return userrepo.User{}, err
	}
	u.ID = domain.UserID(id.String())
	u.Type = domain.UserType(userType)
	u.LastLoginAt = utcPtr(lastLogin)
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
