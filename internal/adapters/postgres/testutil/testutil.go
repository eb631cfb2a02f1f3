package testutil

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
)

const (
	containerImage    = "postgres:16-alpine"
	containerUser     = "shuttle"
	containerPassword = "shuttle"
	containerDB       = "shuttle_test"
)

var (
	containerOnce sync.Once
	containerDSN  string
	containerErr  error
)

// Enabled reports whether Postgres-backed tests should run.
//
// ITEST_POSTGRES_DSN points at an existing server. Otherwise ITEST_POSTGRES=1 or
// ITEST_BACKEND=postgres|all starts a throwaway container.
func Enabled() bool {
	if strings.TrimSpace(os.Getenv("ITEST_POSTGRES_DSN")) != "" {
		return true
	}
	if os.Getenv("ITEST_POSTGRES") == "1" {
		return true
	}
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "postgres", "all":
		return true
	}
	return false
}

// OpenMigratedPool returns a pool bound to a fresh, fully migrated schema. The schema is
// dropped when the test finishes, so tests in different packages never see each other's rows.
func OpenMigratedPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if !Enabled() {
		t.Skip("postgres tests disabled; set ITEST_POSTGRES_DSN or ITEST_POSTGRES=1")
	}

	baseDSN, err := serverDSN()
	if err != nil {
		t.Fatalf("postgres server: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	admin, err := postgres.NewPool(ctx, baseDSN, postgres.PoolOptions{MaxConns: 2})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer admin.Close()

	schema := "t_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		pool, err := postgres.NewPool(ctx, baseDSN, postgres.PoolOptions{MaxConns: 1})
		if err != nil {
			t.Logf("drop schema %s: %v", schema, err)
			return
		}
		defer pool.Close()
		if _, err := pool.Exec(ctx, "DROP SCHEMA "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
	})

	dsn, err := withSearchPath(baseDSN, schema)
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}
	if err := postgres.Migrate(dsn); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dsn, postgres.PoolOptions{MaxConns: 8})
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func serverDSN() (string, error) {
	if dsn := strings.TrimSpace(os.Getenv("ITEST_POSTGRES_DSN")); dsn != "" {
		return dsn, nil
	}
	containerOnce.Do(func() {
		containerDSN, containerErr = startContainer()
	})
	return containerDSN, containerErr
}

// startContainer runs one Postgres container per test binary. It is left for the
// testcontainers reaper to remove when the process exits.
func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        containerImage,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     containerUser,
			"POSTGRES_PASSWORD": containerPassword,
			"POSTGRES_DB":       containerDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	host, err := c.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		containerUser, containerPassword, host, port.Port(), containerDB), nil
}

// withSearchPath pins every connection opened from dsn to schema.
func withSearchPath(dsn, schema string) (string, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return "", err
		}
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
	return dsn + " search_path=" + schema, nil
}
