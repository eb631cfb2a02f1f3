package routerepo

import (
	"testing"

	"github.com/campus-shuttle/transport-api/internal/adapters/contracttest"
	"github.com/campus-shuttle/transport-api/internal/adapters/postgres/testutil"
	routerepoport "github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
)

func TestContract_PostgresRouteRepo(t *testing.T) {
	pool := testutil.OpenMigratedPool(t)

	contracttest.RunRouteRepo(t, func(t *testing.T) (routerepoport.Repository, func()) {
		t.Helper()
		return NewRepo(pool), nil
	})
}
