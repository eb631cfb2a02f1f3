package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/campus-shuttle/transport-api/internal/adapters/httpapi"
	memclock "github.com/campus-shuttle/transport-api/internal/adapters/memory/clock"
	memidempotency "github.com/campus-shuttle/transport-api/internal/adapters/memory/idempotency"
	memrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/routerepo"
	memseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/seatrepo"
	memsubscriptionrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/subscriptionrepo"
	memtriprepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/campus-shuttle/transport-api/internal/adapters/postgres/idempotency"
	pgrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/routerepo"
	pgseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/seatrepo"
	pgsubscriptionrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/subscriptionrepo"
	postgres_testutil "github.com/campus-shuttle/transport-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/userrepo"
	"github.com/campus-shuttle/transport-api/internal/adapters/seed"
	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/app/availability"
	"github.com/campus-shuttle/transport-api/internal/app/routes"
	"github.com/campus-shuttle/transport-api/internal/app/subscriptions"
	idempotencyport "github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
	routerepoport "github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	seatrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
	subscriptionrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
	triprepoport "github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
	userrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

const (
	officerEmail    = "to@iut-dhaka.edu"
	officerPassword = "officer-pass"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clk     *memclock.ManualClock
	users   userrepoport.Repository
	seats   seatrepoport.Repository
	seeded  seed.Report
}

// newTestServer wires the full stack over the chosen backend and seeds the reference fleet
// for 2025-06-10.
func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 6, 10, 0, 30, 0, 0, time.UTC))

	var (
		userRepo  userrepoport.Repository
		routeRepo routerepoport.Repository
		seatRepo  seatrepoport.Repository
		tripRepo  triprepoport.Repository
		subRepo   subscriptionrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		userRepo = pguserrepo.NewRepo(pool)
		routeRepo = pgrouterepo.NewRepo(pool)
		seatRepo = pgseatrepo.NewRepo(pool)
		tripRepo = pgtriprepo.NewRepo(pool)
		subRepo = pgsubscriptionrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		users := memuserrepo.NewRepo()
		rts := memrouterepo.NewRepo()
		seats := memseatrepo.NewRepo()
		userRepo, routeRepo, seatRepo = users, rts, seats
		tripRepo = memtriprepo.NewRepo(rts, users, seats)
		subRepo = memsubscriptionrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	acct := accounts.NewService(userRepo, clk, nil)
	acct.HashCost = bcrypt.MinCost

	log := logrus.New()
	log.SetOutput(io.Discard)
	rep, err := seed.New(acct, routeRepo, tripRepo, clk, nil, log).Run(context.Background(), seed.Officer{
		Email:    officerEmail,
		Password: officerPassword,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	api := httpapi.NewServer(httpapi.Services{
		Accounts:      acct,
		Subscriptions: subscriptions.NewService(subRepo, userRepo, routeRepo, userRepo, clk, nil),
		Availability:  availability.NewService(tripRepo, userRepo, clk, nil),
		Routes:        routes.NewService(routeRepo),
	}, idemStore, clk)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware("")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW, Logger: log})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clk:     clk,
		users:   userRepo,
		seats:   seatRepo,
		seeded:  rep,
	}
}

// userID resolves a seeded or signed-up account to the subject the dev middleware expects.
func (s *testServer) userID(t *testing.T, email string) string {
	t.Helper()
	u, err := s.users.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("GetByEmail(%s): %v", email, err)
	}
	return string(u.ID)
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any) (int, []byte, http.Header) {
	t.Helper()
	return s.doJSONWithHeaders(t, method, path, subject, body, nil)
}

func (s *testServer) doJSONWithHeaders(t *testing.T, method string, path string, subject string, body any, hdr map[string]string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code      string         `json:"code"`
		Message   string         `json:"message"`
		Details   map[string]any `json:"details"`
		RequestId string         `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) errorResponse {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
	return got
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
