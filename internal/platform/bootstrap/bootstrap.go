// Package bootstrap assembles repositories, services and the HTTP handler from Config.
// cmd/api and cmd/transportctl share it.
package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-shuttle/transport-api/internal/adapters/httpapi"
	memidempotency "github.com/campus-shuttle/transport-api/internal/adapters/memory/idempotency"
	memrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/routerepo"
	memseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/seatrepo"
	memsubscriptionrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/subscriptionrepo"
	memtriprepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/campus-shuttle/transport-api/internal/adapters/memory/userrepo"
	postgres "github.com/campus-shuttle/transport-api/internal/adapters/postgres"
	pgidempotency "github.com/campus-shuttle/transport-api/internal/adapters/postgres/idempotency"
	pgrouterepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/routerepo"
	pgseatrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/seatrepo"
	pgsubscriptionrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/subscriptionrepo"
	pgtriprepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/campus-shuttle/transport-api/internal/adapters/postgres/userrepo"
	"github.com/campus-shuttle/transport-api/internal/adapters/seed"
	"github.com/campus-shuttle/transport-api/internal/app/accounts"
	"github.com/campus-shuttle/transport-api/internal/app/availability"
	"github.com/campus-shuttle/transport-api/internal/app/routes"
	"github.com/campus-shuttle/transport-api/internal/app/subscriptions"
	"github.com/campus-shuttle/transport-api/internal/platform/auth/jwtverifier"
	"github.com/campus-shuttle/transport-api/internal/platform/auth/tokens"
	platformclock "github.com/campus-shuttle/transport-api/internal/platform/clock"
	"github.com/campus-shuttle/transport-api/internal/platform/config"
	clockport "github.com/campus-shuttle/transport-api/internal/ports/out/clock"
	idempotencyport "github.com/campus-shuttle/transport-api/internal/ports/out/idempotency"
	routerepoport "github.com/campus-shuttle/transport-api/internal/ports/out/routerepo"
	seatrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/seatrepo"
	subscriptionrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/subscriptionrepo"
	triprepoport "github.com/campus-shuttle/transport-api/internal/ports/out/triprepo"
	userrepoport "github.com/campus-shuttle/transport-api/internal/ports/out/userrepo"
)

type Repositories struct {
	Users         userrepoport.Repository
	Routes        routerepoport.Repository
	Trips         triprepoport.Repository
	Seats         seatrepoport.Repository
	Subscriptions subscriptionrepoport.Repository
	Idempotency   idempotencyport.Store
}

type Services struct {
	Accounts      *accounts.Service
	Subscriptions *subscriptions.Service
	Availability  *availability.Service
	Routes        *routes.Service
}

// App is a fully wired process. Close releases the database pool, if any.
type App struct {
	Config   config.Config
	Log      logrus.FieldLogger
	Clock    clockport.Clock
	Location *time.Location

	Repos    Repositories
	Services Services

	// Tokens is the local HS256 issuer; nil unless auth.mode is local.
	Tokens *tokens.HS256

	closers []func()
}

type Options struct {
	// Migrate applies pending migrations before the pool opens (postgres only).
	Migrate bool
	// Clock overrides the system clock.
	Clock clockport.Clock
}

func New(ctx context.Context, cfg config.Config, log logrus.FieldLogger, opts Options) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	clk := opts.Clock
	if clk == nil {
		clk = platformclock.NewSystemClock()
	}
	a := &App{Config: cfg, Log: log, Clock: clk, Location: loc}

	switch cfg.Storage.Backend {
	case "postgres":
		if opts.Migrate {
			if err := postgres.Migrate(cfg.Database.URL); err != nil {
				return nil, fmt.Errorf("migrate: %w", err)
			}
			log.Info("migrations applied")
		}
		pool, err := postgres.NewPool(ctx, cfg.Database.URL, postgres.PoolOptions{
			MaxConns:       cfg.Database.MaxConns,
			ConnectTimeout: 10 * time.Second,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		a.Repos = Repositories{
			Users:         pguserrepo.NewRepo(pool),
			Routes:        pgrouterepo.NewRepo(pool),
			Trips:         pgtriprepo.NewRepo(pool),
			Seats:         pgseatrepo.NewRepo(pool),
			Subscriptions: pgsubscriptionrepo.NewRepo(pool),
			Idempotency:   pgidempotency.NewStore(pool),
		}
	default:
		users := memuserrepo.NewRepo()
		rts := memrouterepo.NewRepo()
		seats := memseatrepo.NewRepo()
		a.Repos = Repositories{
			Users:         users,
			Routes:        rts,
			Trips:         memtriprepo.NewRepo(rts, users, seats),
			Seats:         seats,
			Subscriptions: memsubscriptionrepo.NewRepo(),
			Idempotency:   memidempotency.NewStore(),
		}
	}

	var issuer accounts.TokenIssuer
	if cfg.Auth.Mode == "local" {
		hs, err := tokens.NewHS256(tokens.Config{
			Secret: cfg.Auth.Local.Secret,
			Issuer: cfg.Auth.Local.Issuer,
			TTL:    cfg.Auth.Local.TTL,
			Leeway: cfg.Auth.JWT.ClockSkew,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Tokens = hs
		issuer = hs
	}

	r := a.Repos
	a.Services = Services{
		Accounts:      accounts.NewService(r.Users, clk, issuer),
		Subscriptions: subscriptions.NewService(r.Subscriptions, r.Users, r.Routes, r.Users, clk, loc),
		Availability:  availability.NewService(r.Trips, r.Users, clk, loc),
		Routes:        routes.NewService(r.Routes),
	}
	return a, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) Seeder() *seed.Seeder {
	return seed.New(a.Services.Accounts, a.Repos.Routes, a.Repos.Trips, a.Clock, a.Location, a.Log)
}

// Officer is the transport officer account named in the seed configuration.
func (a *App) Officer() seed.Officer {
	return seed.Officer{
		Email:    a.Config.Seed.OfficerEmail,
		Password: a.Config.Seed.OfficerPassword,
		FullName: a.Config.Seed.OfficerName,
	}
}

// AuthMiddleware picks the bearer verifier for auth.mode.
func (a *App) AuthMiddleware() func(http.Handler) http.Handler {
	switch a.Config.Auth.Mode {
	case "dev":
		return httpapi.NewDevAuthMiddleware(a.Config.Auth.Dev.Subject)
	case "jwt":
		return httpapi.NewAuthMiddleware(jwtverifier.New(a.Config.Auth.JWT))
	default:
		return httpapi.NewAuthMiddleware(a.Tokens)
	}
}

func (a *App) Handler() http.Handler {
	api := httpapi.NewServer(httpapi.Services{
		Accounts:      a.Services.Accounts,
		Subscriptions: a.Services.Subscriptions,
		Availability:  a.Services.Availability,
		Routes:        a.Services.Routes,
	}, a.Repos.Idempotency, a.Clock)

	rl := a.Config.RateLimit.Login
	return httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{
		AuthMiddleware: a.AuthMiddleware(),
		Logger:         a.Log,
		AuthRateLimit:  httpapi.RateLimit{Requests: rl.Requests, Window: rl.Window, Burst: rl.Burst},
	})
}
