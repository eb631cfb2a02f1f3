package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/campus-shuttle/transport-api/internal/platform/bootstrap"
	"github.com/campus-shuttle/transport-api/internal/platform/config"
	"github.com/campus-shuttle/transport-api/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid config: %v", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("invalid logging config: %v", err)
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log, bootstrap.Options{Migrate: true})
	if err != nil {
		log.WithError(err).Fatal("startup failed")
	}
	defer app.Close()

	if cfg.Seed.OnStart {
		if _, err := app.Seeder().Run(ctx, app.Officer()); err != nil {
			log.WithError(err).Fatal("seed failed")
		}
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{
			"addr":    cfg.Addr(),
			"storage": cfg.Storage.Backend,
			"auth":    cfg.Auth.Mode,
		}).Info("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("listen")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
