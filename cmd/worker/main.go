package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/db"
	"github.com/geocoder89/crimewatch/internal/observability"
	"github.com/geocoder89/crimewatch/internal/repo/postgres"
	"github.com/geocoder89/crimewatch/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
)

// The worker sweeps dead rows out of the postgres session table. Redis and
// in-memory sessions expire on their own and need no sweeping.
func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env).With("component", "session-sweeper")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	pool, err := db.NewPool(ctx, db.PoolConfigFrom(cfg.DBURL, cfg.DBMaxConns))
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Error("schema failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	sessions := postgres.NewSessionsRepo(pool, prom)

	w := worker.New(worker.Config{
		Interval:  cfg.SweepInterval,
		Retention: cfg.SessionRetention,
	}, sessions, log)

	probe := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           w.HealthHandler(pool),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := probe.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("probe server failed", "err", err)
		}
	}()

	log.Info("worker has started", "interval", cfg.SweepInterval.String(), "retention", cfg.SessionRetention.String())

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = probe.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
