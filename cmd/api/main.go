package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/crimewatch/internal/auth"
	"github.com/geocoder89/crimewatch/internal/config"
	"github.com/geocoder89/crimewatch/internal/db"
	httpx "github.com/geocoder89/crimewatch/internal/http"
	"github.com/geocoder89/crimewatch/internal/inference"
	"github.com/geocoder89/crimewatch/internal/inference/onnx"
	"github.com/geocoder89/crimewatch/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	shutdownTracer := func(context.Context) error { return nil }
	if cfg.OTelEndpoint != "" {
		ctx, cancel := config.WithTimeout(5 * time.Second)
		fn, err := observability.InitTracer(ctx, observability.TracerConfig{
			ServiceName: observability.ServiceName,
			Endpoint:    cfg.OTelEndpoint,
			Env:         cfg.Env,
			SampleRatio: cfg.OTelSampleRatio,
		})
		cancel()
		if err != nil {
			log.Error("tracer init failed", "err", err)
		} else {
			shutdownTracer = fn
		}
	}

	// the classifier is loaded once; the service does not start without it
	normalizer := inference.NewNormalizer(inference.DefaultImageSize).WithMaxPixels(cfg.MaxImagePixels)
	classifier, err := onnx.Load(onnx.Config{
		ModelPath:   cfg.ModelPath,
		InputName:   cfg.ModelInputName,
		OutputName:  cfg.ModelOutputName,
		LibraryPath: cfg.ORTLibraryPath,
		InputShape:  normalizer.Shape(),
		NumClasses:  int64(len(inference.Categories)),
	})
	if err != nil {
		log.Error("model load failed", "err", err, "path", cfg.ModelPath)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	startCtx, cancelStart := config.WithTimeout(15 * time.Second)
	stores, err := openRecordStores(startCtx, cfg, prom, log)
	if err != nil {
		cancelStart()
		log.Error("record store failed", "err", err)
		os.Exit(1)
	}

	sessions, closeSessions, err := openSessionStore(startCtx, cfg, stores.pool, prom, reg, log)
	if err != nil {
		cancelStart()
		log.Error("session store failed", "err", err)
		os.Exit(1)
	}

	created, err := db.EnsureAdminUser(startCtx, stores.users, cfg)
	cancelStart()
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	gateway := inference.NewGateway(
		inference.GatewayConfig{Timeout: cfg.InferenceTimeout},
		normalizer,
		inference.NewLabelMapper(inference.Categories),
		classifier,
		log,
		prom,
	)

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Log:       log,
		Config:    cfg,
		Users:     stores.users,
		News:      stores.news,
		Incidents: stores.incidents,
		Sessions:  sessions,
		Tokens:    auth.NewManager(cfg.SecretKey, cfg.SessionTTL),
		Predictor: gateway,
		Ping:      stores.users.Ping,
		Metrics:   prom,
		Gatherer:  reg,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver, "sessions", cfg.SessionDriver)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}

		classifier.Close()
		closeSessions()
		stores.close(ctx)

		if err := shutdownTracer(ctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
