package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Fai/poc-fitness-assistant-ai/internal/adapters/repository"
	app "github.com/Fai/poc-fitness-assistant-ai/internal/app"
	"github.com/Fai/poc-fitness-assistant-ai/internal/config"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/goals"
	"github.com/Fai/poc-fitness-assistant-ai/internal/domain/model"
	"github.com/Fai/poc-fitness-assistant-ai/pkg/logger"
	"github.com/Fai/poc-fitness-assistant-ai/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since the logger isn't up yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.Init(cfg.LogLevel); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	log := logger.Get()

	engine := app.New(
		app.WithLogger(log.Named("engine")),
		app.WithStore(repository.NewMemStore(
			repository.WithShardCount(cfg.ShardCount),
		)),
		app.WithTracker(goals.New(
			goals.WithMilestonePercentages(cfg.MilestonePercentages),
		)),
		app.WithSummaryMaxAge(cfg.MaxSummaryRangeDays),
		app.WithDefaultZoneMethod(model.ZoneMethod(cfg.DefaultZoneMethod)),
	)
	// Expose metrics plus a readiness probe on the configured address.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		engine.MeasurementCount(r.Context())
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "starting metrics server", logger.String("addr", cfg.MetricsAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server failed: " + err.Error() + "\n")
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	log.Info(ctx, "shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "metrics server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "stopped")
}
