// Command api runs the InvoiceStudio HTTP service: the monday.com custom
// action endpoint for PDF export and the billing read surface behind it.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"invoicestudio/internal/api/handlers"
	"invoicestudio/internal/billing"
	"invoicestudio/internal/config"
	"invoicestudio/internal/core"
	"invoicestudio/internal/db"
	"invoicestudio/internal/monday"
	"invoicestudio/internal/types"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exports, cleanup, err := newExportRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	mondayClient := monday.NewClient(nil, cfg.Monday.APIURL, cfg.Monday.APIVersion, cfg.Monday.APIToken)

	plans := billing.NewService(cfg.AMP.BoardConfig(), mondayClient, billing.Fallback{
		Plan:    types.PlanState(cfg.AMP.FallbackPlan),
		UseMock: cfg.AMP.MockEnabled,
		Preset:  types.MockPreset(cfg.AMP.MockPreset),
	})

	server, err := core.NewServer(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing server: %w", err)
	}

	exportHandler := handlers.NewExportHandler(plans, exports, server.Responder, logger)
	planHandler := handlers.NewPlanHandler(plans, server.Responder, logger)
	server.V1RouteRegistrars = []core.RouteRegistrar{
		exportHandler.RegisterRoutes,
		planHandler.RegisterRoutes,
	}
	server.MetricsHandler = promhttp.Handler()
	server.MountRoutes()

	httpServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Server.Port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server",
			"port", cfg.Server.Port,
			"environment", cfg.Environment,
			"amp_configured", cfg.AMP.BoardConfig().Configured(),
			"mock_amp", cfg.AMP.MockEnabled,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down http server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down http server: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newLogger builds the process logger: JSON in deployed environments, text
// locally, level from configuration.
func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", cfg.Service)
}

// newExportRepository selects the export archive backend: PostgreSQL when a
// DATABASE_URL is configured, in-memory otherwise. The returned cleanup
// closes the pool at shutdown.
func newExportRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (db.ExportRepository, func(), error) {
	if cfg.Database.URL.Unmask() == "" {
		logger.Info("no database configured, using in-memory export archive")
		return db.NewMemoryExportRepo(), func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}

	repo, err := db.NewExportRepo(pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating export repository: %w", err)
	}

	return repo, pool.Close, nil
}
