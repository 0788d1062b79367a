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

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/adapters/http/api"
	"github.com/okian/bookpickr/internal/adapters/http/site"
	"github.com/okian/bookpickr/internal/adapters/http/swagger"
	"github.com/okian/bookpickr/internal/adapters/repository"
	app "github.com/okian/bookpickr/internal/app"
	"github.com/okian/bookpickr/internal/config"
	"github.com/okian/bookpickr/pkg/logger"
	"github.com/okian/bookpickr/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		_, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}
	if err := setupLogging(ctx, cfg); err != nil {
		_, _ = os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	err = run(ctx, cfg)
	if err != nil {
		logger.Get().Error(ctx, "server exited", logger.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		stop()
		os.Exit(1)
	}
}

// setupLogging re-initializes the logger in the configured format and level.
func setupLogging(ctx context.Context, cfg *config.Config) error {
	if err := logger.Init(logger.WithJSON(cfg.LogFormat == "json")); err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

// run wires the service and serves HTTP until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()

	store, err := repository.Open(ctx, repository.WithPath(cfg.StoragePath))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn(ctx, "store close failed", logger.Error(err))
		}
	}()

	svc := newService(cfg, newCatalog(cfg), store)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	metrics.StartSystemCollector(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

func newCatalog(cfg *config.Config) *catalog.Client {
	return catalog.New(catalog.FromConfig(cfg)...)
}

func newService(cfg *config.Config, cat app.Catalog, store repository.Store) *app.Service {
	return app.New(
		app.WithLogger(logger.Named("service")),
		app.WithCatalog(cat),
		app.WithStore(store),
		app.WithWorkerCount(cfg.PrefetchWorkers),
		app.WithQueueSize(cfg.PrefetchQueueSize),
		app.WithLeaderboardSize(cfg.LeaderboardSize),
		app.WithMaxLeaderboardLimit(cfg.MaxLeaderboardLimit),
		app.WithSubjectPageSize(cfg.SubjectPageSize),
		app.WithAuthorPoolLimit(cfg.AuthorPoolLimit),
		app.WithSuggestionLimit(cfg.AuthorSuggestionLimit),
	)
}

// newHandler registers docs, the embedded page and the API on one mux.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	site.Register(ctx, mux)
	api.NewServer(svc, svc, cfg.MaxLeaderboardLimit).Register(ctx, mux)
	return api.RequestIDMiddleware(api.AccessLogMiddleware(mux))
}

// startServiceMetricsUpdater refreshes service gauges on a fixed interval.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateServiceMetrics pushes service stats into the gauges.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if rounds, ok := stats["rounds"].(int); ok {
		metrics.UpdateRounds(rounds)
	}
}
