package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/vesselsnap/internal/adapters/http/api"
	"github.com/okian/vesselsnap/internal/adapters/http/site"
	"github.com/okian/vesselsnap/internal/adapters/http/swagger"
	"github.com/okian/vesselsnap/internal/adapters/stream"
	app "github.com/okian/vesselsnap/internal/app"
	"github.com/okian/vesselsnap/internal/config"
	"github.com/okian/vesselsnap/pkg/logger"
	"github.com/okian/vesselsnap/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout           = 10 * time.Second
	idleTimeout           = 60 * time.Second
	readHeaderTimeout     = 5 * time.Second
	writeSlack            = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
	systemMetricsInterval = 10 * time.Second
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use fmt for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Initialize logging
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := newService(cfg, loggerInstance)
	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		return
	}
	defer svc.Stop()

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newHandler(ctx, cfg, svc),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout(cfg),
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// Start the HTTP server
	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout. In-flight snapshots are bounded by
	// their window, so they drain well within it.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// newService builds the snapshot service from configuration.
func newService(cfg *config.Config, l logger.Logger) *app.Service {
	opts := []app.Option{
		app.WithDialer(stream.NewWebSocketDialer(stream.WithReadLimit(cfg.ReadLimitBytes))),
		app.WithStreamURL(cfg.StreamURL),
		app.WithAPIKey(cfg.APIKey),
		app.WithMessageTypes(cfg.MessageTypes),
		app.WithHandshakeTimeout(cfg.HandshakeTimeout()),
		app.WithCloseTimeout(cfg.CloseTimeout()),
		app.WithWindowBounds(cfg.DefaultWindow(), cfg.MinWindow(), cfg.MaxWindow()),
		app.WithFrameBuffer(cfg.FrameBuffer),
		app.WithMaxVessels(cfg.MaxVessels),
		app.WithMaxConcurrent(cfg.MaxConcurrentSnapshots),
	}
	if l != nil {
		opts = append(opts, app.WithLogger(l.Named("service")))
	}
	return app.New(opts...)
}

// newHandler registers every route on a fresh mux.
func newHandler(ctx context.Context, cfg *config.Config, svc *app.Service) http.Handler {
	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes with the service dependency.
	apiServer := api.NewServer(svc, svc, cfg.DefaultBox())
	apiServer.Register(ctx, mux)

	// The viewer takes every path no other route claims.
	site.Register(ctx, mux)

	return mux
}

// writeTimeout leaves room for the longest snapshot a request may ask for.
func writeTimeout(cfg *config.Config) time.Duration {
	return cfg.HandshakeTimeout() + cfg.MaxWindow() + cfg.CloseTimeout() + writeSlack
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystem(m.HeapAlloc, runtime.NumGoroutine())
}
