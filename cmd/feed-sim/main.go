package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/vesselsnap/internal/feedsim"
	"github.com/okian/vesselsnap/pkg/logger"
)

// Default configuration constants.
const (
	defaultAddr       = ":9090"
	defaultInterval   = 250 * time.Millisecond
	defaultFleetSize  = 12
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	var (
		addr      = flag.String("addr", defaultAddr, "Listen address")
		apiKey    = flag.String("key", "", "Required API key (empty accepts any)")
		interval  = flag.Duration("interval", defaultInterval, "Time between fleet ticks")
		fleetSize = flag.Int("vessels", defaultFleetSize, "Simulated vessels per connection")
		seed      = flag.Uint64("seed", 0, "Fleet seed (0 picks one from the clock)")
		format    = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Enable debug logging")
	)
	flag.Parse()

	if err := logger.Init(logger.WithFormat(*format)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	if *verbose {
		_ = logger.SetLevelString("debug")
	}
	log := logger.Named("feed-sim")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []feedsim.Option{
		feedsim.WithAPIKey(*apiKey),
		feedsim.WithInterval(*interval),
		feedsim.WithFleetSize(*fleetSize),
		feedsim.WithLogger(log),
	}
	if *seed != 0 {
		opts = append(opts, feedsim.WithSeed(*seed))
	}

	mux := http.NewServeMux()
	mux.Handle("/v0/stream", feedsim.New(opts...))

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info(ctx, "simulated feed listening",
			logger.String("addr", *addr),
			logger.String("url", "ws://localhost"+*addr+"/v0/stream"),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "feed server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn(ctx, "feed shutdown incomplete", logger.Error(err))
	}
}
