// Package service provides the snapshot service behind the HTTP API: it
// validates a request, bounds concurrency and runs one Collector per call.
package service

import (
	"context"
	"errors"
	"runtime"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/vesselsnap/internal/adapters/stream"
	"github.com/okian/vesselsnap/internal/domain/model"
	"github.com/okian/vesselsnap/internal/domain/normalize"
	"github.com/okian/vesselsnap/pkg/logger"
	"github.com/okian/vesselsnap/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultStreamURL     = "wss://stream.aisstream.io/v0/stream"
	defaultWindow        = 6 * time.Second
	defaultMinWindow     = 500 * time.Millisecond
	defaultMaxWindow     = 12 * time.Second
	defaultMaxConcurrent = 16
)

// Snapshot is the answer to one Snapshot call.
type Snapshot struct {
	ID        string
	Box       model.BoundingBox
	Window    time.Duration
	Positions []model.Position
	Partial   bool
	State     State
	Stats     CollectStats
	StartedAt time.Time
	Elapsed   time.Duration
}

// Service implements the API dependencies for vessel snapshots.
type Service struct {
	mu sync.RWMutex

	// Core components
	dialer     stream.Dialer
	normalizer *normalize.Normalizer
	slots      chan struct{}

	// Configuration
	streamURL        string
	apiKey           string
	messageTypes     []string
	handshakeTimeout time.Duration
	closeTimeout     time.Duration
	defaultWindow    time.Duration
	minWindow        time.Duration
	maxWindow        time.Duration
	frameBuffer      int
	maxVessels       int
	maxConcurrent    int

	// State
	started        bool
	total          atomic.Int64
	failed         atomic.Int64
	inFlight       atomic.Int64
	lastVessels    atomic.Int64
	lastSnapshotAt atomic.Int64 // unix ms

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		streamURL:        defaultStreamURL,
		handshakeTimeout: defaultHandshakeTimeout,
		closeTimeout:     defaultCloseTimeout,
		defaultWindow:    defaultWindow,
		minWindow:        defaultMinWindow,
		maxWindow:        defaultMaxWindow,
		frameBuffer:      defaultFrameBuffer,
		maxConcurrent:    defaultMaxConcurrent,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.dialer == nil {
		s.dialer = stream.NewWebSocketDialer()
	}
	if s.normalizer == nil {
		s.normalizer = normalize.New()
	}
	s.slots = make(chan struct{}, s.maxConcurrent)

	if s.apiKey == "" {
		// Not fatal: health and docs still work, snapshots answer with an error.
		s.logger.Warn(ctx, "no upstream API key configured; snapshots will fail")
	}

	s.started = true
	s.logger.Info(ctx, "snapshot service started",
		logger.String("streamURL", s.streamURL),
		logger.Duration("defaultWindow", s.defaultWindow),
		logger.Duration("minWindow", s.minWindow),
		logger.Duration("maxWindow", s.maxWindow),
		logger.Int("maxConcurrent", s.maxConcurrent),
	)

	return nil
}

// Stop marks the service stopped. In-flight snapshots finish on their own
// since every one of them is bounded by its window.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "snapshot service stopped")
}

// DefaultWindow returns the window used when a request names none.
func (s *Service) DefaultWindow() time.Duration { return s.defaultWindow }

// ClampWindow fits w into the configured range. Zero or negative means the
// default window.
func (s *Service) ClampWindow(w time.Duration) time.Duration {
	if w <= 0 {
		w = s.defaultWindow
	}
	return min(max(w, s.minWindow), s.maxWindow)
}

// Snapshot collects the freshest position per vessel inside box for the
// (clamped) window. Records come back sorted by identity key.
func (s *Service) Snapshot(ctx context.Context, box model.BoundingBox, window time.Duration) (Snapshot, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return Snapshot{}, ErrNotStarted
	}

	snap := Snapshot{
		ID:        uuid.NewString(),
		Box:       box,
		Window:    s.ClampWindow(window),
		StartedAt: time.Now(),
	}
	log := s.logger.With(logger.String("snapshot", snap.ID))

	if s.apiKey == "" {
		s.record(snap, metrics.OutcomeCredentialsMissing)
		return snap, ErrCredentialsMissing
	}

	select {
	case s.slots <- struct{}{}:
		defer func() { <-s.slots }()
	default:
		metrics.RecordSnapshotRejected()
		log.Warn(ctx, "snapshot rejected, limit reached", logger.Int("maxConcurrent", s.maxConcurrent))
		return snap, ErrBusy
	}

	s.inFlight.Add(1)
	metrics.AddSnapshotsInFlight(1)
	defer func() {
		s.inFlight.Add(-1)
		metrics.AddSnapshotsInFlight(-1)
	}()

	log.Debug(ctx, "snapshot started",
		logger.Any("box", box),
		logger.Int64("windowMs", snap.Window.Milliseconds()),
	)

	c := NewCollector(s.dialer, s.streamURL, s.apiKey, box, snap.Window,
		WithCollectorMessageTypes(s.messageTypes),
		WithCollectorTimeouts(s.handshakeTimeout, s.closeTimeout),
		WithCollectorFrameBuffer(s.frameBuffer),
		WithCollectorMaxVessels(s.maxVessels),
		WithCollectorNormalizer(s.normalizer),
		WithCollectorLogger(log.Named("collector")),
	)
	res, err := c.Run(ctx)

	snap.State = res.State
	snap.Stats = res.Stats
	snap.Partial = res.Partial
	snap.Positions = sortPositions(res.Positions)
	snap.Elapsed = time.Since(snap.StartedAt)

	outcome := outcomeOf(res, err)
	s.record(snap, outcome)

	if err != nil {
		log.Warn(ctx, "snapshot failed",
			logger.String("outcome", outcome),
			logger.String("state", res.State.String()),
			logger.Error(err),
		)
		return snap, err
	}

	log.Info(ctx, "snapshot complete",
		logger.Int("count", len(snap.Positions)),
		logger.Bool("partial", snap.Partial),
		logger.Int("frames", res.Stats.Frames),
		logger.Int("outsideBox", res.Stats.OutsideBox),
		logger.Duration("elapsed", snap.Elapsed),
	)
	return snap, nil
}

func (s *Service) record(snap Snapshot, outcome string) {
	s.total.Add(1)
	if outcome != metrics.OutcomeOK && outcome != metrics.OutcomePartial {
		s.failed.Add(1)
	} else {
		s.lastVessels.Store(int64(len(snap.Positions)))
		s.lastSnapshotAt.Store(time.Now().UnixMilli())
	}
	metrics.RecordSnapshot(outcome, float64(time.Since(snap.StartedAt).Milliseconds()), len(snap.Positions))
}

func outcomeOf(res Result, err error) string {
	switch {
	case err == nil && res.Partial:
		return metrics.OutcomePartial
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, ErrUpstreamUnreachable):
		return metrics.OutcomeUnreachable
	case errors.Is(err, ErrUpstream):
		return metrics.OutcomeUpstreamError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return metrics.OutcomeCanceled
	default:
		return metrics.OutcomeUnreachable
	}
}

func sortPositions(ps []model.Position) []model.Position {
	if ps == nil {
		return []model.Position{}
	}
	slices.SortFunc(ps, func(a, b model.Position) int {
		return strings.Compare(a.Identity.Key(), b.Identity.Key())
	})
	return ps
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	goroutines := runtime.NumGoroutine()
	metrics.UpdateSystem(mem.HeapAlloc, goroutines)

	stats := map[string]interface{}{
		"started":         s.started,
		"streamURL":       s.streamURL,
		"credentials":     s.apiKey != "",
		"defaultWindowMs": s.defaultWindow.Milliseconds(),
		"minWindowMs":     s.minWindow.Milliseconds(),
		"maxWindowMs":     s.maxWindow.Milliseconds(),
		"maxConcurrent":   s.maxConcurrent,
		"inFlight":        s.inFlight.Load(),
		"snapshotsTotal":  s.total.Load(),
		"snapshotsFailed": s.failed.Load(),
		"lastVesselCount": s.lastVessels.Load(),
		"goroutines":      goroutines,
	}
	if at := s.lastSnapshotAt.Load(); at > 0 {
		stats["lastSnapshotAt"] = time.UnixMilli(at).UTC().Format(time.RFC3339)
	}

	return stats
}
