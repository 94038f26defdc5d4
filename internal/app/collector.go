package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/vesselsnap/internal/adapters/mq/queue"
	"github.com/okian/vesselsnap/internal/adapters/stream"
	"github.com/okian/vesselsnap/internal/domain/dedupe"
	"github.com/okian/vesselsnap/internal/domain/model"
	"github.com/okian/vesselsnap/internal/domain/normalize"
	"github.com/okian/vesselsnap/pkg/logger"
	"github.com/okian/vesselsnap/pkg/metrics"
)

// Default collector configuration constants.
const (
	defaultHandshakeTimeout = 5 * time.Second
	defaultCloseTimeout     = 2 * time.Second
	defaultFrameBuffer      = 1024
)

// Message result label for a frame that produced a position.
const resultPosition = "position"

// Position outcome label for a record outside the requested box.
const outcomeOutsideBox = "outside_box"

// completion is what ended a collection window.
type completion int

const (
	endTimer completion = iota
	endReader
	endUpstream
	endCanceled
)

var errCloseTimeout = errors.New("close handshake timed out")

// CollectStats counts what happened to frames during one window.
type CollectStats struct {
	Frames     int `json:"frames"`
	Positions  int `json:"positions"`
	OutsideBox int `json:"outsideBox"`
	Stale      int `json:"stale"`
	Dropped    int `json:"dropped"` // vessel cap plus frames refused by a closed queue
}

// Result is the outcome of one collection window.
type Result struct {
	Positions []model.Position
	// Partial is set when the window ended early on a transport error or
	// cancellation, so the aggregate may be missing vessels.
	Partial bool
	State   State
	Stats   CollectStats
}

// Collector runs one snapshot: it owns one upstream connection and one
// aggregator for its whole life and is not reusable.
type Collector struct {
	dialer           stream.Dialer
	normalizer       *normalize.Normalizer
	url              string
	apiKey           string
	messageTypes     []string
	box              model.BoundingBox
	window           time.Duration
	handshakeTimeout time.Duration
	closeTimeout     time.Duration
	frameBuffer      int
	maxVessels       int
	logger           logger.Logger
	now              func() time.Time

	state       State
	transitions []State
	stats       CollectStats
}

// CollectorOption applies a configuration option to the Collector.
type CollectorOption func(*Collector)

// WithCollectorMessageTypes restricts the subscription to the named report types.
func WithCollectorMessageTypes(types []string) CollectorOption {
	return func(c *Collector) {
		c.messageTypes = types
	}
}

// WithCollectorTimeouts bounds the opening and the closing handshakes.
func WithCollectorTimeouts(handshake, closing time.Duration) CollectorOption {
	return func(c *Collector) {
		if handshake > 0 {
			c.handshakeTimeout = handshake
		}
		if closing > 0 {
			c.closeTimeout = closing
		}
	}
}

// WithCollectorFrameBuffer sets how many frames may wait for the loop.
func WithCollectorFrameBuffer(size int) CollectorOption {
	return func(c *Collector) {
		if size > 0 {
			c.frameBuffer = size
		}
	}
}

// WithCollectorMaxVessels caps the aggregate. Zero means unbounded.
func WithCollectorMaxVessels(n int) CollectorOption {
	return func(c *Collector) {
		c.maxVessels = n
	}
}

// WithCollectorNormalizer replaces the default normalizer.
func WithCollectorNormalizer(n *normalize.Normalizer) CollectorOption {
	return func(c *Collector) {
		if n != nil {
			c.normalizer = n
		}
	}
}

// WithCollectorLogger sets the collector's logger.
func WithCollectorLogger(l logger.Logger) CollectorOption {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithCollectorClock replaces time.Now for receipt timestamps.
func WithCollectorClock(now func() time.Time) CollectorOption {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCollector prepares a collector for one box and window. The window is
// used as given; callers clamp it.
func NewCollector(dialer stream.Dialer, url, apiKey string, box model.BoundingBox, window time.Duration, opts ...CollectorOption) *Collector {
	c := &Collector{
		dialer:           dialer,
		normalizer:       normalize.New(),
		url:              url,
		apiKey:           apiKey,
		box:              box,
		window:           window,
		handshakeTimeout: defaultHandshakeTimeout,
		closeTimeout:     defaultCloseTimeout,
		frameBuffer:      defaultFrameBuffer,
		now:              time.Now,
		state:            StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("collector")
	}
	return c
}

// State returns the current state. Call it from the goroutine that ran Run.
func (c *Collector) State() State { return c.state }

// Transitions returns every state entered, starting with Idle.
func (c *Collector) Transitions() []State {
	return append([]State{StateIdle}, c.transitions...)
}

func (c *Collector) transition(to State) {
	if !canTransition(c.state, to) {
		// A programming error; keep the machine where it is.
		c.logger.Error(context.Background(), "illegal collector transition",
			logger.String("from", c.state.String()),
			logger.String("to", to.String()),
		)
		return
	}
	c.state = to
	c.transitions = append(c.transitions, to)
	metrics.RecordStateTransition(to.String())
}

// Run connects, subscribes, collects for the window and returns the
// aggregate. Exactly one of the window timer, the connection ending, an
// upstream error or ctx ending completes the window.
//
// A transport error after subscribing is not an error: the records gathered
// so far come back with Partial set. An upstream error payload discards them.
func (c *Collector) Run(ctx context.Context) (Result, error) {
	if c.state != StateIdle {
		return Result{}, fmt.Errorf("collector already used (state %s)", c.state)
	}

	conn, err := c.connect(ctx)
	if err != nil {
		c.transition(StateErrored)
		return c.result(nil, false), err
	}

	// The window starts at subscription, not at dial.
	timer := time.NewTimer(c.window)
	defer timer.Stop()

	q := queue.NewInMemoryQueue(queue.WithCapacity(c.frameBuffer))
	readCtx, stopReading := context.WithCancel(context.Background())
	defer stopReading()

	readerErr := make(chan error, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.read(readCtx, conn, q, readerErr)
	}()

	c.transition(StateCollecting)
	agg := dedupe.NewAggregator(dedupe.WithMaxSize(c.maxVessels))

	end, upErr := c.collect(ctx, timer, q, agg)

	if end == endTimer {
		// Frames already buffered arrived inside the window.
		if upErr = c.drain(q, agg); upErr != nil {
			end = endUpstream
		}
	}
	if end == endTimer || end == endCanceled {
		c.transition(StateClosing)
	}

	if end != endReader {
		if err := c.closeConn(conn, closeReason(end)); err != nil {
			c.logger.Debug(ctx, "close handshake incomplete", logger.Error(err))
		}
	}
	stopReading()
	wg.Wait()
	c.stats.Dropped += q.Dropped()

	switch end {
	case endUpstream:
		c.logger.Warn(ctx, "upstream rejected subscription", logger.Error(upErr))
		c.transition(StateErrored)
		return c.result(nil, false), upErr

	case endReader:
		rerr := <-readerErr
		if errors.Is(rerr, stream.ErrClosed) {
			c.transition(StateClosing)
			c.transition(StateDone)
			return c.result(agg.Records(), false), nil
		}
		c.logger.Warn(ctx, "upstream connection lost mid-window",
			logger.Error(rerr),
			logger.Int("records", agg.Size()),
		)
		metrics.RecordErrorByComponent("collector", "transport")
		c.transition(StateErrored)
		return c.result(agg.Records(), true), nil

	case endCanceled:
		c.transition(StateDone)
		return c.result(agg.Records(), true), ctx.Err()

	default:
		c.transition(StateDone)
		return c.result(agg.Records(), false), nil
	}
}

// connect dials and sends the subscription, both bounded by the handshake
// timeout.
func (c *Collector) connect(ctx context.Context) (stream.Conn, error) {
	c.transition(StateConnecting)
	start := time.Now()

	hctx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	conn, err := c.dialer.Dial(hctx, c.url)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordErrorByComponent("collector", "dial")
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnreachable, err)
	}

	sub := stream.NewSubscription(c.apiKey, c.box, c.messageTypes)
	if err := conn.Send(hctx, sub); err != nil {
		_ = c.closeConn(conn, "subscribe failed")
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		metrics.RecordErrorByComponent("collector", "subscribe")
		return nil, fmt.Errorf("%w: subscribe: %v", ErrUpstreamUnreachable, err)
	}

	metrics.RecordConnectLatency(float64(time.Since(start).Milliseconds()))
	c.transition(StateSubscribed)
	return conn, nil
}

// read pumps frames into q until the connection ends. The cause is sent on
// errc before q is closed.
func (c *Collector) read(ctx context.Context, conn stream.Conn, q *queue.InMemoryQueue, errc chan<- error) {
	defer func() { _ = q.Close() }()
	for {
		data, err := conn.Read(ctx)
		if err != nil {
			errc <- err
			return
		}
		// Blocks while the collector is behind; the socket absorbs the backlog.
		if !q.Enqueue(ctx, queue.Frame{Data: data, ReceivedAt: c.now()}) {
			errc <- ctx.Err()
			return
		}
	}
}

// collect processes frames in arrival order until something ends the window.
func (c *Collector) collect(ctx context.Context, timer *time.Timer, q *queue.InMemoryQueue, agg *dedupe.Aggregator) (completion, error) {
	frames := q.Frames()
	for {
		select {
		case f, ok := <-frames:
			if !ok {
				return endReader, nil
			}
			if err := c.handle(f, agg); err != nil {
				return endUpstream, err
			}
		case <-timer.C:
			return endTimer, nil
		case <-ctx.Done():
			return endCanceled, nil
		}
	}
}

// drain handles the frames buffered when the window ended. Frames the reader
// enqueues after that point arrived too late and are left alone.
func (c *Collector) drain(q *queue.InMemoryQueue, agg *dedupe.Aggregator) error {
	frames := q.Frames()
	for n := q.Len(); n > 0; n-- {
		select {
		case f, ok := <-frames:
			if !ok {
				return nil
			}
			if err := c.handle(f, agg); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

// handle runs one frame through normalize, filter and aggregate.
func (c *Collector) handle(f queue.Frame, agg *dedupe.Aggregator) error {
	c.stats.Frames++
	res, err := c.normalizer.Normalize(f.Data, f.ReceivedAt)
	if err != nil {
		metrics.RecordErrorByComponent("collector", "upstream")
		return err
	}
	if !res.Found {
		metrics.RecordMessage(res.Reason.String())
		return nil
	}
	metrics.RecordMessage(resultPosition)
	c.stats.Positions++

	if !c.box.ContainsPosition(res.Position) {
		c.stats.OutsideBox++
		metrics.RecordPosition(outcomeOutsideBox)
		return nil
	}

	outcome := agg.Insert(res.Position)
	switch outcome {
	case dedupe.Stale:
		c.stats.Stale++
	case dedupe.Dropped:
		c.stats.Dropped++
	case dedupe.Added, dedupe.Replaced:
	}
	metrics.RecordPosition(outcome.String())
	return nil
}

// closeConn asks for a close handshake and waits at most closeTimeout.
func (c *Collector) closeConn(conn stream.Conn, reason string) error {
	done := make(chan error, 1)
	go func() { done <- conn.Close(reason) }()

	t := time.NewTimer(c.closeTimeout)
	defer t.Stop()
	select {
	case err := <-done:
		return err
	case <-t.C:
		return errCloseTimeout
	}
}

func (c *Collector) result(positions []model.Position, partial bool) Result {
	return Result{
		Positions: positions,
		Partial:   partial,
		State:     c.state,
		Stats:     c.stats,
	}
}

func closeReason(end completion) string {
	switch end {
	case endTimer:
		return "window elapsed"
	case endCanceled:
		return "canceled"
	case endUpstream:
		return "upstream error"
	default:
		return ""
	}
}
