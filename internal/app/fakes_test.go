package service_test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/okian/vesselsnap/internal/adapters/stream"
	"github.com/okian/vesselsnap/pkg/logger"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// step is one scripted Read result.
type step struct {
	data []byte
	err  error
}

func frame(s string) step    { return step{data: []byte(s)} }
func failure(err error) step { return step{err: err} }

// fakeConn replays a script, then blocks until closed.
type fakeConn struct {
	mu      sync.Mutex
	script  []step
	sent    []any
	sendErr error
	closed  chan struct{}
	once    sync.Once
	closes  atomic.Int32
}

func newFakeConn(steps ...step) *fakeConn {
	return &fakeConn{script: steps, closed: make(chan struct{})}
}

func (c *fakeConn) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	if len(c.script) > 0 {
		s := c.script[0]
		if s.err == nil {
			c.script = c.script[1:]
		}
		c.mu.Unlock()
		return s.data, s.err
	}
	c.mu.Unlock()

	select {
	case <-c.closed:
		return nil, fmt.Errorf("%w: closed by client", stream.ErrClosed)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", stream.ErrTransport, ctx.Err())
	}
}

func (c *fakeConn) Send(_ context.Context, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, v)
	return nil
}

func (c *fakeConn) Close(string) error {
	c.closes.Add(1)
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) Sent() []any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]any(nil), c.sent...)
}

// fakeDialer hands out one connection per Dial, or fails.
type fakeDialer struct {
	conns  chan *fakeConn
	err    error
	calls  atomic.Int32
	dialed chan struct{}
}

func newFakeDialer(conns ...*fakeConn) *fakeDialer {
	d := &fakeDialer{conns: make(chan *fakeConn, len(conns)), dialed: make(chan struct{}, 16)}
	for _, c := range conns {
		d.conns <- c
	}
	return d
}

func (d *fakeDialer) Dial(ctx context.Context, _ string) (stream.Conn, error) {
	d.calls.Add(1)
	defer func() {
		select {
		case d.dialed <- struct{}{}:
		default:
		}
	}()
	if d.err != nil {
		return nil, d.err
	}
	select {
	case c := <-d.conns:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// report renders a position report frame in the feed's envelope.
func report(mmsi int, lat, lon float64, ts int64) string {
	return fmt.Sprintf(`{"MessageType":"PositionReport","MetaData":{"MMSI":%d,"timestamp":%d},`+
		`"Message":{"PositionReport":{"UserID":%d,"Latitude":%v,"Longitude":%v,"Sog":%d}}}`,
		mmsi, ts, mmsi, lat, lon, ts)
}
