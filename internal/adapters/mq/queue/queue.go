// Package queue buffers raw upstream frames between the socket reader and the
// collector loop.
//
// Enqueue blocks while the buffer is full, so a slow consumer pushes back on
// the socket instead of losing frames. The consumer ranges over Frames until
// Close.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/vesselsnap/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultCapacity = 1024
)

// Frame fate label values.
const (
	fateQueued    = "queued"
	fateDropped   = "dropped"
	fateAbandoned = "abandoned"
)

// Frame is one raw upstream message and the local time it was read.
type Frame struct {
	Data       []byte
	ReceivedAt time.Time
}

// Queue provides blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a frame to the queue, waiting for room when it is full.
	// Returns false if ctx ended or the queue closed before the frame was taken.
	Enqueue(ctx context.Context, f Frame) bool

	// Frames returns the channel frames are delivered on.
	// The channel is closed when the queue is closed; buffered frames are still delivered.
	Frames() <-chan Frame

	// Len returns the current number of queued frames.
	Len() int

	// Dropped returns how many frames were refused because the queue was closed.
	Dropped() int

	// Close stops accepting frames. It is safe to call more than once.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	frames   chan Frame
	capacity int
	done     chan struct{}
	once     sync.Once
	mu       sync.RWMutex
	closed   bool
	dropped  atomic.Int64
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultCapacity,
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(q)
	}

	q.frames = make(chan Frame, q.capacity)
	metrics.UpdateQueue(0, q.capacity)

	return q
}

// Enqueue adds a frame to the queue. When the buffer is full it waits until
// the consumer makes room, ctx ends or the queue is closed.
func (q *InMemoryQueue) Enqueue(ctx context.Context, f Frame) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		q.refuse()
		return false
	}

	select {
	case q.frames <- f:
		metrics.RecordFrame(fateQueued)
		metrics.UpdateQueue(len(q.frames), q.capacity)
		return true
	case <-q.done:
		q.refuse()
		return false
	case <-ctx.Done():
		metrics.RecordFrame(fateAbandoned)
		return false
	}
}

func (q *InMemoryQueue) refuse() {
	q.dropped.Add(1)
	metrics.RecordFrame(fateDropped)
	metrics.RecordErrorByComponent("queue", "closed")
}

// Frames returns the delivery channel.
func (q *InMemoryQueue) Frames() <-chan Frame {
	return q.frames
}

// Len returns the current number of queued frames.
func (q *InMemoryQueue) Len() int {
	size := len(q.frames)
	metrics.UpdateQueue(size, q.capacity)
	return size
}

// Dropped returns how many frames were refused because the queue was closed.
func (q *InMemoryQueue) Dropped() int {
	return int(q.dropped.Load())
}

// Close gracefully shuts down the queue. Producers blocked in Enqueue are
// released before the delivery channel is closed.
func (q *InMemoryQueue) Close() error {
	q.once.Do(func() { close(q.done) })

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.frames)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
