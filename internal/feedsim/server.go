// Package feedsim serves a simulated AIS WebSocket feed speaking the same
// subscription protocol as the live upstream.
package feedsim

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/okian/vesselsnap/internal/adapters/stream"
	"github.com/okian/vesselsnap/internal/domain/model"
	"github.com/okian/vesselsnap/pkg/logger"
)

// Default server settings.
const (
	defaultInterval         = 250 * time.Millisecond
	defaultFleetSize        = 12
	defaultSubscribeTimeout = 5 * time.Second
	invalidKeyMessage       = "Api Key Is Not Valid"
)

// Server is an http.Handler that upgrades to WebSocket, waits for one
// subscription and then streams frames until either side closes.
type Server struct {
	apiKey           string
	interval         time.Duration
	fleetSize        int
	seed             uint64
	script           [][]byte
	closeAfterScript bool
	subscribeTimeout time.Duration
	log              logger.Logger

	connections atomic.Int64
	mu          sync.Mutex
	subs        []stream.Subscription
}

// New creates a simulator. The global logger must be initialized unless
// WithLogger is given.
func New(opts ...Option) *Server {
	s := &Server{
		interval:         defaultInterval,
		fleetSize:        defaultFleetSize,
		seed:             uint64(time.Now().UnixNano()),
		subscribeTimeout: defaultSubscribeTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Named("feedsim")
	}
	return s
}

// Subscriptions returns the subscriptions received so far.
func (s *Server) Subscriptions() []stream.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]stream.Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

// Connections returns the number of accepted connections.
func (s *Server) Connections() int64 {
	return s.connections.Load()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn(r.Context(), "websocket accept failed", logger.Error(err))
		return
	}
	defer c.Close(websocket.StatusInternalError, "")

	id := s.connections.Add(1)
	log := s.log.With(logger.Int64("conn", id))
	ctx := r.Context()

	sub, err := s.subscribe(ctx, c)
	if err != nil {
		log.Warn(ctx, "no subscription", logger.Error(err))
		_ = c.Close(websocket.StatusPolicyViolation, "subscription expected")
		return
	}
	if s.apiKey != "" && sub.APIKey != s.apiKey {
		log.Info(ctx, "rejecting subscription", logger.Error(ErrAPIKey))
		_ = c.Write(ctx, websocket.MessageText, ErrorFrame(invalidKeyMessage))
		_ = c.Close(websocket.StatusPolicyViolation, "invalid api key")
		return
	}

	box := subscriptionBox(sub)
	log.Info(ctx, "subscribed",
		logger.Any("box", box),
		logger.Any("filter", sub.FilterMessageTypes),
	)

	// Nothing else is expected from the client; CloseRead handles its close
	// frame and cancels ctx.
	ctx = c.CloseRead(ctx)

	if s.script != nil {
		err = s.playScript(ctx, c)
	} else {
		fleet := NewFleet(box, s.fleetSize, s.seed+uint64(id))
		fleet.Restrict(sub.FilterMessageTypes)
		err = s.stream(ctx, c, fleet)
	}
	switch {
	case err == nil:
		_ = c.Close(websocket.StatusNormalClosure, "end of feed")
	case errors.Is(err, context.Canceled), websocket.CloseStatus(err) != -1:
		log.Debug(ctx, "client went away")
	default:
		log.Warn(ctx, "feed aborted", logger.Error(err))
	}
}

func (s *Server) subscribe(ctx context.Context, c *websocket.Conn) (stream.Subscription, error) {
	readCtx, cancel := context.WithTimeout(ctx, s.subscribeTimeout)
	defer cancel()

	var sub stream.Subscription
	if err := wsjson.Read(readCtx, c, &sub); err != nil {
		return stream.Subscription{}, fmt.Errorf("%w: %w", ErrSubscription, err)
	}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub, nil
}

// playScript sends the scripted frames. It returns nil only when the
// connection should be closed normally afterwards.
func (s *Server) playScript(ctx context.Context, c *websocket.Conn) error {
	for _, frame := range s.script {
		if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
			return err
		}
	}
	if s.closeAfterScript {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Server) stream(ctx context.Context, c *websocket.Conn, fleet *Fleet) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			frames, err := fleet.Next(now, now.Sub(last))
			if err != nil {
				return err
			}
			last = now
			for _, frame := range frames {
				if err := c.Write(ctx, websocket.MessageText, frame); err != nil {
					return err
				}
			}
		}
	}
}

// subscriptionBox turns the first subscribed corner pair back into a box.
// Without one the whole globe is used.
func subscriptionBox(sub stream.Subscription) model.BoundingBox {
	if len(sub.BoundingBoxes) == 0 {
		return model.BoundingBox{MinLat: -90, MaxLat: 90, MinLon: -180, MaxLon: 180}
	}
	a, b := sub.BoundingBoxes[0][0], sub.BoundingBoxes[0][1]
	return model.BoundingBox{
		MinLat: min(a[0], b[0]),
		MaxLat: max(a[0], b[0]),
		MinLon: min(a[1], b[1]),
		MaxLon: max(a[1], b[1]),
	}
}
