package feedsim

import (
	"time"

	"github.com/okian/vesselsnap/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithAPIKey makes the server reject subscriptions carrying any other key.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithInterval sets the time between fleet ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithFleetSize sets the number of simulated vessels per connection.
func WithFleetSize(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.fleetSize = n
		}
	}
}

// WithSeed makes fleets deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Server) {
		s.seed = seed
	}
}

// WithScript replaces the simulated fleet with a fixed frame sequence sent
// right after the subscription.
func WithScript(frames ...[]byte) Option {
	return func(s *Server) {
		s.script = frames
	}
}

// WithCloseAfterScript closes the connection normally once the script is sent.
func WithCloseAfterScript() Option {
	return func(s *Server) {
		s.closeAfterScript = true
	}
}

// WithSubscribeTimeout bounds the wait for the client's subscription.
func WithSubscribeTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.subscribeTimeout = d
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}
