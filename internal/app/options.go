package service

import (
	"time"

	"github.com/okian/vesselsnap/internal/adapters/stream"
	"github.com/okian/vesselsnap/internal/domain/normalize"
	"github.com/okian/vesselsnap/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDialer sets how upstream connections are opened.
func WithDialer(d stream.Dialer) Option {
	return func(s *Service) {
		if d != nil {
			s.dialer = d
		}
	}
}

// WithNormalizer replaces the default message normalizer.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(s *Service) {
		if n != nil {
			s.normalizer = n
		}
	}
}

// WithStreamURL sets the upstream feed endpoint.
func WithStreamURL(url string) Option {
	return func(s *Service) {
		if url != "" {
			s.streamURL = url
		}
	}
}

// WithAPIKey sets the upstream credential.
func WithAPIKey(key string) Option {
	return func(s *Service) {
		s.apiKey = key
	}
}

// WithMessageTypes restricts subscriptions to the named report types.
// Empty means every type.
func WithMessageTypes(types []string) Option {
	return func(s *Service) {
		s.messageTypes = types
	}
}

// WithHandshakeTimeout bounds dial plus subscribe.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.handshakeTimeout = d
		}
	}
}

// WithCloseTimeout bounds the closing handshake.
func WithCloseTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.closeTimeout = d
		}
	}
}

// WithWindowBounds sets the default window and its allowed range.
// Ignored unless 0 < minimum <= def <= maximum.
func WithWindowBounds(def, minimum, maximum time.Duration) Option {
	return func(s *Service) {
		if minimum > 0 && minimum <= def && def <= maximum {
			s.defaultWindow = def
			s.minWindow = minimum
			s.maxWindow = maximum
		}
	}
}

// WithFrameBuffer sets the per-snapshot frame queue capacity.
func WithFrameBuffer(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.frameBuffer = size
		}
	}
}

// WithMaxVessels caps records per snapshot. Zero means unbounded.
func WithMaxVessels(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.maxVessels = n
		}
	}
}

// WithMaxConcurrent sets how many snapshots may collect at once.
func WithMaxConcurrent(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrent = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
