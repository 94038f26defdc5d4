// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and environment variables.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"time"

	"github.com/okian/vesselsnap/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"oneof=debug info warn warning error"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr" validate:"required"`

	// StreamURL is the upstream vessel feed WebSocket endpoint.
	StreamURL string `koanf:"stream_url" validate:"required,url"`

	// APIKey is the feed credential. Empty is allowed at startup; snapshots
	// then fail with a credentials error.
	APIKey string `koanf:"api_key"`

	// HandshakeTimeoutMS bounds dial plus subscribe. The window starts only once
	// subscribed, so it may exceed short windows but not the longest one.
	HandshakeTimeoutMS int `koanf:"handshake_timeout_ms" validate:"gt=0,ltfield=MaxWindowMS"`

	// CloseTimeoutMS bounds the closing handshake.
	CloseTimeoutMS int `koanf:"close_timeout_ms" validate:"gt=0"`

	// Collection window, used when a request names none, and its allowed range.
	DefaultWindowMS int `koanf:"default_window_ms" validate:"gt=0"`
	MinWindowMS     int `koanf:"min_window_ms" validate:"gt=0,ltefield=DefaultWindowMS"`
	MaxWindowMS     int `koanf:"max_window_ms" validate:"gtefield=DefaultWindowMS"`

	// Default bounding box for requests that omit it.
	DefaultMinLat float64 `koanf:"default_min_lat" validate:"gte=-90,lte=90"`
	DefaultMaxLat float64 `koanf:"default_max_lat" validate:"gte=-90,lte=90"`
	DefaultMinLon float64 `koanf:"default_min_lon" validate:"gte=-180,lte=180"`
	DefaultMaxLon float64 `koanf:"default_max_lon" validate:"gte=-180,lte=180"`

	// MessageTypes restricts the subscription to these report types. Empty
	// subscribes to everything.
	MessageTypes []string `koanf:"message_types"`

	// FrameBuffer bounds frames waiting between socket reader and collector.
	FrameBuffer int `koanf:"frame_buffer" validate:"gt=0"`

	// ReadLimitBytes caps a single upstream message.
	ReadLimitBytes int64 `koanf:"read_limit_bytes" validate:"gt=0"`

	// MaxVessels caps records per snapshot; 0 is unbounded.
	MaxVessels int `koanf:"max_vessels" validate:"gte=0"`

	// MaxConcurrentSnapshots bounds parallel upstream connections.
	MaxConcurrentSnapshots int `koanf:"max_concurrent_snapshots" validate:"gt=0"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "text",
		Addr:                   ":9080",
		StreamURL:              "wss://stream.aisstream.io/v0/stream",
		HandshakeTimeoutMS:     5000,
		CloseTimeoutMS:         2000,
		DefaultWindowMS:        6000,
		MinWindowMS:            500,
		MaxWindowMS:            12000,
		DefaultMinLat:          51.9010,
		DefaultMaxLat:          51.9120,
		DefaultMinLon:          4.4400,
		DefaultMaxLon:          4.4800,
		FrameBuffer:            1024,
		ReadLimitBytes:         1 << 20,
		MaxVessels:             0,
		MaxConcurrentSnapshots: 16,
	}
}

// DefaultBox returns the configured fallback bounding box.
func (c *Config) DefaultBox() model.BoundingBox {
	return model.BoundingBox{
		MinLat: c.DefaultMinLat,
		MaxLat: c.DefaultMaxLat,
		MinLon: c.DefaultMinLon,
		MaxLon: c.DefaultMaxLon,
	}
}

// HandshakeTimeout returns HandshakeTimeoutMS as a duration.
func (c *Config) HandshakeTimeout() time.Duration { return ms(c.HandshakeTimeoutMS) }

// CloseTimeout returns CloseTimeoutMS as a duration.
func (c *Config) CloseTimeout() time.Duration { return ms(c.CloseTimeoutMS) }

// DefaultWindow returns DefaultWindowMS as a duration.
func (c *Config) DefaultWindow() time.Duration { return ms(c.DefaultWindowMS) }

// MinWindow returns MinWindowMS as a duration.
func (c *Config) MinWindow() time.Duration { return ms(c.MinWindowMS) }

// MaxWindow returns MaxWindowMS as a duration.
func (c *Config) MaxWindow() time.Duration { return ms(c.MaxWindowMS) }

func ms(v int) time.Duration { return time.Duration(v) * time.Millisecond }
