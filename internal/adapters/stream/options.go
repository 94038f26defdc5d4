package stream

import "net/http"

// Option applies a configuration option to the WebSocketDialer.
type Option func(*WebSocketDialer)

// WithReadLimit caps the size of a single inbound message in bytes.
func WithReadLimit(limit int64) Option {
	return func(d *WebSocketDialer) {
		if limit > 0 {
			d.readLimit = limit
		}
	}
}

// WithHTTPClient sets the client used for the opening handshake.
func WithHTTPClient(client *http.Client) Option {
	return func(d *WebSocketDialer) {
		if client != nil {
			d.httpClient = client
		}
	}
}

// WithHeader adds headers to the opening handshake.
func WithHeader(header http.Header) Option {
	return func(d *WebSocketDialer) {
		if header != nil {
			d.header = header
		}
	}
}
