package stream

import "errors"

// Sentinel kinds for stream errors.
var (
	// ErrDial means the connection could not be established.
	ErrDial = errors.New("stream dial failed")
	// ErrClosed means the connection ended with a normal close handshake.
	ErrClosed = errors.New("stream closed")
	// ErrTransport means the connection broke without a normal close.
	ErrTransport = errors.New("stream transport error")
)
