// Package stream connects to the upstream vessel-tracking WebSocket feed.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Default stream configuration constants.
const (
	defaultReadLimit = 1 << 20
)

// Conn is one open upstream connection.
type Conn interface {
	// Read blocks for the next message. A normal close from either side
	// returns an error matching ErrClosed; anything else matches ErrTransport.
	Read(ctx context.Context) ([]byte, error)

	// Send writes v as a JSON text message.
	Send(ctx context.Context, v any) error

	// Close starts the close handshake and waits for the peer to acknowledge it.
	Close(reason string) error
}

// Dialer opens upstream connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// WebSocketDialer dials the feed over WebSocket.
type WebSocketDialer struct {
	readLimit  int64
	httpClient *http.Client
	header     http.Header
}

// NewWebSocketDialer creates a dialer with configuration options.
func NewWebSocketDialer(opts ...Option) *WebSocketDialer {
	d := &WebSocketDialer{
		readLimit: defaultReadLimit,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial opens a connection. The context bounds the handshake only.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	ws, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPClient: d.httpClient,
		HTTPHeader: d.header,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDial, err)
	}
	ws.SetReadLimit(d.readLimit)
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := c.ws.Read(ctx)
	if err != nil {
		return nil, classify(err)
	}
	return data, nil
}

func (c *wsConn) Send(ctx context.Context, v any) error {
	if err := wsjson.Write(ctx, c.ws, v); err != nil {
		return classify(err)
	}
	return nil
}

func (c *wsConn) Close(reason string) error {
	err := c.ws.Close(websocket.StatusNormalClosure, reason)
	if err == nil {
		return nil
	}
	if errors.Is(classify(err), ErrClosed) {
		return nil
	}
	return err
}

// classify maps library errors onto the package sentinels.
func classify(err error) error {
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return fmt.Errorf("%w: %v", ErrClosed, err)
	default:
		return fmt.Errorf("%w: %v", ErrTransport, err)
	}
}
