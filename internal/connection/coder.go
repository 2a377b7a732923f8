package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// CoderDialer dials with github.com/coder/websocket.
type CoderDialer struct {
	WriteTimeout time.Duration // Per-write context timeout (default 5s)
	ReadLimit    int64         // Max inbound message size (0 = library default)
	Header       http.Header   // Extra handshake headers
}

// Dial establishes the WebSocket connection.
func (d CoderDialer) Dial(ctx context.Context, url string, protocols []string) (Conn, error) {
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		Subprotocols: protocols,
		HTTPHeader:   d.Header,
	})
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &coderConn{conn: conn, writeTimeout: writeTimeout}, nil
}

type coderConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *coderConn) ReadMessage() (Message, error) {
	typ, data, err := c.conn.Read(context.Background())
	if err != nil {
		if code := websocket.CloseStatus(err); code != -1 {
			var ce websocket.CloseError
			errors.As(err, &ce)
			return Message{}, &CloseError{Code: int(code), Reason: ce.Reason}
		}
		return Message{}, err
	}
	if typ == websocket.MessageBinary {
		return BinaryMessage(data), nil
	}
	return Message{Type: MessageText, Data: data}, nil
}

func (c *coderConn) WriteMessage(msg Message) error {
	typ := websocket.MessageText
	if msg.Type == MessageBinary {
		typ = websocket.MessageBinary
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.writeTimeout)
	defer cancel()
	return c.conn.Write(ctx, typ, msg.Data)
}

func (c *coderConn) Close(code int, reason string) error {
	return c.conn.Close(websocket.StatusCode(code), reason)
}

func (c *coderConn) Subprotocol() string {
	return c.conn.Subprotocol()
}
