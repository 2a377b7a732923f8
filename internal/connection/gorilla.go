package connection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// GorillaDialer dials with github.com/gorilla/websocket.
type GorillaDialer struct {
	HandshakeTimeout time.Duration // Default 10s
	WriteTimeout     time.Duration // Write deadline for sends (default 5s)
	ReadLimit        int64         // Max inbound message size (0 = library default)
	Header           http.Header   // Extra handshake headers
}

// Dial establishes the WebSocket connection.
func (d GorillaDialer) Dial(ctx context.Context, url string, protocols []string) (Conn, error) {
	handshake := d.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
		Subprotocols:     protocols,
	}

	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		defer func() { _ = resp.Body.Close() }()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", url, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}

	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &gorillaConn{conn: conn, writeTimeout: writeTimeout}, nil
}

type gorillaConn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
}

func (c *gorillaConn) ReadMessage() (Message, error) {
	typ, data, err := c.conn.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return Message{}, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		return Message{}, err
	}
	if typ == websocket.BinaryMessage {
		return BinaryMessage(data), nil
	}
	return Message{Type: MessageText, Data: data}, nil
}

func (c *gorillaConn) WriteMessage(msg Message) error {
	typ := websocket.TextMessage
	if msg.Type == MessageBinary {
		typ = websocket.BinaryMessage
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteMessage(typ, msg.Data)
}

func (c *gorillaConn) Close(code int, reason string) error {
	// Best effort: the peer may already be gone
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func (c *gorillaConn) Subprotocol() string {
	return c.conn.Subprotocol()
}
