package connection

import "context"

// Dialer opens a transport connection. Each Conn it returns serves exactly
// one session.
type Dialer interface {
	Dial(ctx context.Context, url string, protocols []string) (Conn, error)
}

// Conn is a single bidirectional message socket.
//
// ReadMessage is only called from one goroutine. WriteMessage calls are
// serialized by the manager. Close may be called concurrently with
// ReadMessage and must unblock it.
type Conn interface {
	// ReadMessage blocks for the next message. A close frame from the peer
	// is reported as *CloseError.
	ReadMessage() (Message, error)

	// WriteMessage sends one frame.
	WriteMessage(msg Message) error

	// Close sends a close frame with the given code and reason, then
	// releases the underlying connection.
	Close(code int, reason string) error

	// Subprotocol returns the negotiated sub-protocol.
	Subprotocol() string
}
