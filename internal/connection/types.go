package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrInvalidURL  = errors.New("invalid websocket url")
	ErrPongTimeout = errors.New("heartbeat reply not received")
)

// Close codes used by the manager (RFC 6455 section 7.4.1).
const (
	CloseNormalClosure    = 1000
	CloseGoingAway        = 1001
	CloseNoStatusReceived = 1005
	CloseAbnormalClosure  = 1006
)

// State is the lifecycle state of a Manager.
type State uint32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateConnecting:
		return "CONNECTING"
	case StateOpen:
		return "OPEN"
	default:
		return fmt.Sprintf("State(%d)", uint32(s))
	}
}

// MessageType distinguishes text and binary frames.
type MessageType int

const (
	MessageText   MessageType = 1
	MessageBinary MessageType = 2
)

func (t MessageType) String() string {
	switch t {
	case MessageText:
		return "text"
	case MessageBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Message is an opaque payload passed through the connection unmodified.
type Message struct {
	Type MessageType
	Data []byte
}

// TextMessage builds a text frame.
func TextMessage(s string) Message {
	return Message{Type: MessageText, Data: []byte(s)}
}

// BinaryMessage builds a binary frame.
func BinaryMessage(b []byte) Message {
	return Message{Type: MessageBinary, Data: b}
}

// Text returns the payload as a string regardless of frame type.
func (m Message) Text() string {
	return string(m.Data)
}

// IsZero reports whether m was never set.
func (m Message) IsZero() bool {
	return m.Type == 0 && len(m.Data) == 0
}

// CloseError is returned by Conn.ReadMessage when the peer sent a close frame.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("websocket closed: %d", e.Code)
	}
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Reason)
}

// CloseEvent describes why a session ended.
type CloseEvent struct {
	Code     int
	Reason   string
	Explicit bool  // Requested through Close, Destroy or Open
	Err      error // Underlying transport or liveness failure, if any
}

// SessionInfo identifies one connection attempt.
type SessionInfo struct {
	ID          uuid.UUID
	Generation  uint64 // Monotonic per Manager
	URL         string
	Subprotocol string // Negotiated sub-protocol (empty until open)
}

// Stats is a point-in-time snapshot of manager diagnostics.
type Stats struct {
	State             State
	RetryCount        int
	Buffered          int
	Evicted           int64
	MessagesSent      int64
	MessagesReceived  int64
	HeartbeatsSent    int64
	PongTimeouts      int64
	ReconnectAttempts int64
	GiveUps           int64
	ConnectedAt       time.Time // Zero unless open
}

// Uptime returns the duration since the current session opened.
func (s Stats) Uptime() time.Duration {
	if s.ConnectedAt.IsZero() {
		return 0
	}
	return time.Since(s.ConnectedAt)
}
