package connection

import (
	"log/slog"
	"time"
)

// Defaults for optional configuration.
const (
	DefaultHeartbeatInterval = 1 * time.Second
	DefaultPongTimeout       = 1 * time.Second
	DefaultReconnectDelay    = 1 * time.Second
	DefaultMaxBufferSize     = 100
	DefaultHeartbeatMessage  = "ping"
)

// HeartbeatConfig enables the application-level liveness probe.
// Zero fields take their defaults. An empty payload is never used: an
// empty Message becomes "ping" with the same frame type, and an empty
// ResponseMessage becomes the probe.
type HeartbeatConfig struct {
	Message         Message       // Probe payload (default "ping")
	ResponseMessage Message       // Expected reply (default: Message)
	Interval        time.Duration // Time between probes
	PongTimeout     time.Duration // Time allowed for a reply
}

func (h HeartbeatConfig) withDefaults() HeartbeatConfig {
	if len(h.Message.Data) == 0 {
		typ := h.Message.Type
		if typ != MessageBinary {
			typ = MessageText
		}
		h.Message = Message{Type: typ, Data: []byte(DefaultHeartbeatMessage)}
	}
	if len(h.ResponseMessage.Data) == 0 {
		h.ResponseMessage = h.Message
	}
	if h.Interval <= 0 {
		h.Interval = DefaultHeartbeatInterval
	}
	if h.PongTimeout <= 0 {
		h.PongTimeout = DefaultPongTimeout
	}
	return h
}

// ReconnectConfig enables automatic reconnection after unintended closes.
type ReconnectConfig struct {
	Retries  RetryPolicy
	Delay    Backoff
	OnFailed func() // Called once when Retries gives up
}

type options struct {
	onConnected    func(SessionInfo)
	onDisconnected func(SessionInfo, CloseEvent)
	onError        func(SessionInfo, error)
	onMessage      func(SessionInfo, Message)
	onReconnecting func(retries int)
	onReconnected  func(SessionInfo)

	heartbeat *HeartbeatConfig
	reconnect *ReconnectConfig

	immediate     bool
	protocols     []string
	buffer        bool
	maxBufferSize int

	dialer Dialer
	logger *slog.Logger
}

func defaultOptions() options {
	return options{
		immediate:     true,
		buffer:        true,
		maxBufferSize: DefaultMaxBufferSize,
		dialer:        GorillaDialer{},
	}
}

// Option configures a Manager.
type Option func(*options)

// WithOnConnected is called after every successful open.
func WithOnConnected(fn func(SessionInfo)) Option {
	return func(o *options) { o.onConnected = fn }
}

// WithOnDisconnected is called whenever a session ends, explicitly or not.
func WithOnDisconnected(fn func(SessionInfo, CloseEvent)) Option {
	return func(o *options) { o.onDisconnected = fn }
}

// WithOnError is called for transport errors. A close always follows.
func WithOnError(fn func(SessionInfo, error)) Option {
	return func(o *options) { o.onError = fn }
}

// WithOnMessage is called for every inbound message except heartbeat replies.
func WithOnMessage(fn func(SessionInfo, Message)) Option {
	return func(o *options) { o.onMessage = fn }
}

// WithOnReconnecting is called when a reconnect attempt is scheduled.
func WithOnReconnecting(fn func(retries int)) Option {
	return func(o *options) { o.onReconnecting = fn }
}

// WithOnReconnected is called when a reconnect attempt reaches open.
func WithOnReconnected(fn func(SessionInfo)) Option {
	return func(o *options) { o.onReconnected = fn }
}

// WithHeartbeat enables the liveness probe.
func WithHeartbeat(cfg HeartbeatConfig) Option {
	return func(o *options) {
		hb := cfg.withDefaults()
		o.heartbeat = &hb
	}
}

// WithAutoReconnect enables reconnection after unintended closes.
func WithAutoReconnect(cfg ReconnectConfig) Option {
	return func(o *options) { o.reconnect = &cfg }
}

// WithImmediate controls whether New opens the connection (default true).
func WithImmediate(immediate bool) Option {
	return func(o *options) { o.immediate = immediate }
}

// WithProtocols sets the sub-protocols offered during the handshake.
func WithProtocols(protocols ...string) Option {
	return func(o *options) { o.protocols = append([]string(nil), protocols...) }
}

// WithBuffer controls whether Send queues messages while not open (default true).
func WithBuffer(enabled bool) Option {
	return func(o *options) { o.buffer = enabled }
}

// WithMaxBufferSize bounds the outbound buffer. Values below 1 use the default.
func WithMaxBufferSize(n int) Option {
	return func(o *options) {
		if n < 1 {
			n = DefaultMaxBufferSize
		}
		o.maxBufferSize = n
	}
}

// WithDialer replaces the transport (default GorillaDialer).
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}
