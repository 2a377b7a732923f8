package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTransport        = TransportGorilla
	DefaultMaxBufferSize    = 100
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultWriteTimeout     = 5 * time.Second
	DefaultHeartbeatMessage = "ping"
	DefaultPingInterval     = 1 * time.Second
	DefaultPongTimeout      = 1 * time.Second
	DefaultBackoff          = BackoffFixed
	DefaultReconnectDelay   = 1 * time.Second
	DefaultReconnectMax     = 60 * time.Second
	DefaultBatchSize        = 500
	DefaultFlushInterval    = 1 * time.Second
	DefaultBufferSize       = 10000
	DefaultDBPort           = 5432
	DefaultDBSSLMode        = "prefer"
	DefaultMaxConns         = 4
	DefaultMinConns         = 1
	DefaultMetricsPort      = 9090
	DefaultMetricsPath      = "/metrics"
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
)

// Accepted enum values.
const (
	TransportGorilla   = "gorilla"
	TransportCoder     = "coder"
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	// Client defaults
	if c.Client.MaxBufferSize == 0 {
		c.Client.MaxBufferSize = DefaultMaxBufferSize
	}
	if c.Client.Transport == "" {
		c.Client.Transport = DefaultTransport
	}
	if c.Client.HandshakeTimeout == 0 {
		c.Client.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Client.WriteTimeout == 0 {
		c.Client.WriteTimeout = DefaultWriteTimeout
	}

	// Heartbeat defaults
	if c.Heartbeat.Message == "" {
		c.Heartbeat.Message = DefaultHeartbeatMessage
	}
	if c.Heartbeat.ResponseMessage == "" {
		c.Heartbeat.ResponseMessage = c.Heartbeat.Message
	}
	if c.Heartbeat.Interval == 0 {
		c.Heartbeat.Interval = DefaultPingInterval
	}
	if c.Heartbeat.PongTimeout == 0 {
		c.Heartbeat.PongTimeout = DefaultPongTimeout
	}

	// Reconnect defaults
	if c.Reconnect.Backoff == "" {
		c.Reconnect.Backoff = DefaultBackoff
	}
	if c.Reconnect.Delay == 0 {
		c.Reconnect.Delay = DefaultReconnectDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMax
	}

	// Recorder defaults
	if c.Recorder.BatchSize == 0 {
		c.Recorder.BatchSize = DefaultBatchSize
	}
	if c.Recorder.FlushInterval == 0 {
		c.Recorder.FlushInterval = DefaultFlushInterval
	}
	if c.Recorder.BufferSize == 0 {
		c.Recorder.BufferSize = DefaultBufferSize
	}
	applyDBDefaults(&c.Recorder.Database)

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
