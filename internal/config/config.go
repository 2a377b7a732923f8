package config

import "time"

// Config is the root configuration for a wsconn client.
type Config struct {
	Client    ClientConfig    `yaml:"client"`
	Heartbeat HeartbeatConfig `yaml:"heartbeat"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Recorder  RecorderConfig  `yaml:"recorder"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Log       LogConfig       `yaml:"log"`
}

// ClientConfig holds connection manager settings.
type ClientConfig struct {
	URL              string        `yaml:"url"`
	Protocols        []string      `yaml:"protocols"`
	Immediate        *bool         `yaml:"immediate"` // nil = true
	Buffer           *bool         `yaml:"buffer"`    // nil = true
	MaxBufferSize    int           `yaml:"max_buffer_size"`
	Transport        string        `yaml:"transport"` // gorilla | coder
	HandshakeTimeout time.Duration `yaml:"handshake_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	ReadLimit        int64         `yaml:"read_limit"`
}

// HeartbeatConfig holds liveness probe settings.
type HeartbeatConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Message         string        `yaml:"message"`
	ResponseMessage string        `yaml:"response_message"`
	Binary          bool          `yaml:"binary"` // Send the probe as a binary frame
	Interval        time.Duration `yaml:"interval"`
	PongTimeout     time.Duration `yaml:"pong_timeout"`
}

// ReconnectConfig holds automatic reconnection settings.
type ReconnectConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Retries  *int          `yaml:"retries"` // nil or -1 = unlimited
	Backoff  string        `yaml:"backoff"` // fixed | exponential
	Delay    time.Duration `yaml:"delay"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// RecorderConfig holds the message recorder settings.
type RecorderConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// ImmediateOpen reports whether the client connects on construction.
func (c ClientConfig) ImmediateOpen() bool {
	return c.Immediate == nil || *c.Immediate
}

// Buffering reports whether sends are queued while disconnected.
func (c ClientConfig) Buffering() bool {
	return c.Buffer == nil || *c.Buffer
}

// MaxRetries returns the retry limit, or -1 when unlimited.
func (c ReconnectConfig) MaxRetries() int {
	if c.Retries == nil || *c.Retries < 0 {
		return -1
	}
	return *c.Retries
}
