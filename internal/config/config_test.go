package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
client:
  url: wss://stream.example.com/v1
  protocols: [graphql-ws, json]
  immediate: false
  max_buffer_size: 50
  transport: coder
heartbeat:
  enabled: true
  message: '{"op":"ping"}'
  response_message: '{"op":"pong"}'
  interval: 15s
  pong_timeout: 5s
reconnect:
  enabled: true
  retries: 10
  backoff: exponential
  delay: 500ms
  max_delay: 30s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.URL != "wss://stream.example.com/v1" {
		t.Errorf("Client.URL = %q, want %q", cfg.Client.URL, "wss://stream.example.com/v1")
	}
	if len(cfg.Client.Protocols) != 2 || cfg.Client.Protocols[1] != "json" {
		t.Errorf("Client.Protocols = %v, want [graphql-ws json]", cfg.Client.Protocols)
	}
	if cfg.Client.ImmediateOpen() {
		t.Error("Client.ImmediateOpen() = true, want false")
	}
	if !cfg.Client.Buffering() {
		t.Error("Client.Buffering() = false, want true when unset")
	}
	if cfg.Heartbeat.Interval != 15*time.Second {
		t.Errorf("Heartbeat.Interval = %v, want 15s", cfg.Heartbeat.Interval)
	}
	if cfg.Heartbeat.ResponseMessage != `{"op":"pong"}` {
		t.Errorf("Heartbeat.ResponseMessage = %q", cfg.Heartbeat.ResponseMessage)
	}
	if cfg.Reconnect.MaxRetries() != 10 {
		t.Errorf("Reconnect.MaxRetries() = %d, want 10", cfg.Reconnect.MaxRetries())
	}
	if cfg.Reconnect.Delay != 500*time.Millisecond {
		t.Errorf("Reconnect.Delay = %v, want 500ms", cfg.Reconnect.Delay)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_WS_HOST", "feed.internal:8443")
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
client:
  url: wss://${TEST_WS_HOST}/stream
recorder:
  database:
    host: localhost
    name: wsconn
    user: recorder
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.URL != "wss://feed.internal:8443/stream" {
		t.Errorf("Client.URL = %q, want expanded host", cfg.Client.URL)
	}
	if cfg.Recorder.Database.Password != "secret123" {
		t.Errorf("Recorder.Database.Password = %q, want %q", cfg.Recorder.Database.Password, "secret123")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
client:
  url: ws://localhost:8080/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Client.MaxBufferSize != DefaultMaxBufferSize {
		t.Errorf("Client.MaxBufferSize = %d, want default %d", cfg.Client.MaxBufferSize, DefaultMaxBufferSize)
	}
	if cfg.Client.Transport != TransportGorilla {
		t.Errorf("Client.Transport = %q, want default %q", cfg.Client.Transport, TransportGorilla)
	}
	if cfg.Heartbeat.Message != DefaultHeartbeatMessage || cfg.Heartbeat.ResponseMessage != DefaultHeartbeatMessage {
		t.Errorf("Heartbeat messages = %q/%q, want %q", cfg.Heartbeat.Message, cfg.Heartbeat.ResponseMessage, DefaultHeartbeatMessage)
	}
	if cfg.Heartbeat.Interval != DefaultPingInterval {
		t.Errorf("Heartbeat.Interval = %v, want default %v", cfg.Heartbeat.Interval, DefaultPingInterval)
	}
	if cfg.Reconnect.Delay != DefaultReconnectDelay {
		t.Errorf("Reconnect.Delay = %v, want default %v", cfg.Reconnect.Delay, DefaultReconnectDelay)
	}
	if cfg.Reconnect.MaxRetries() != -1 {
		t.Errorf("Reconnect.MaxRetries() = %d, want unlimited", cfg.Reconnect.MaxRetries())
	}
	if cfg.Recorder.Database.Port != DefaultDBPort {
		t.Errorf("Recorder.Database.Port = %d, want default %d", cfg.Recorder.Database.Port, DefaultDBPort)
	}
	if cfg.Metrics.Path != DefaultMetricsPath {
		t.Errorf("Metrics.Path = %q, want default %q", cfg.Metrics.Path, DefaultMetricsPath)
	}
	if cfg.Log.Format != DefaultLogFormat {
		t.Errorf("Log.Format = %q, want default %q", cfg.Log.Format, DefaultLogFormat)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load of missing file should fail")
	}

	path := writeTempFile(t, "client: [unterminated")
	if _, err := Load(path); err == nil {
		t.Error("Load of malformed yaml should fail")
	}

	path = writeTempFile(t, "client:\n  url: http://example.com\n")
	if _, err := LoadAndValidate(path); err == nil {
		t.Error("LoadAndValidate should reject an http url")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := Config{Client: ClientConfig{URL: "wss://example.com/ws"}}
		cfg.ApplyDefaults()
		return cfg
	}
	retries := 3

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing url",
			mutate:  func(c *Config) { c.Client.URL = "" },
			wantErr: "client.url is required",
		},
		{
			name:    "wrong scheme",
			mutate:  func(c *Config) { c.Client.URL = "https://example.com" },
			wantErr: `client.url must use ws or wss, got "https"`,
		},
		{
			name:    "missing host",
			mutate:  func(c *Config) { c.Client.URL = "ws:///path" },
			wantErr: "client.url must include a host",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Client.Transport = "nhooyr" },
			wantErr: `client.transport must be "gorilla" or "coder", got "nhooyr"`,
		},
		{
			name: "heartbeat negative interval",
			mutate: func(c *Config) {
				c.Heartbeat.Enabled = true
				c.Heartbeat.Interval = -time.Second
			},
			wantErr: "heartbeat.interval must be > 0",
		},
		{
			name: "unknown backoff",
			mutate: func(c *Config) {
				c.Reconnect.Enabled = true
				c.Reconnect.Backoff = "linear"
			},
			wantErr: `reconnect.backoff must be "fixed" or "exponential", got "linear"`,
		},
		{
			name: "exponential max below base",
			mutate: func(c *Config) {
				c.Reconnect.Enabled = true
				c.Reconnect.Backoff = BackoffExponential
				c.Reconnect.Delay = 10 * time.Second
				c.Reconnect.MaxDelay = time.Second
			},
			wantErr: "reconnect.max_delay (1s) cannot be below reconnect.delay (10s)",
		},
		{
			name:    "recorder missing host",
			mutate:  func(c *Config) { c.Recorder.Enabled = true },
			wantErr: "recorder.database.host is required",
		},
		{
			name: "recorder min_conns exceeds max_conns",
			mutate: func(c *Config) {
				c.Recorder.Enabled = true
				c.Recorder.Database = DBConfig{Host: "localhost", Name: "db", User: "user", MaxConns: 2, MinConns: 5}
			},
			wantErr: "recorder.database.min_conns (5) cannot exceed max_conns (2)",
		},
		{
			name: "metrics port out of range",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Port = 70000
			},
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: `log.format must be text or json, got "xml"`,
		},
		{
			name: "valid full config",
			mutate: func(c *Config) {
				c.Heartbeat.Enabled = true
				c.Reconnect.Enabled = true
				c.Reconnect.Retries = &retries
				c.Recorder.Enabled = true
				c.Recorder.Database.Host = "localhost"
				c.Recorder.Database.Name = "wsconn"
				c.Recorder.Database.User = "recorder"
				c.Metrics.Enabled = true
			},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
