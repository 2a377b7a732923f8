package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Client.URL == "" {
		return errors.New("client.url is required")
	}
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("client.url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("client.url must use ws or wss, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("client.url must include a host")
	}

	if c.Client.MaxBufferSize < 1 {
		return errors.New("client.max_buffer_size must be >= 1")
	}
	switch c.Client.Transport {
	case TransportGorilla, TransportCoder:
	default:
		return fmt.Errorf("client.transport must be %q or %q, got %q", TransportGorilla, TransportCoder, c.Client.Transport)
	}
	if c.Client.ReadLimit < 0 {
		return errors.New("client.read_limit must be >= 0")
	}

	if c.Heartbeat.Enabled {
		if c.Heartbeat.Interval <= 0 {
			return errors.New("heartbeat.interval must be > 0")
		}
		if c.Heartbeat.PongTimeout <= 0 {
			return errors.New("heartbeat.pong_timeout must be > 0")
		}
	}

	if c.Reconnect.Enabled {
		switch c.Reconnect.Backoff {
		case BackoffFixed, BackoffExponential:
		default:
			return fmt.Errorf("reconnect.backoff must be %q or %q, got %q", BackoffFixed, BackoffExponential, c.Reconnect.Backoff)
		}
		if c.Reconnect.Delay < 0 {
			return errors.New("reconnect.delay must be >= 0")
		}
		if c.Reconnect.Backoff == BackoffExponential && c.Reconnect.MaxDelay < c.Reconnect.Delay {
			return fmt.Errorf("reconnect.max_delay (%s) cannot be below reconnect.delay (%s)", c.Reconnect.MaxDelay, c.Reconnect.Delay)
		}
	}

	if c.Recorder.Enabled {
		if c.Recorder.BatchSize < 1 {
			return errors.New("recorder.batch_size must be >= 1")
		}
		if c.Recorder.BufferSize < 1 {
			return errors.New("recorder.buffer_size must be >= 1")
		}
		if c.Recorder.FlushInterval <= 0 {
			return errors.New("recorder.flush_interval must be > 0")
		}
		if err := c.Recorder.Database.validate("recorder.database"); err != nil {
			return err
		}
	}

	if c.Metrics.Enabled && (c.Metrics.Port < 1 || c.Metrics.Port > 65535) {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
