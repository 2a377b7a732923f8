package main

import (
	"log/slog"
	"net/http"

	"github.com/rickgao/wsconn/internal/config"
	"github.com/rickgao/wsconn/internal/connection"
	"github.com/rickgao/wsconn/internal/version"
)

// managerOptions translates the config into connection options. Callbacks
// are added by the caller.
func managerOptions(cfg *config.Config, logger *slog.Logger) []connection.Option {
	opts := []connection.Option{
		connection.WithLogger(logger),
		connection.WithDialer(buildDialer(cfg.Client)),
		connection.WithBuffer(cfg.Client.Buffering()),
		connection.WithMaxBufferSize(cfg.Client.MaxBufferSize),
		// The CLI opens once its callbacks and sinks are wired
		connection.WithImmediate(false),
	}
	if len(cfg.Client.Protocols) > 0 {
		opts = append(opts, connection.WithProtocols(cfg.Client.Protocols...))
	}
	if hb := buildHeartbeat(cfg.Heartbeat); hb != nil {
		opts = append(opts, connection.WithHeartbeat(*hb))
	}
	return opts
}

func buildDialer(cfg config.ClientConfig) connection.Dialer {
	header := http.Header{}
	header.Set("User-Agent", version.UserAgent())

	if cfg.Transport == config.TransportCoder {
		return connection.CoderDialer{
			WriteTimeout: cfg.WriteTimeout,
			ReadLimit:    cfg.ReadLimit,
			Header:       header,
		}
	}
	return connection.GorillaDialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		WriteTimeout:     cfg.WriteTimeout,
		ReadLimit:        cfg.ReadLimit,
		Header:           header,
	}
}

func buildHeartbeat(cfg config.HeartbeatConfig) *connection.HeartbeatConfig {
	if !cfg.Enabled {
		return nil
	}
	probe := connection.TextMessage(cfg.Message)
	reply := connection.TextMessage(cfg.ResponseMessage)
	if cfg.Binary {
		probe = connection.BinaryMessage([]byte(cfg.Message))
		reply = connection.BinaryMessage([]byte(cfg.ResponseMessage))
	}
	return &connection.HeartbeatConfig{
		Message:         probe,
		ResponseMessage: reply,
		Interval:        cfg.Interval,
		PongTimeout:     cfg.PongTimeout,
	}
}

// buildReconnect returns nil when reconnection is disabled. onFailed is
// called when the retry policy gives up.
func buildReconnect(cfg config.ReconnectConfig, onFailed func()) *connection.ReconnectConfig {
	if !cfg.Enabled {
		return nil
	}

	delay := connection.FixedDelay(cfg.Delay)
	if cfg.Backoff == config.BackoffExponential {
		delay = connection.ExponentialDelay(cfg.Delay, cfg.MaxDelay)
	}

	return &connection.ReconnectConfig{
		Retries:  connection.MaxRetries(cfg.MaxRetries()),
		Delay:    delay,
		OnFailed: onFailed,
	}
}
