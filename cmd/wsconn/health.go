package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rickgao/wsconn/internal/connection"
)

// pinger is satisfied by *pgxpool.Pool.
type pinger interface {
	Ping(ctx context.Context) error
}

type connectionStatus interface {
	Stats() connection.Stats
}

// createHealthHandler reports the connection state and, when recording,
// database reachability.
func createHealthHandler(conn connectionStatus, db pinger, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		stats := conn.Stats()
		health.Components["websocket"] = map[string]any{
			"state":          stats.State.String(),
			"retry_count":    stats.RetryCount,
			"buffered":       stats.Buffered,
			"uptime_seconds": int64(stats.Uptime().Seconds()),
		}
		switch stats.State {
		case connection.StateConnecting:
			health.Status = "degraded"
		case connection.StateClosed:
			health.Status = "unhealthy"
		}

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["postgres"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["postgres"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Error("failed to encode health response", "error", err)
		}
	})
}
