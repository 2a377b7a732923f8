package recorder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of *pgxpool.Pool the recorder needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Direction of a recorded frame.
type Direction string

const (
	Inbound  Direction = "in"
	Outbound Direction = "out"
)

// Event names written to ws_events.
const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
	EventReconnecting = "reconnecting"
	EventReconnected  = "reconnected"
	EventError        = "error"
	EventGaveUp       = "gave_up"
)

// Config holds recorder settings.
type Config struct {
	BatchSize     int           // Rows per batch before a forced flush
	FlushInterval time.Duration // Max time rows wait in memory
	BufferSize    int           // Pending entries kept before the oldest is dropped
}

// DefaultConfig returns the default recorder settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:     500,
		FlushInterval: time.Second,
		BufferSize:    10000,
	}
}

// Stats holds recorder counters.
type Stats struct {
	Messages int64 // ws_messages rows written
	Events   int64 // ws_events rows written
	Dropped  int64 // Entries evicted from a full input buffer
	Flushes  int64
	Errors   int64
}

type messageRow struct {
	SessionID  uuid.UUID
	Direction  Direction
	Kind       string
	Payload    []byte
	ReceivedAt time.Time
}

type eventRow struct {
	SessionID uuid.UUID
	Event     string
	Detail    string
	At        time.Time
}

// entry is one pending row; exactly one field is set.
type entry struct {
	message *messageRow
	event   *eventRow
}
