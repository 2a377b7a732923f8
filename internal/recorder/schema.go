package recorder

import (
	"context"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS ws_messages (
	id          BIGSERIAL PRIMARY KEY,
	session_id  UUID        NOT NULL,
	direction   TEXT        NOT NULL,
	kind        TEXT        NOT NULL,
	payload     BYTEA       NOT NULL,
	received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ws_messages_session_idx ON ws_messages (session_id, received_at);

CREATE TABLE IF NOT EXISTS ws_events (
	id         BIGSERIAL PRIMARY KEY,
	session_id UUID        NOT NULL,
	event      TEXT        NOT NULL,
	detail     TEXT        NOT NULL DEFAULT '',
	at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ws_events_session_idx ON ws_events (session_id, at);
`

// EnsureSchema creates the recorder tables if they do not exist.
func EnsureSchema(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create recorder schema: %w", err)
	}
	return nil
}
