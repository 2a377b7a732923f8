// Package recorder persists traffic and lifecycle events of a connection to
// PostgreSQL.
//
// Tables:
//   - ws_messages: one row per inbound or outbound frame
//   - ws_events: connected, disconnected, reconnecting, error, gave_up
//
// Rows are accumulated in memory and written with pgx.Batch, either when a
// batch fills up or on the flush interval. Writes are append-only.
package recorder
