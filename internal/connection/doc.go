// Package connection implements the Connection Manager.
//
// The Connection Manager:
//   - Owns exactly one WebSocket session at a time (CLOSED → CONNECTING → OPEN)
//   - Buffers outbound messages while not open and flushes them in order
//   - Probes liveness with an application-level ping and expected reply
//   - Reconnects after unintended closes with a configurable retry policy and backoff
//
// Every session is tagged with a generation number. Events from a session's
// reader goroutine and every timer fire are dropped once that generation is
// no longer current, so a replaced or closed session can never change state.
package connection
