// Package metrics exposes connection and recorder statistics to Prometheus.
//
// Collectors read a Stats snapshot on every scrape, so no instrumentation
// calls are spread through the connection code.
//
// Key metrics:
//   - Connection state, retry count and outbound buffer depth
//   - Frame, heartbeat and reconnect counters
//   - Recorder rows written, drops and insert errors
package metrics
