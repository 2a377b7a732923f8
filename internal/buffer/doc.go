// Package buffer provides a generic ring-backed FIFO queue.
//
// Queues are used in three places:
//   - bounded, as the connection's outbound buffer holding payloads sent
//     while disconnected (oldest entry evicted on overflow)
//   - unbounded, as the ordered queue of pending user callbacks
//   - bounded, as the recorder's input between callbacks and the batch writer
package buffer
