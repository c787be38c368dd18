// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics for the hioload-tcp multiplexer.
//
// Provides Prometheus collectors for:
//   - Live connection count and admission outcomes
//   - Bytes moved between sockets and FIFOs
//   - Non-fatal I/O errors by operation
//   - Readiness wait latency and delivered notifications
//
// A nil *Metrics is valid and records nothing.
package control
