// Package observability provides logging, metrics, health checks, and
// lifecycle helpers for the pulse telemetry pipeline.
//
// # Overview
//
// The pipeline is best-effort by design: delivery failures are logged and
// counted, never surfaced to the user path. This package supplies the
// structured JSON logger (stdlib slog), the Prometheus metric set that makes
// the silent failure modes visible, panic recovery for background
// goroutines, and graceful shutdown with a final queue flush.
//
// # Metrics
//
// All pipeline metrics live under the pulse_ prefix:
//
//   - pulse_events_tracked_total{event_type}
//   - pulse_events_rejected_total{reason}
//   - pulse_queue_depth
//   - pulse_flushes_total{trigger}
//   - pulse_delivery_attempts_total{tier}
//   - pulse_delivery_failures_total{tier, kind}
//   - pulse_backup_records
//
// # Related Packages
//
//   - pkg/queue: reports queue depth and flush triggers
//   - pkg/delivery: reports per-tier attempts and failures
package observability
