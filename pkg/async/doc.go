// Package async provides safe concurrent execution for fire-and-forget
// pipeline work.
//
// # Overview
//
// Telemetry must never degrade the primary user experience: background tasks
// spawned by the pipeline (download-count increments, change-feed dispatch)
// run through SafeGo, which adds panic recovery, a per-task timeout, context
// cancellation, and error logging on top of a bare goroutine.
//
// # Related Packages
//
//   - pkg/delivery: uses SafeGo for the independent count increment
//   - pkg/notify: uses SafeGo for subscriber callback dispatch
package async
