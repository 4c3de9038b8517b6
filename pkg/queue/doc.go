// Package queue buffers telemetry records in memory and flushes them to the
// delivery client by size or time.
//
// # Overview
//
// Enqueue appends to an in-memory buffer and mirrors the record into a
// durable backup store as a crash-safety net. Reaching MaxQueueSize (10)
// triggers an immediate flush; otherwise a single 10-second timer is
// scheduled. Flush atomically swaps the buffer for an empty one under the
// queue mutex (snapshot-then-clear), so concurrent enqueues are never lost
// or double-sent, then delivers the snapshot one record at a time in FIFO
// order. Per-record failures are logged and do not halt the rest of the
// batch: delivery is best-effort, not all-or-nothing.
//
// The in-memory buffer is the source of truth while the process is alive;
// the backup (bounded to the 50 most recent records) exists only to survive
// a crash. It is cleared when a whole snapshot delivers, and individual
// records are removed as they deliver. Restore re-enqueues surviving backup
// records at startup.
//
// ForceFlush cancels any pending timer and flushes immediately; it is the
// shutdown/unload path and is explicitly best-effort.
//
// # Related Packages
//
//   - pkg/delivery: receives flushed records through the Sender interface
//   - pkg/clock: supplies the injectable timer used for the flush schedule
package queue
