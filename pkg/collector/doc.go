// Package collector is the tracking entrypoint of the pipeline.
//
// # Overview
//
// The Collector validates and normalizes caller-supplied interactions into
// uniform events, stamps them with the active session and a client context
// snapshot, and routes them: passive signal types go to the batch queue,
// interactive downloads go straight through the delivery client so the
// caller gets a per-call acknowledgement.
//
// Tracking calls never return errors and never panic past their boundary.
// A record that fails validation is dropped silently (logged and counted);
// observability must not degrade the primary user experience.
//
// # Related Packages
//
//   - pkg/queue: buffering and flush scheduling for batched types
//   - pkg/delivery: the tiered fallback chain behind downloads
//   - pkg/session: sliding-window session identity
//   - pkg/clientinfo: ambient context snapshots
package collector
