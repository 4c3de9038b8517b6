// Package session issues and expires the opaque session identifier used to
// correlate telemetry events.
//
// # Overview
//
// A session is `{id, started_at}` with a sliding 30-minute window: every
// call that observes an active session also refreshes started_at, so the
// session only expires after 30 idle minutes. Expired sessions are replaced
// atomically under the manager's mutex; two concurrent callers can never
// observe different ids for overlapping calls.
//
// GetSessionID never fails from the caller's perspective. Persistence errors
// are logged and the in-memory session remains authoritative while the
// process is alive.
//
// # Stores
//
//   - MemoryStore: process-local, used when no Redis is configured
//   - RedisStore: survives process restarts, TTL-enforced server side
package session
