// Package delivery sends telemetry events to the Postgres ingestion backend
// through an ordered chain of fallback tiers.
//
// # Tier chain
//
// Each tier is attempted only when the previous one failed:
//
//  1. rpc: a single stored function call (track_user_event) that handles
//     identifier-format ambiguity and row-level security server side
//  2. insert: a raw insert into the events table with the same sentinel
//     substitution rule applied client side
//  3. minimal: a reduced record (document id, document type, file name
//     truncated to 255 characters, status), attempted only when the insert tier
//     failed with a payload/size-classified error
//
// A record's delivery states are Pending -> Sending(tier) -> Success or
// Failed. Terminal states are final: there is no re-entry to Pending and no
// retry scheduling beyond the three tiers.
//
// # Error classification
//
// Backend errors arrive in heterogeneous shapes (pq errors, net errors,
// context deadlines). Classify maps them to a small kind set (validation,
// network, payload_too_large, unknown) before any branching logic, and
// Send converts every outcome to a plain bool. Nothing in this package
// panics past its boundary or returns an error to the tracking path.
//
// # Count increment
//
// The best-effort download-count increment on the parent document is
// deliberately decoupled from event logging: either may succeed while the
// other fails. Availability of at least one signal beats strict consistency
// between the two.
package delivery
