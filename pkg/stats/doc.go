// Package stats serves the read aggregates consumed by dashboards.
//
// # Overview
//
// Service answers four read-only questions against the ingestion backend:
// activity by document type, daily activity over the last N days, overall
// totals with a per-type breakdown, and the lifetime numbers of one
// document. CachedService wraps it with an LRU cache whose entries are
// invalidated by the change feed rather than a TTL, so dashboards see
// fresh counts without polling.
//
// Aggregator maintains the event_stats_daily rollup table that the daily
// queries read; Scheduler runs it once a day shortly after midnight.
//
// # Related Packages
//
//   - pkg/notify: the change feed driving cache invalidation
//   - pkg/delivery: the write path filling the events table
package stats
