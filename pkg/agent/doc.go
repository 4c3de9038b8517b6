// Package agent is the HTTP surface of the pipeline.
//
// # Overview
//
// Browser clients post interactions and performance samples here; dashboard
// consumers read the aggregates. The ingestion endpoints respond before
// delivery happens (202 for batched types) except for downloads, which
// report whether some delivery tier acknowledged the record.
//
// Client context (user agent, referrer, page URL, screen size) is captured
// per request and carried through the request context, so records reflect
// the posting client rather than the agent process.
//
// # Related Packages
//
//   - pkg/collector: validation, normalization, and routing behind ingestion
//   - pkg/stats: the read aggregates behind the dashboard endpoints
package agent
