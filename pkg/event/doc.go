// Package event defines the telemetry data model for the pulse pipeline.
//
// # Overview
//
// Two record shapes flow through the pipeline: Event, a discrete user or
// system action (view, download, share, search, click, page view), and
// MetricsRecord, a batched snapshot of browser performance timing data.
// MetricsRecords are normalized into Events at the collector boundary so the
// queue and the delivery tiers only ever handle one shape.
//
// # Identifier handling
//
// The ingestion backend keys events by document UUID. Caller-supplied
// document references that are not valid UUIDs are never dropped: the stored
// document id is replaced by the sentinel uuid.Nil and the original string is
// preserved under payload["document_reference"]. NormalizeDocumentID
// implements this rule in one place for every delivery tier.
//
// # Related Packages
//
//   - pkg/collector: validates and normalizes incoming track calls
//   - pkg/queue: buffers QueueItems and mirrors them to durable backup
//   - pkg/delivery: sends Events through the tiered fallback chain
package event
