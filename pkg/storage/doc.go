// Package storage holds the backend connection plumbing.
//
// The pipeline talks to two backends: the Postgres ingestion database
// (writes through the delivery tiers, reads through the stats service) and
// an optional Redis (session persistence and the Pub/Sub change feed).
// Subpackage postgres owns pooled connections to both, including optional
// read replicas for the dashboard queries.
package storage
