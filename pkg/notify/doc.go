// Package notify carries the backend change feed to in-process subscribers.
//
// # Overview
//
// The ingestion backend emits a notification whenever an event row lands.
// Subscribers register a handler and get called for each change; the usual
// consumer is the stats cache, which invalidates aggregates on writes
// instead of polling.
//
// Two feed sources are provided. PostgresNotifier rides LISTEN/NOTIFY on
// the ingestion database; RedisNotifier rides Redis Pub/Sub for hosts that
// cannot hold a long-lived database connection. Both fan out through the
// same Hub, which is also usable standalone in tests and embedded hosts.
//
// Handler panics are recovered per dispatch so one broken subscriber
// cannot take down the feed or its peers.
package notify
