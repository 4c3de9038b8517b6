// Package config provides environment-driven configuration for the pulse
// pipeline, with an optional YAML file overlay.
//
// # Overview
//
// Defaults match the shipped pipeline constants (queue size 10, 10 s flush
// interval, 50-record backup bound, 30-minute sliding sessions). Environment
// variables use the PULSE_ prefix and take precedence over file values:
//
//	PULSE_DATABASE_URL=postgres://localhost/journals?sslmode=disable
//	PULSE_REDIS_URL=redis://localhost:6379/0
//	PULSE_FLUSH_INTERVAL=10s
//	PULSE_MAX_QUEUE_SIZE=10
//
// Redis is optional: without PULSE_REDIS_URL the pipeline uses in-memory
// session storage and the Postgres LISTEN/NOTIFY change feed.
package config
