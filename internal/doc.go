// Package internal holds the event registration server internals.
//
// The tree is organized by responsibility:
//   - api: HTTP routing, handlers, middleware and problem responses
//   - domain: users, events and registrations with their rules
//   - storage: PostgreSQL repositories and migrations
//   - jobs: River workers that deliver registration emails
//   - auth, audit, config, email, metrics, telemetry: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
