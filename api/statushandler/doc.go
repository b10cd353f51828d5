// Package statushandler implements the HTTP server and client for the
// enforcer observation API.
//
// This package exposes the state of the shard enforcement loop without ever
// exposing shard material: snapshots carry entropy readings, health flags
// and alert records, not shard bytes. The only mutating endpoint triggers
// an enforcement cycle outside the regular schedule.
//
// Key components:
//   - Handler: Serves status, shard and alert snapshots and the manual check trigger
//   - Client: Typed client for the same endpoints, used by the admin CLI
//
// Endpoints:
//   - GET /api/v1/status: Enforcement loop snapshot
//   - GET /api/v1/alerts?limit=n: Retained alerts, newest first
//   - GET /api/v1/shards: Per-shard observations
//   - POST /api/v1/check: Run an enforcement cycle now
package statushandler
