// Package httpserver provides the operational HTTP front for the shard
// integrity enforcer.
//
// The server hosts the status and bait API routes behind a logging
// middleware, exposes orchestration endpoints, and optionally serves
// Prometheus metrics on a dedicated listener so scrape traffic never
// competes with API requests.
//
// Key components:
//   - HTTPServerConfig: Listener addresses, timeouts and logging setup
//   - Server: Router construction, lifecycle management and health state
//   - RouteRegistrar: Interface API handlers implement to mount routes
//
// Orchestration endpoints:
//   - GET /livez: Liveness check, always 200 while the process serves
//   - GET /readyz: Readiness check, 503 after draining
//   - GET /drain: Flip to not-ready and start the drain window
//   - GET /undrain: Restore readiness
//
// With EnablePprof set, the standard profiler is mounted under /debug.
//
// Start the listeners with RunInBackground and stop them with Shutdown,
// which drains in-flight requests up to the configured graceful shutdown
// duration.
package httpserver
