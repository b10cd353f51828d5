// Package alerts implements delivery of integrity alerts to operators.
//
// # Delivery Bus
//
// Bus fans a single alert out to every registered sink. Sinks are
// isolated from each other and from the enforcement cycle: a sink that
// returns an error or panics is logged and skipped, never interrupting
// delivery to the remaining sinks or the cycle that raised the alert.
//
// # Sinks
//
//   - LogSink: structured log records for every alert
//   - Journal: durable SQLite journal with recent-alert queries, giving
//     operators a forensic record that survives process restarts
//   - WebhookSink: JSON POST delivery to an external endpoint
//
// Custom sinks implement interfaces.AlertSink; interfaces.AlertSinkFunc
// adapts plain functions.
package alerts
