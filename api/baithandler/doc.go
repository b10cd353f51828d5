// Package baithandler serves poisoned decoy payloads on unauthenticated
// routes.
//
// The payloads look like key shard material but are generated bait: each
// one carries entropysink recognition markers and complexity traps, so a
// copy that later surfaces in a leak or a trained model can be traced back
// to scraping. Requests to the bait route are themselves a signal, since
// no legitimate client has any reason to fetch a decoy, and are logged
// with the caller's address.
//
// Key components:
//   - Handler: Serves deterministic per-name poisoned payloads
//
// Endpoints:
//   - GET /api/public/payload/{name}: Poisoned payload for the named decoy
package baithandler
