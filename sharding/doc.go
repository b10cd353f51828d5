// Package sharding splits key material into threshold-recoverable shards
// and distributes them to custodians.
//
// # Shard Format
//
// Split produces hex-encoded shards. Each decodes to an index byte, a
// Shamir share payload, and a 32-byte timelock seal: a SHA-256 digest over
// the payload and index, iterated 2^difficulty times. Any threshold subset
// of shards reconstructs the secret; fewer reveal nothing about it. The
// seal makes shard substitution detectable at reconstruction time, at a
// verification cost fixed when the shards were cut.
//
// # Distribution
//
// CustodianResolver discovers delivery endpoints from DNS SRV records
// published under each custodian domain. Dispatcher encrypts each shard
// against its custodian's public key using ECIES with an ephemeral ECDH
// key and AES-GCM, then delivers it over HTTP. No custodian receives more
// than one shard.
//
// # Quality Gate
//
// CheckShardQuality rejects shard sets whose decoded bytes fall short of
// near-maximal entropy for their length, or whose bit balance sits
// suspiciously close to an exact half. This catches degraded, truncated,
// or synthetic shards before they leave the process.
package sharding
