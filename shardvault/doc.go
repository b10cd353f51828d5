// Package shardvault implements shard holding backends behind the
// interfaces.ShardVault contract.
//
// # Supported Backends
//
// Each backend binds a vault instance to exactly one shard location:
//
//   - FileVault: local filesystem shards (file:///path/to/shard.bin)
//   - MemoryVault: in-process shards for tests and decoys (mem://name)
//   - S3Vault: Amazon S3 or compatible object storage
//     (s3://[KEY:SECRET@]bucket/key?region=eu-west-1&endpoint=minio:9000)
//   - VaultKV: HashiCorp Vault KV v2 secrets
//     (vault://server:8200/path/to/shard?mount=secret&token=...)
//
// # Factory
//
// Factory creates vaults from location URIs and aggregates several
// locations into a MultiVault for replicated shards. A MultiVault
// fetches from the first available backend. Overwrites attempt every
// backend and fail if any replica refuses the write, since remediation
// must not leave surviving copies of condemned material.
//
// # Fingerprints
//
// Fingerprint computes Keccak-256 digests of shard content for the
// audit trail, so the operator can later prove which material was
// destroyed without retaining the material itself.
package shardvault
