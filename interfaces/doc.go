// Package interfaces defines the core types and contracts shared across the
// shard integrity enforcement system.
//
// # Shard Storage Interfaces
//
// The package defines storage abstractions for key shard material:
//
//   - ShardVault: fetch and overwrite operations for a single shard holding
//     backend (filesystem, memory, S3, Vault KV)
//   - VaultFactory: creates vault instances from location URIs
//
// Shard locations are expressed as URIs (file://, mem://, s3://, vault://)
// parsed into ShardLocation values with scheme-specific validation.
//
// # Monitoring Interfaces
//
// Runtime monitoring contracts consumed by the enforcement loop:
//
//   - EnvironmentProbe: ambient temperature readings used for side-channel
//     attack detection
//   - AlertSink: delivery target for integrity alerts
//
// # Core Types
//
// The package also defines the data types exchanged between components:
//
//   - ShardID and ShardLocation for addressing shard material
//   - Alert, AlertKind and Severity for integrity violation reporting
//   - EnforcerStatus and ShardState for operational introspection
//
// The interfaces in this package follow the dependency inversion principle:
// consumers depend on these contracts rather than concrete implementations,
// allowing backends and sinks to be swapped without touching the enforcement
// logic.
package interfaces
