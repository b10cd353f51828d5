package common

// PackageName tags metrics and logs emitted by this service.
const PackageName = "shard-integrity-enforcer"

// Version is the service version, overridden at build time via
// -ldflags "-X github.com/ruteri/shard-integrity-enforcer/common.Version=v1.2.3".
var Version = "dev"
