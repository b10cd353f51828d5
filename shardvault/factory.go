package shardvault

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// Factory creates shard vaults from location URIs and manages
// multi-backend configurations for replicated shards.
//
// Memory vaults are cached per name so that repeated lookups of the same
// mem:// URI resolve to the same in-process shard.
type Factory struct {
	log *slog.Logger

	mu        sync.Mutex
	memVaults map[string]*MemoryVault
}

// NewFactory creates a new factory instance.
func NewFactory(logger *slog.Logger) *Factory {
	return &Factory{
		log:       logger,
		memVaults: make(map[string]*MemoryVault),
	}
}

// VaultFor creates a shard vault from a location URI.
// The URI format is [scheme]://[auth@]host[:port][/path][?params]
//
// Supported schemes:
//   - file:// - Local filesystem shard
//   - mem:// - In-process shard for tests and decoys
//   - s3:// - Amazon S3 or compatible object storage
//   - vault:// - HashiCorp Vault KV v2 secret
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) VaultFor(locationURI string) (interfaces.ShardVault, error) {
	loc, err := interfaces.NewShardLocation(locationURI)
	if err != nil {
		return nil, err
	}

	switch {
	case loc.IsFile():
		return f.createFileVault(loc)
	case loc.IsMemory():
		return f.createMemoryVault(loc)
	case loc.IsS3():
		return f.createS3Vault(loc)
	case loc.IsVault():
		return f.createVaultKV(loc)
	default:
		return nil, fmt.Errorf("unsupported vault scheme: %s", loc.Scheme)
	}
}

// CreateMultiVault creates a replicated vault from a list of location URIs.
// Invalid locations are skipped with a warning; an error is returned only
// if no valid vault could be created.
func (f *Factory) CreateMultiVault(locationURIs []string) (interfaces.ShardVault, error) {
	vaults := make([]interfaces.ShardVault, 0, len(locationURIs))

	for _, uri := range locationURIs {
		vault, err := f.VaultFor(uri)
		if err != nil {
			f.log.Warn("Failed to create shard vault",
				"err", err,
				slog.String("locationURI", uri))
			continue
		}
		vaults = append(vaults, vault)
	}

	if len(vaults) == 0 {
		return nil, fmt.Errorf("no valid shard vaults created")
	}

	return NewMultiVault(vaults, f.log), nil
}

// createFileVault creates a local filesystem vault.
// URI format: file:///var/lib/shards/shard_0.bin
func (f *Factory) createFileVault(loc interfaces.ShardLocation) (interfaces.ShardVault, error) {
	f.log.Debug("Creating file vault", slog.String("uri", loc.Raw))
	return NewFileVault(loc.Path, f.log)
}

// createMemoryVault creates or reuses an in-process vault.
// URI format: mem://shard-name
func (f *Factory) createMemoryVault(loc interfaces.ShardLocation) (interfaces.ShardVault, error) {
	name := loc.Host
	if name == "" {
		name = strings.TrimPrefix(loc.Path, "/")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if vault, ok := f.memVaults[name]; ok {
		return vault, nil
	}

	f.log.Debug("Creating memory vault", slog.String("name", name))
	vault := NewMemoryVault(name)
	f.memVaults[name] = vault
	return vault, nil
}

// createS3Vault creates an S3 vault.
// URI format: s3://[ACCESS_KEY:SECRET_KEY@]bucket/key?region=eu-west-1&endpoint=minio:9000
func (f *Factory) createS3Vault(loc interfaces.ShardLocation) (interfaces.ShardVault, error) {
	f.log.Debug("Creating S3 vault", slog.String("bucket", loc.Host))

	region := loc.GetParam("region")
	if region == "" {
		region = "us-east-1"
	}
	endpoint := loc.GetParam("endpoint")

	if loc.Username != "" {
		f.log.Debug("Using embedded credentials for S3 write access")
	}

	return NewS3Vault(loc.Host, loc.Path, region, endpoint, loc.Username, loc.Password, f.log)
}

// createVaultKV creates a HashiCorp Vault KV v2 vault.
// URI format: vault://server:8200/shards/shard_0?mount=secret&token=...&insecure=true
func (f *Factory) createVaultKV(loc interfaces.ShardLocation) (interfaces.ShardVault, error) {
	f.log.Debug("Creating Vault KV vault", slog.String("server", loc.Host))

	scheme := "https"
	if loc.GetParamBool("insecure") {
		scheme = "http"
	}
	address := fmt.Sprintf("%s://%s", scheme, loc.Host)

	mount := loc.GetParam("mount")
	if mount == "" {
		mount = "secret"
	}

	return NewVaultKV(address, mount, loc.Path, loc.GetParam("token"), f.log)
}
