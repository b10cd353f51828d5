package shardvault

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// MultiVault spans several backends holding replicas of the same shard.
// Fetch returns the first replica an available backend can produce.
// Overwrite must reach every backend: a replica that survives remediation
// defeats its purpose, so partial success is an error.
type MultiVault struct {
	vaults []interfaces.ShardVault
	log    *slog.Logger
}

// NewMultiVault creates a replicated vault over the given backends.
func NewMultiVault(vaults []interfaces.ShardVault, logger *slog.Logger) *MultiVault {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiVault{
		vaults: vaults,
		log:    logger,
	}
}

// Fetch returns shard content from the first available backend holding it.
func (m *MultiVault) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	var errs []error

	for _, vault := range m.vaults {
		if !vault.Available(ctx) {
			m.log.Debug("Vault unavailable",
				slog.String("vault_name", vault.Name()))
			continue
		}

		data, err := vault.Fetch(ctx)
		if err == nil {
			m.log.Debug("Fetched shard replica",
				slog.String("vault_name", vault.Name()),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", vault.Name(), err))
		m.log.Debug("Failed to fetch from vault",
			slog.String("vault_name", vault.Name()),
			"err", err)
	}

	m.log.Error("All vaults failed to fetch shard",
		slog.Int("failed_vaults", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("all vaults failed to fetch shard: %v", errs)
}

// Overwrite replaces the shard content on every backend. All backends are
// attempted even after a failure; an error is returned if any replica
// could not be overwritten.
func (m *MultiVault) Overwrite(ctx context.Context, content []byte) error {
	start := time.Now()
	var errs []error

	for _, vault := range m.vaults {
		if err := vault.Overwrite(ctx, content); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", vault.Name(), err))
			m.log.Error("Failed to overwrite shard replica",
				slog.String("vault_name", vault.Name()),
				"err", err)
			continue
		}

		m.log.Debug("Overwrote shard replica",
			slog.String("vault_name", vault.Name()))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%d of %d replicas not overwritten: %v", len(errs), len(m.vaults), errs)
	}

	m.log.Debug("Overwrote all shard replicas",
		slog.Int("replicas", len(m.vaults)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks if any backend is available.
func (m *MultiVault) Available(ctx context.Context) bool {
	for _, vault := range m.vaults {
		if vault.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this vault.
func (m *MultiVault) Name() string {
	return "multi-vault"
}

// LocationURI returns a combined URI listing all backends.
func (m *MultiVault) LocationURI() string {
	var locations []string
	for _, vault := range m.vaults {
		locations = append(locations, vault.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
