package shardvault

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// VaultKV holds a single shard as a HashiCorp Vault KV v2 secret.
// Shard bytes are base64-encoded inside the secret payload since KV
// values must survive JSON transport unchanged.
type VaultKV struct {
	client      *api.Client
	mountPath   string
	secretPath  string
	log         *slog.Logger
	locationURI string
}

// NewVaultKV creates a vault bound to a single KV v2 secret.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.internal:8200)
//   - mountPath: KV v2 mount (e.g. "secret")
//   - secretPath: path within the mount (e.g. "shards/shard_0")
//   - token: Vault token; empty falls back to the VAULT_TOKEN environment
func NewVaultKV(address, mountPath, secretPath, token string, log *slog.Logger) (*VaultKV, error) {
	config := api.DefaultConfig()
	config.Address = address
	config.Timeout = 30 * time.Second

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if token != "" {
		client.SetToken(token)
	}

	mountPath = strings.Trim(mountPath, "/")
	secretPath = strings.Trim(secretPath, "/")

	return &VaultKV{
		client:      client,
		mountPath:   mountPath,
		secretPath:  secretPath,
		log:         log,
		locationURI: fmt.Sprintf("vault://%s/%s/%s", strings.TrimPrefix(address, "https://"), mountPath, secretPath),
	}, nil
}

func (v *VaultKV) dataPath() string {
	return fmt.Sprintf("%s/data/%s", v.mountPath, v.secretPath)
}

// Fetch retrieves and decodes the shard secret.
func (v *VaultKV) Fetch(ctx context.Context) ([]byte, error) {
	start := time.Now()
	path := v.dataPath()

	secret, err := v.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		v.log.Error("Failed to read shard from Vault",
			slog.String("path", path),
			"err", err)
		return nil, fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	if secret == nil || secret.Data == nil {
		v.log.Debug("Shard not found in Vault", slog.String("path", path))
		return nil, interfaces.ErrShardNotFound
	}

	// KV v2 wraps the payload in a nested data map
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid data format in Vault response")
	}

	encoded, ok := data["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content key not found in Vault data")
	}

	content, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode shard content: %w", err)
	}

	v.log.Debug("Fetched shard from Vault",
		slog.String("path", path),
		slog.Int("size", len(content)),
		slog.Duration("duration", time.Since(start)))

	return content, nil
}

// Overwrite destructively replaces the shard secret. KV v2 retains old
// versions by default, so the mount should be configured with
// max_versions=1 when true destruction is required.
func (v *VaultKV) Overwrite(ctx context.Context, content []byte) error {
	start := time.Now()
	path := v.dataPath()

	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"content": base64.StdEncoding.EncodeToString(content),
		},
	}

	if _, err := v.client.Logical().WriteWithContext(ctx, path, secretData); err != nil {
		v.log.Error("Failed to overwrite shard in Vault",
			slog.String("path", path),
			"err", err)
		return fmt.Errorf("%w: %v", interfaces.ErrBackendUnavailable, err)
	}

	v.log.Debug("Overwrote shard in Vault",
		slog.String("path", path),
		slog.Int("size", len(content)),
		slog.Duration("duration", time.Since(start)))

	return nil
}

// Available checks that Vault is initialized and unsealed.
func (v *VaultKV) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := v.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		v.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		v.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Name returns a unique identifier for this vault.
func (v *VaultKV) Name() string {
	return fmt.Sprintf("vault-%s-%s", v.mountPath, v.secretPath)
}

// LocationURI returns the URI that identifies this vault.
func (v *VaultKV) LocationURI() string {
	return v.locationURI
}
