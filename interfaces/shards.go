package interfaces

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ShardID uniquely identifies a monitored shard within the enforcer.
// For file-backed shards this is the cleaned path; for remote backends
// it is the full location URI.
type ShardID string

// String returns the string representation of the shard ID.
func (id ShardID) String() string { return string(id) }

// Storage and monitoring errors.
var (
	// ErrShardNotFound indicates the requested shard does not exist in the vault
	ErrShardNotFound = errors.New("shard not found")

	// ErrBackendUnavailable indicates the shard holding backend cannot be reached
	ErrBackendUnavailable = errors.New("storage backend unavailable")

	// ErrInvalidLocationURI indicates a malformed or unsupported shard location URI
	ErrInvalidLocationURI = errors.New("invalid shard location URI")

	// ErrVaultReadOnly indicates an overwrite was attempted on a read-only vault
	ErrVaultReadOnly = errors.New("shard vault is read-only")
)

// ShardLocation represents a parsed shard location URI with scheme-specific
// fields. Supported schemes are file, mem, s3 and vault.
type ShardLocation struct {
	// Raw is the original unparsed URI string
	Raw string

	// Scheme identifies the backend type (file, mem, s3, vault)
	Scheme string

	// Host holds the bucket name for s3 and the server address for vault
	Host string

	// Path is the object key, mount path or filesystem path
	Path string

	// Query holds backend-specific parameters (region, token, namespace)
	Query url.Values

	// Username and Password hold credentials embedded in the URI
	Username string
	Password string
}

// NewShardLocation parses and validates a shard location URI.
// Returns ErrInvalidLocationURI if the URI is malformed or the scheme
// is not supported.
func NewShardLocation(raw string) (ShardLocation, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return ShardLocation{}, fmt.Errorf("%w: %v", ErrInvalidLocationURI, err)
	}

	loc := ShardLocation{
		Raw:    raw,
		Scheme: strings.ToLower(u.Scheme),
		Host:   u.Host,
		Path:   u.Path,
		Query:  u.Query(),
	}
	if u.User != nil {
		loc.Username = u.User.Username()
		loc.Password, _ = u.User.Password()
	}

	switch loc.Scheme {
	case "file":
		if loc.Path == "" {
			return ShardLocation{}, fmt.Errorf("%w: file URI requires a path", ErrInvalidLocationURI)
		}
	case "mem":
		if loc.Host == "" && loc.Path == "" {
			return ShardLocation{}, fmt.Errorf("%w: mem URI requires a shard name", ErrInvalidLocationURI)
		}
	case "s3":
		if loc.Host == "" {
			return ShardLocation{}, fmt.Errorf("%w: s3 URI requires a bucket", ErrInvalidLocationURI)
		}
		if strings.TrimPrefix(loc.Path, "/") == "" {
			return ShardLocation{}, fmt.Errorf("%w: s3 URI requires an object key", ErrInvalidLocationURI)
		}
	case "vault":
		if loc.Host == "" {
			return ShardLocation{}, fmt.Errorf("%w: vault URI requires a server address", ErrInvalidLocationURI)
		}
		if strings.TrimPrefix(loc.Path, "/") == "" {
			return ShardLocation{}, fmt.Errorf("%w: vault URI requires a secret path", ErrInvalidLocationURI)
		}
	default:
		return ShardLocation{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidLocationURI, u.Scheme)
	}

	return loc, nil
}

// IsFile returns true if the location refers to a local filesystem shard.
func (l ShardLocation) IsFile() bool { return l.Scheme == "file" }

// IsMemory returns true if the location refers to an in-memory shard.
func (l ShardLocation) IsMemory() bool { return l.Scheme == "mem" }

// IsS3 returns true if the location refers to an S3 object.
func (l ShardLocation) IsS3() bool { return l.Scheme == "s3" }

// IsVault returns true if the location refers to a Vault KV secret.
func (l ShardLocation) IsVault() bool { return l.Scheme == "vault" }

// GetParam returns the named query parameter, or an empty string if unset.
func (l ShardLocation) GetParam(name string) string {
	if l.Query == nil {
		return ""
	}
	return l.Query.Get(name)
}

// GetParamBool returns true if the named query parameter is set to a
// truthy value (1, true, yes).
func (l ShardLocation) GetParamBool(name string) bool {
	switch strings.ToLower(l.GetParam(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// ShardID derives the canonical shard identifier for this location.
func (l ShardLocation) ShardID() ShardID {
	if l.IsFile() {
		return ShardID(l.Path)
	}
	return ShardID(l.Raw)
}

// ShardVault provides access to a single piece of shard material held by
// a storage backend. Implementations must be safe for concurrent use.
type ShardVault interface {
	// Fetch returns the current shard content.
	// Returns ErrShardNotFound if the shard does not exist.
	Fetch(ctx context.Context) ([]byte, error)

	// Overwrite destructively replaces the shard content. The previous
	// content is unrecoverable once Overwrite returns.
	// Returns ErrVaultReadOnly if the backend does not permit writes.
	Overwrite(ctx context.Context, content []byte) error

	// Available reports whether the backend is reachable.
	Available(ctx context.Context) bool

	// Name returns a human-readable identifier for logging.
	Name() string

	// LocationURI returns the URI this vault was created from.
	LocationURI() string
}

// VaultFactory creates shard vaults from location URIs.
type VaultFactory interface {
	// VaultFor creates a vault for a single location URI.
	VaultFor(locationURI string) (ShardVault, error)

	// CreateMultiVault creates a replicated vault spanning multiple
	// locations, fetching from the first available backend and
	// overwriting all of them.
	CreateMultiVault(locationURIs []string) (ShardVault, error)
}
