package shardvault

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// FileVault holds a single shard in a local filesystem file.
type FileVault struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileVault creates a vault bound to the given filesystem path.
// The file does not need to exist yet; Fetch reports ErrShardNotFound
// until it does.
func NewFileVault(path string, log *slog.Logger) (*FileVault, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty file path", interfaces.ErrInvalidLocationURI)
	}

	path = filepath.Clean(path)

	return &FileVault{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}, nil
}

// Fetch reads the current shard content from disk.
func (v *FileVault) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, interfaces.ErrShardNotFound
		}
		return nil, fmt.Errorf("failed to read shard file: %w", err)
	}

	v.log.Debug("Fetched shard from file",
		slog.String("path", v.path),
		slog.Int("size", len(data)))

	return data, nil
}

// Overwrite destructively replaces the shard content in place and flushes
// it to stable storage. The write deliberately reuses the existing file
// rather than renaming a new one over it, so the previous content is
// clobbered on the same inode.
func (v *FileVault) Overwrite(ctx context.Context, content []byte) error {
	f, err := os.OpenFile(v.path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open shard file for overwrite: %w", err)
	}

	if _, err := f.Write(content); err != nil {
		f.Close()
		return fmt.Errorf("failed to overwrite shard file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync shard file: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close shard file: %w", err)
	}

	v.log.Debug("Overwrote shard file",
		slog.String("path", v.path),
		slog.Int("size", len(content)))

	return nil
}

// Available checks that the directory holding the shard exists.
func (v *FileVault) Available(ctx context.Context) bool {
	_, err := os.Stat(filepath.Dir(v.path))
	if err != nil {
		v.log.Debug("File vault unavailable", "err", err)
		return false
	}
	return true
}

// Name returns a unique identifier for this vault.
func (v *FileVault) Name() string {
	return fmt.Sprintf("file-%s", filepath.Base(v.path))
}

// LocationURI returns the URI that identifies this vault.
func (v *FileVault) LocationURI() string {
	return v.locationURI
}
