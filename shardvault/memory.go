package shardvault

import (
	"context"
	"fmt"
	"sync"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// MemoryVault holds a single shard in process memory. It backs the
// mem:// scheme for tests and for decoy shards that should never touch
// stable storage.
type MemoryVault struct {
	name string

	mu      sync.RWMutex
	content []byte
	exists  bool
}

// NewMemoryVault creates an empty in-memory vault. Fetch reports
// ErrShardNotFound until the first Overwrite or SetContent.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{name: name}
}

// NewMemoryVaultWithContent creates an in-memory vault pre-seeded with
// the given shard content.
func NewMemoryVaultWithContent(name string, content []byte) *MemoryVault {
	v := NewMemoryVault(name)
	v.SetContent(content)
	return v
}

// Fetch returns a copy of the current shard content.
func (v *MemoryVault) Fetch(ctx context.Context) ([]byte, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if !v.exists {
		return nil, interfaces.ErrShardNotFound
	}

	out := make([]byte, len(v.content))
	copy(out, v.content)
	return out, nil
}

// Overwrite replaces the shard content.
func (v *MemoryVault) Overwrite(ctx context.Context, content []byte) error {
	v.SetContent(content)
	return nil
}

// SetContent replaces the shard content outside the ShardVault contract,
// for seeding fixtures and decoys.
func (v *MemoryVault) SetContent(content []byte) {
	stored := make([]byte, len(content))
	copy(stored, content)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.content = stored
	v.exists = true
}

// Available always returns true.
func (v *MemoryVault) Available(ctx context.Context) bool {
	return true
}

// Name returns a unique identifier for this vault.
func (v *MemoryVault) Name() string {
	return fmt.Sprintf("mem-%s", v.name)
}

// LocationURI returns the URI that identifies this vault.
func (v *MemoryVault) LocationURI() string {
	return fmt.Sprintf("mem://%s", v.name)
}
