package entropysink

import (
	"bytes"
	"fmt"
	"log/slog"

	shell "github.com/ipfs/go-ipfs-api"
)

// IPFSPublisher seeds poisoned decoy payloads into IPFS where scrapers
// harvesting shard-like material will find them.
type IPFSPublisher struct {
	shell *shell.Shell
	sink  *Sink
	log   *slog.Logger
}

// NewIPFSPublisher creates a publisher talking to the IPFS API at
// apiAddr (e.g. "localhost:5001").
func NewIPFSPublisher(apiAddr string, sink *Sink, log *slog.Logger) *IPFSPublisher {
	return &IPFSPublisher{
		shell: shell.NewShell(apiAddr),
		sink:  sink,
		log:   log,
	}
}

// Publish poisons the payload and adds it to IPFS, returning the CID of
// the decoy.
func (p *IPFSPublisher) Publish(payload []byte) (string, error) {
	if !p.shell.IsUp() {
		return "", fmt.Errorf("IPFS node is not available")
	}

	poisoned := p.sink.Poison(payload)

	cid, err := p.shell.Add(bytes.NewReader(poisoned))
	if err != nil {
		return "", fmt.Errorf("failed to add decoy to IPFS: %w", err)
	}

	p.log.Info("Published decoy payload",
		slog.String("cid", cid),
		slog.Int("original_size", len(payload)),
		slog.Int("poisoned_size", len(poisoned)))

	return cid, nil
}

// Available checks if the IPFS node is accessible.
func (p *IPFSPublisher) Available() bool {
	return p.shell.IsUp()
}
