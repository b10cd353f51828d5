package enforcer

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// Manifest is the YAML configuration of the enforcer daemon. Zero-valued
// thresholds pick up the package defaults.
type Manifest struct {
	// EntropyThreshold is the minimum acceptable Shannon entropy in bits
	// per byte.
	EntropyThreshold float64 `yaml:"entropy_threshold" validate:"omitempty,gte=0,lte=8"`

	// TemperatureVariance is the maximum tolerated deviation from the
	// temperature baseline, in degrees Celsius.
	TemperatureVariance float64 `yaml:"temperature_variance" validate:"omitempty,gte=0"`

	// IntervalSeconds is the pause between enforcement cycles. The daemon
	// rejects sub-second intervals even though the Go API permits them.
	IntervalSeconds int `yaml:"interval_seconds" validate:"omitempty,min=1"`

	// Shards lists the key shards to monitor.
	Shards []ManifestShard `yaml:"shards" validate:"required,min=1,dive"`

	// Sinks configures optional alert destinations beyond logging.
	Sinks ManifestSinks `yaml:"sinks"`
}

// ManifestShard describes one monitored shard and where its replicas live.
type ManifestShard struct {
	ID string `yaml:"id" validate:"required"`

	// Locations holds one or more location URIs. Multiple locations form
	// a replicated vault: reads prefer the first available backend,
	// overwrites hit all of them.
	Locations []string `yaml:"locations" validate:"required,min=1,dive,required"`

	// Watch enables filesystem change notification for file-backed
	// locations, waking the loop for an immediate check on modification.
	Watch bool `yaml:"watch"`
}

// ManifestSinks configures alert destinations.
type ManifestSinks struct {
	// JournalPath enables the SQLite alert journal when set.
	JournalPath string `yaml:"journal_path"`

	// WebhookURL enables HTTP alert delivery when set.
	WebhookURL string `yaml:"webhook_url" validate:"omitempty,url"`
}

var manifestValidator = validator.New()

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(raw)
}

// ParseManifest parses and validates manifest YAML.
func ParseManifest(raw []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if err := manifestValidator.Struct(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	return &m, nil
}

// Config converts the manifest thresholds into an enforcer Config. Fields
// the manifest leaves at zero stay zero so the defaults apply.
func (m *Manifest) Config() Config {
	return Config{
		EntropyThreshold:    m.EntropyThreshold,
		TemperatureVariance: m.TemperatureVariance,
		CheckInterval:       time.Duration(m.IntervalSeconds) * time.Second,
	}
}

// WatchPaths returns the filesystem paths of all watched file-backed
// shard locations.
func (m *Manifest) WatchPaths() []string {
	var paths []string
	for _, shard := range m.Shards {
		if !shard.Watch {
			continue
		}
		for _, raw := range shard.Locations {
			loc, err := interfaces.NewShardLocation(raw)
			if err != nil || !loc.IsFile() {
				continue
			}
			paths = append(paths, loc.Path)
		}
	}
	return paths
}
