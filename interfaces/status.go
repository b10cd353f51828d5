package interfaces

import "time"

// ShardState captures the most recent observation of a single monitored shard.
type ShardState struct {
	// Location is the shard location URI
	Location string `json:"location"`

	// LastEntropy is the Shannon entropy measured in the last completed check
	LastEntropy float64 `json:"last_entropy"`

	// LastChecked is when the shard was last examined
	LastChecked time.Time `json:"last_checked"`

	// Healthy is true when the last check passed both the entropy floor
	// and the regularity scan
	Healthy bool `json:"healthy"`

	// Apoptosed is true once the shard content has been destructively
	// overwritten at least once
	Apoptosed bool `json:"apoptosed"`
}

// EnforcerStatus is a point-in-time snapshot of the enforcement loop.
type EnforcerStatus struct {
	// Running is true while the background monitoring loop is active
	Running bool `json:"running"`

	// BaselineTemperature is the current adaptive temperature baseline
	// in degrees Celsius
	BaselineTemperature float64 `json:"baseline_temperature"`

	// CycleCount is the number of completed enforcement cycles
	CycleCount uint64 `json:"cycle_count"`

	// LastCycleAt is when the last cycle completed, zero before the first
	LastCycleAt time.Time `json:"last_cycle_at"`

	// ApoptosisEvents counts destructive overwrites performed since start
	ApoptosisEvents uint64 `json:"apoptosis_events"`

	// AlertsTotal counts all alerts published since construction
	AlertsTotal uint64 `json:"alerts_total"`

	// Shards holds per-shard observations keyed in configuration order
	Shards []ShardState `json:"shards"`
}
