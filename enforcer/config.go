package enforcer

import (
	"errors"
	"time"
)

// Detection and lifecycle defaults. Thresholds follow the operational
// profile for 32-byte-plus key shards: honest random material measures
// well above 7.2 bits per byte, and ambient drift of more than one degree
// between cycles is outside normal rack behavior.
const (
	DefaultEntropyThreshold    = 7.2
	DefaultTemperatureVariance = 1.0
	DefaultCheckInterval       = 60 * time.Second
	DefaultStopTimeout         = 5 * time.Second
	DefaultHistoryCapacity     = 1000
)

// Replacement sizes for destructive overwrites. Regularity findings get
// the larger replacement since they indicate deliberate construction
// rather than decay.
const (
	entropyReplacementSize    = 1024
	regularityReplacementSize = 2048
)

// Config controls detection thresholds and loop timing. The zero value of
// any field selects its default, so Config{} is a usable configuration.
type Config struct {
	// EntropyThreshold is the Shannon entropy floor in bits per byte.
	// Shard material measuring below it is considered compromised.
	EntropyThreshold float64

	// TemperatureVariance is the maximum tolerated deviation from the
	// adaptive temperature baseline, in degrees Celsius.
	TemperatureVariance float64

	// CheckInterval is the period between enforcement cycles.
	CheckInterval time.Duration

	// StopTimeout bounds how long Stop waits for the loop to exit.
	StopTimeout time.Duration

	// HistoryCapacity is the number of recent alerts kept in memory for
	// the status API.
	HistoryCapacity int
}

func (c Config) validate() error {
	if c.EntropyThreshold < 0 || c.EntropyThreshold > 8 {
		return errors.New("entropy threshold must be within [0, 8] bits per byte")
	}
	if c.TemperatureVariance < 0 {
		return errors.New("temperature variance cannot be negative")
	}
	if c.CheckInterval < 0 {
		return errors.New("check interval cannot be negative")
	}
	if c.StopTimeout < 0 {
		return errors.New("stop timeout cannot be negative")
	}
	if c.HistoryCapacity < 0 {
		return errors.New("history capacity cannot be negative")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.EntropyThreshold == 0 {
		c.EntropyThreshold = DefaultEntropyThreshold
	}
	if c.TemperatureVariance == 0 {
		c.TemperatureVariance = DefaultTemperatureVariance
	}
	if c.CheckInterval == 0 {
		c.CheckInterval = DefaultCheckInterval
	}
	if c.StopTimeout == 0 {
		c.StopTimeout = DefaultStopTimeout
	}
	if c.HistoryCapacity == 0 {
		c.HistoryCapacity = DefaultHistoryCapacity
	}
	return c
}
