package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AlertKind identifies the class of integrity violation an alert reports.
type AlertKind string

const (
	// AlertTemperatureViolation reports an ambient temperature excursion
	// beyond the configured threshold, indicating a possible side-channel
	// or fault-injection attack.
	AlertTemperatureViolation AlertKind = "temperature_violation"

	// AlertEntropyViolation reports shard material whose Shannon entropy
	// fell below the configured floor.
	AlertEntropyViolation AlertKind = "entropy_violation"

	// AlertRegularityDetected reports statistical regularities in shard
	// material consistent with an embedded mathematical backdoor.
	AlertRegularityDetected AlertKind = "regularity_detected"

	// AlertCryptographicApoptosis reports that shard material was
	// destructively overwritten in response to a detected violation.
	AlertCryptographicApoptosis AlertKind = "cryptographic_apoptosis"
)

// Severity grades the urgency of an alert.
type Severity string

// SeverityCritical marks violations that triggered or will trigger
// destructive remediation.
const SeverityCritical Severity = "critical"

// ApoptosisReason identifies what triggered a destructive overwrite.
type ApoptosisReason string

const (
	// ReasonEntropyViolation marks an overwrite triggered by low entropy
	ReasonEntropyViolation ApoptosisReason = "entropy_violation"

	// ReasonMathematicalBackdoor marks an overwrite triggered by
	// detected statistical regularities
	ReasonMathematicalBackdoor ApoptosisReason = "mathematical_backdoor"
)

// Alert is a single integrity violation report. Only the fields relevant
// to the alert kind are populated; the rest marshal as absent.
type Alert struct {
	ID   string    `json:"id"`
	Time time.Time `json:"time"`
	Kind AlertKind `json:"alert_type"`

	Shard     string          `json:"shard_file,omitempty"`
	Entropy   *float64        `json:"entropy,omitempty"`
	Threshold *float64        `json:"threshold,omitempty"`
	Baseline  *float64        `json:"baseline,omitempty"`
	Current   *float64        `json:"current,omitempty"`
	Delta     *float64        `json:"delta,omitempty"`
	Severity  Severity        `json:"severity,omitempty"`
	Reason    ApoptosisReason `json:"reason,omitempty"`
}

func newAlert(kind AlertKind) Alert {
	return Alert{
		ID:   uuid.New().String(),
		Time: time.Now().UTC(),
		Kind: kind,
	}
}

func floatPtr(v float64) *float64 { return &v }

// NewTemperatureViolationAlert builds an alert for an ambient temperature
// excursion beyond the allowed delta.
func NewTemperatureViolationAlert(baseline, current, delta, threshold float64) Alert {
	a := newAlert(AlertTemperatureViolation)
	a.Baseline = floatPtr(baseline)
	a.Current = floatPtr(current)
	a.Delta = floatPtr(delta)
	a.Threshold = floatPtr(threshold)
	return a
}

// NewEntropyViolationAlert builds an alert for shard material below the
// entropy floor.
func NewEntropyViolationAlert(shard string, entropy, threshold float64) Alert {
	a := newAlert(AlertEntropyViolation)
	a.Shard = shard
	a.Entropy = floatPtr(entropy)
	a.Threshold = floatPtr(threshold)
	return a
}

// NewRegularityAlert builds an alert for detected statistical regularities
// in shard material.
func NewRegularityAlert(shard string) Alert {
	a := newAlert(AlertRegularityDetected)
	a.Shard = shard
	a.Severity = SeverityCritical
	return a
}

// NewApoptosisEntropyAlert builds an alert recording a destructive
// overwrite triggered by an entropy violation.
func NewApoptosisEntropyAlert(shard string, entropy float64) Alert {
	a := newAlert(AlertCryptographicApoptosis)
	a.Reason = ReasonEntropyViolation
	a.Shard = shard
	a.Entropy = floatPtr(entropy)
	return a
}

// NewApoptosisBackdoorAlert builds an alert recording a destructive
// overwrite triggered by detected regularities.
func NewApoptosisBackdoorAlert(shard string) Alert {
	a := newAlert(AlertCryptographicApoptosis)
	a.Reason = ReasonMathematicalBackdoor
	a.Shard = shard
	a.Severity = SeverityCritical
	return a
}

// AlertSink receives integrity alerts. Implementations must tolerate
// concurrent delivery and should not block for long periods; slow sinks
// delay the enforcement cycle.
type AlertSink interface {
	// Deliver processes a single alert. Errors are logged by the caller
	// and never interrupt the enforcement cycle.
	Deliver(ctx context.Context, alert Alert) error
}

// AlertSinkFunc adapts a plain function to the AlertSink interface.
type AlertSinkFunc func(ctx context.Context, alert Alert) error

// Deliver implements AlertSink.
func (f AlertSinkFunc) Deliver(ctx context.Context, alert Alert) error {
	return f(ctx, alert)
}
