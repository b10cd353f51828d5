package enforcer

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/shard-integrity-enforcer/entropy"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/ruteri/shard-integrity-enforcer/shardvault"
)

func TestEntropyViolationTriggersApoptosis(t *testing.T) {
	zeros := make([]byte, 200)
	vault := shardvault.NewMemoryVaultWithContent("shard-0", zeros)
	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-0", Vault: vault})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	// Zeroed content would also trip the regularity screen, so exactly
	// two alerts prove the remediated shard was skipped in that pass.
	alerts := sink.all()
	require.Len(t, alerts, 2)

	violation := alerts[0]
	assert.Equal(t, interfaces.AlertEntropyViolation, violation.Kind, "violation must precede the overwrite record")
	assert.Equal(t, "shard-0", violation.Shard)
	require.NotNil(t, violation.Entropy)
	assert.InDelta(t, 0.0, *violation.Entropy, 1e-9)
	require.NotNil(t, violation.Threshold)
	assert.InDelta(t, DefaultEntropyThreshold, *violation.Threshold, 1e-9)

	apoptosis := alerts[1]
	assert.Equal(t, interfaces.AlertCryptographicApoptosis, apoptosis.Kind)
	assert.Equal(t, interfaces.ReasonEntropyViolation, apoptosis.Reason)
	assert.Equal(t, "shard-0", apoptosis.Shard)
	require.NotNil(t, apoptosis.Entropy)
	assert.InDelta(t, 0.0, *apoptosis.Entropy, 1e-9)

	assert.NotEmpty(t, violation.ID)
	assert.NotEqual(t, violation.ID, apoptosis.ID)

	replacement, err := vault.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, replacement, 1024)
	assert.Greater(t, entropy.Shannon(replacement), 6.0, "replacement must be high-entropy random material")

	status := e.Status()
	assert.Equal(t, uint64(1), status.ApoptosisEvents)
	assert.Equal(t, uint64(2), status.AlertsTotal)
	require.Len(t, status.Shards, 1)
	assert.True(t, status.Shards[0].Apoptosed)
	assert.False(t, status.Shards[0].Healthy)
	assert.InDelta(t, 0.0, status.Shards[0].LastEntropy, 1e-9)
}

func TestCleanShardPassesUntouched(t *testing.T) {
	content := ascendingBytes(192)
	vault := shardvault.NewMemoryVaultWithContent("shard-0", content)
	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-0", Vault: vault})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	assert.Empty(t, sink.all())

	after, err := vault.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, content, after)

	status := e.Status()
	assert.Equal(t, uint64(1), status.CycleCount)
	assert.Zero(t, status.ApoptosisEvents)
	assert.True(t, status.Shards[0].Healthy)
	assert.False(t, status.Shards[0].Apoptosed)
	assert.InDelta(t, 7.5849625, status.Shards[0].LastEntropy, 1e-6)
	assert.False(t, status.Shards[0].LastChecked.IsZero())
}

func TestRegularityTriggersCriticalApoptosis(t *testing.T) {
	// All 256 byte values exactly once: entropy 8.0, but a perfectly
	// balanced bit ratio no honest random sample exhibits.
	vault := shardvault.NewMemoryVaultWithContent("shard-0", ascendingBytes(256))
	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-0", Vault: vault})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	alerts := sink.all()
	require.Len(t, alerts, 2)

	detected := alerts[0]
	assert.Equal(t, interfaces.AlertRegularityDetected, detected.Kind)
	assert.Equal(t, "shard-0", detected.Shard)
	assert.Equal(t, interfaces.SeverityCritical, detected.Severity)

	apoptosis := alerts[1]
	assert.Equal(t, interfaces.AlertCryptographicApoptosis, apoptosis.Kind)
	assert.Equal(t, interfaces.ReasonMathematicalBackdoor, apoptosis.Reason)
	assert.Equal(t, interfaces.SeverityCritical, apoptosis.Severity)

	replacement, err := vault.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, replacement, 2048, "backdoor findings get the larger replacement")

	status := e.Status()
	assert.Equal(t, uint64(1), status.ApoptosisEvents)
	assert.False(t, status.Shards[0].Healthy)
	assert.True(t, status.Shards[0].Apoptosed)
	assert.InDelta(t, 8.0, status.Shards[0].LastEntropy, 1e-9,
		"the shard passed the entropy gate before the regularity screen condemned it")
}

func TestMultiShardFaultIsolation(t *testing.T) {
	cleanContent := ascendingBytes(192)
	cleanVault := shardvault.NewMemoryVaultWithContent("shard-a", cleanContent)
	badVault := shardvault.NewMemoryVaultWithContent("shard-b", make([]byte, 200))

	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-a", Vault: cleanVault},
		MonitoredShard{ID: "shard-b", Vault: badVault})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	alerts := sink.all()
	require.Len(t, alerts, 2)
	for _, a := range alerts {
		assert.Equal(t, "shard-b", a.Shard)
	}

	untouched, err := cleanVault.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, cleanContent, untouched)

	status := e.Status()
	assert.True(t, status.Shards[0].Healthy)
	assert.False(t, status.Shards[0].Apoptosed)
	assert.True(t, status.Shards[1].Apoptosed)
}

func TestTemperatureChecks(t *testing.T) {
	tests := []struct {
		name         string
		current      float64
		wantAlert    bool
		wantBaseline float64
	}{
		{
			name:         "within variance",
			current:      22.5,
			wantAlert:    false,
			wantBaseline: 22.0,
		},
		{
			name:         "exactly at variance",
			current:      23.0,
			wantAlert:    false,
			wantBaseline: 22.0,
		},
		{
			name:         "between one and two variances adapts baseline",
			current:      23.5,
			wantAlert:    true,
			wantBaseline: 23.5,
		},
		{
			name:         "downward drift adapts too",
			current:      20.5,
			wantAlert:    true,
			wantBaseline: 20.5,
		},
		{
			name:         "exactly twice the variance keeps baseline",
			current:      24.0,
			wantAlert:    true,
			wantBaseline: 22.0,
		},
		{
			name:         "abrupt excursion keeps baseline",
			current:      30.0,
			wantAlert:    true,
			wantBaseline: 22.0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			probe := newStubProbe(22.0)
			e := newTestEnforcer(t, Config{}, probe, cleanShard("shard-0"))

			sink := &captureSink{}
			e.RegisterAlertSink(sink)

			probe.set(tc.current)
			require.NoError(t, e.CheckNow(context.Background()))

			alerts := sink.all()
			if !tc.wantAlert {
				assert.Empty(t, alerts)
			} else {
				require.Len(t, alerts, 1)
				a := alerts[0]
				assert.Equal(t, interfaces.AlertTemperatureViolation, a.Kind)
				require.NotNil(t, a.Baseline)
				assert.InDelta(t, 22.0, *a.Baseline, 1e-9)
				require.NotNil(t, a.Current)
				assert.InDelta(t, tc.current, *a.Current, 1e-9)
				require.NotNil(t, a.Delta)
				assert.InDelta(t, math.Abs(tc.current-22.0), *a.Delta, 1e-9, "delta is absolute")
				require.NotNil(t, a.Threshold)
				assert.InDelta(t, DefaultTemperatureVariance, *a.Threshold, 1e-9)
			}

			assert.InDelta(t, tc.wantBaseline, e.Status().BaselineTemperature, 1e-9)
		})
	}
}

func TestTemperatureBaselineTracksGradualDrift(t *testing.T) {
	probe := newStubProbe(22.0)
	e := newTestEnforcer(t, Config{}, probe, cleanShard("shard-0"))

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	for _, reading := range []float64{23.5, 24.9, 26.0} {
		probe.set(reading)
		require.NoError(t, e.CheckNow(context.Background()))
	}

	assert.Len(t, sink.all(), 3, "each step raised an alert before adapting")
	assert.InDelta(t, 26.0, e.Status().BaselineTemperature, 1e-9)
}

func TestProbeFailureSkipsTemperatureCheck(t *testing.T) {
	probe := newStubProbe(22.0)
	e := newTestEnforcer(t, Config{}, probe, cleanShard("shard-0"))

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	probe.fail(errors.New("sensor offline"))
	require.NoError(t, e.CheckNow(context.Background()))

	assert.Empty(t, sink.all())
	status := e.Status()
	assert.Equal(t, uint64(1), status.CycleCount, "the rest of the cycle still runs")
	assert.InDelta(t, 22.0, status.BaselineTemperature, 1e-9)
	assert.True(t, status.Shards[0].Healthy, "shard checks proceed without the probe")
}

func TestFetchFailureSkipsShard(t *testing.T) {
	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-0", Vault: shardvault.NewMemoryVault("shard-0")})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	assert.Empty(t, sink.all(), "a missing shard is an I/O failure, not a violation")
	status := e.Status()
	assert.Equal(t, uint64(1), status.CycleCount)
	assert.True(t, status.Shards[0].LastChecked.IsZero())
}

// overwriteFailVault serves reads from the embedded memory vault but
// refuses every overwrite.
type overwriteFailVault struct {
	*shardvault.MemoryVault
	err error
}

func (v overwriteFailVault) Overwrite(ctx context.Context, content []byte) error {
	return v.err
}

func TestOverwriteFailureKeepsAlertRecord(t *testing.T) {
	zeros := make([]byte, 200)
	vault := overwriteFailVault{
		MemoryVault: shardvault.NewMemoryVaultWithContent("shard-0", zeros),
		err:         interfaces.ErrVaultReadOnly,
	}
	e := newTestEnforcer(t, Config{}, newStubProbe(22.0),
		MonitoredShard{ID: "shard-0", Vault: vault})

	sink := &captureSink{}
	e.RegisterAlertSink(sink)

	require.NoError(t, e.CheckNow(context.Background()))

	assert.Len(t, sink.all(), 2, "alerts are published before the overwrite attempt")

	status := e.Status()
	assert.Zero(t, status.ApoptosisEvents)
	assert.False(t, status.Shards[0].Apoptosed)
	assert.False(t, status.Shards[0].Healthy)

	survived, err := vault.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, zeros, survived)

	// No same-cycle retry; the next cycle detects the violation afresh.
	require.NoError(t, e.CheckNow(context.Background()))
	assert.Len(t, sink.all(), 4)
}
