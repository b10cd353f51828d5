package interfaces

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShardLocation(t *testing.T) {
	tests := []struct {
		name        string
		uri         string
		expectError bool
		check       func(t *testing.T, loc ShardLocation)
	}{
		{
			name: "file URI",
			uri:  "file:///var/lib/shards/shard_0.bin",
			check: func(t *testing.T, loc ShardLocation) {
				assert.True(t, loc.IsFile())
				assert.Equal(t, "/var/lib/shards/shard_0.bin", loc.Path)
				assert.Equal(t, ShardID("/var/lib/shards/shard_0.bin"), loc.ShardID())
			},
		},
		{
			name: "memory URI",
			uri:  "mem://shard-a",
			check: func(t *testing.T, loc ShardLocation) {
				assert.True(t, loc.IsMemory())
				assert.Equal(t, "shard-a", loc.Host)
			},
		},
		{
			name: "s3 URI with region",
			uri:  "s3://shard-bucket/shards/shard_0.bin?region=eu-west-1",
			check: func(t *testing.T, loc ShardLocation) {
				assert.True(t, loc.IsS3())
				assert.Equal(t, "shard-bucket", loc.Host)
				assert.Equal(t, "eu-west-1", loc.GetParam("region"))
			},
		},
		{
			name: "vault URI with mount parameter",
			uri:  "vault://vault.internal:8200/shards/shard_0?mount=secret",
			check: func(t *testing.T, loc ShardLocation) {
				assert.True(t, loc.IsVault())
				assert.Equal(t, "vault.internal:8200", loc.Host)
				assert.Equal(t, "secret", loc.GetParam("mount"))
			},
		},
		{
			name:        "file URI without path",
			uri:         "file://",
			expectError: true,
		},
		{
			name:        "s3 URI without bucket",
			uri:         "s3:///key-only",
			expectError: true,
		},
		{
			name:        "s3 URI without object key",
			uri:         "s3://bucket-only",
			expectError: true,
		},
		{
			name:        "vault URI without secret path",
			uri:         "vault://vault.internal:8200",
			expectError: true,
		},
		{
			name:        "unsupported scheme",
			uri:         "ftp://host/shard.bin",
			expectError: true,
		},
		{
			name:        "malformed URI",
			uri:         "://not-a-uri",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := NewShardLocation(tt.uri)
			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidLocationURI)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.uri, loc.Raw)
			if tt.check != nil {
				tt.check(t, loc)
			}
		})
	}
}

func TestShardLocationGetParamBool(t *testing.T) {
	loc, err := NewShardLocation("file:///tmp/shard.bin?readonly=true&cache=0")
	require.NoError(t, err)

	assert.True(t, loc.GetParamBool("readonly"))
	assert.False(t, loc.GetParamBool("cache"))
	assert.False(t, loc.GetParamBool("missing"))
}

func TestAlertPayloadShape(t *testing.T) {
	tests := []struct {
		name    string
		alert   Alert
		present []string
		absent  []string
	}{
		{
			name:    "temperature violation",
			alert:   NewTemperatureViolationAlert(22.5, 24.1, 1.6, 1.0),
			present: []string{"baseline", "current", "delta", "threshold"},
			absent:  []string{"shard_file", "entropy", "severity", "reason"},
		},
		{
			name:    "entropy violation",
			alert:   NewEntropyViolationAlert("/shards/shard_0.bin", 3.2, 7.2),
			present: []string{"shard_file", "entropy", "threshold"},
			absent:  []string{"baseline", "current", "delta", "severity", "reason"},
		},
		{
			name:    "regularity detected",
			alert:   NewRegularityAlert("/shards/shard_0.bin"),
			present: []string{"shard_file", "severity"},
			absent:  []string{"entropy", "threshold", "reason"},
		},
		{
			name:    "apoptosis after entropy violation",
			alert:   NewApoptosisEntropyAlert("/shards/shard_0.bin", 3.2),
			present: []string{"shard_file", "entropy", "reason"},
			absent:  []string{"threshold", "severity"},
		},
		{
			name:    "apoptosis after backdoor detection",
			alert:   NewApoptosisBackdoorAlert("/shards/shard_0.bin"),
			present: []string{"shard_file", "severity", "reason"},
			absent:  []string{"entropy", "threshold"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.alert)
			require.NoError(t, err)

			var payload map[string]any
			require.NoError(t, json.Unmarshal(raw, &payload))

			assert.NotEmpty(t, payload["id"])
			assert.NotEmpty(t, payload["alert_type"])
			for _, field := range tt.present {
				assert.Contains(t, payload, field, "field %s should be present", field)
			}
			for _, field := range tt.absent {
				assert.NotContains(t, payload, field, "field %s should be absent", field)
			}
		})
	}
}

func TestApoptosisAlertReasons(t *testing.T) {
	entropy := NewApoptosisEntropyAlert("/shards/shard_0.bin", 1.5)
	assert.Equal(t, AlertCryptographicApoptosis, entropy.Kind)
	assert.Equal(t, ReasonEntropyViolation, entropy.Reason)
	require.NotNil(t, entropy.Entropy)
	assert.InDelta(t, 1.5, *entropy.Entropy, 1e-9)

	backdoor := NewApoptosisBackdoorAlert("/shards/shard_0.bin")
	assert.Equal(t, AlertCryptographicApoptosis, backdoor.Kind)
	assert.Equal(t, ReasonMathematicalBackdoor, backdoor.Reason)
	assert.Equal(t, SeverityCritical, backdoor.Severity)
}
