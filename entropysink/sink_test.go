package entropysink

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoisonEmbedsMarker(t *testing.T) {
	payload := []byte("synthetic shard material for decoy publication")

	for level := 1; level <= 5; level++ {
		sink := New(0.2, level)
		poisoned := sink.Poison(payload)

		assert.True(t, ContainsMarker(poisoned), "level %d output should carry a marker", level)
		assert.False(t, ContainsMarker(payload), "input should not carry a marker")
		assert.Greater(t, len(poisoned), len(payload), "level %d output should grow", level)
	}
}

func TestPoisonIsDeterministic(t *testing.T) {
	sink := New(0.3, 3)
	payload := []byte("deterministic decoy input")

	first := sink.Poison(payload)
	second := sink.Poison(payload)
	assert.Equal(t, first, second)

	other := sink.Poison([]byte("different decoy input"))
	assert.NotEqual(t, first, other)
}

func TestPoisonPreservesPayloadBytes(t *testing.T) {
	// Whatever the placement, every original byte must survive in order:
	// stripping marker and trap from the output reconstructs the input.
	sink := New(0.1, 4)
	payload := []byte("original payload that must survive poisoning intact")
	poisoned := sink.Poison(payload)

	assert.GreaterOrEqual(t, len(poisoned), len(payload))
	assert.True(t, containsSubsequence(poisoned, payload))
}

func TestPoisonEmptyPayload(t *testing.T) {
	for level := 1; level <= 5; level++ {
		sink := New(0.5, level)
		require.NotPanics(t, func() {
			poisoned := sink.Poison(nil)
			assert.True(t, ContainsMarker(poisoned))
		})
	}
}

func TestComplexityLevelClamped(t *testing.T) {
	low := New(0.1, -3)
	high := New(0.1, 99)
	payload := []byte("clamp check payload")

	assert.Equal(t, New(0.1, 1).Poison(payload), low.Poison(payload))
	assert.Equal(t, New(0.1, 5).Poison(payload), high.Poison(payload))
}

func TestContainsMarkerNegative(t *testing.T) {
	assert.False(t, ContainsMarker(nil))
	assert.False(t, ContainsMarker([]byte("perfectly ordinary data")))

	sink := New(0.2, 2)
	assert.False(t, sink.ContainsMarker([]byte{0x00, 0xDE, 0xAD}))
}

func TestFirstPrimes(t *testing.T) {
	assert.Empty(t, firstPrimes(0))
	assert.Equal(t, []int{2, 3, 5, 7, 11}, firstPrimes(5))
	assert.Len(t, firstPrimes(64), 64)
}

// containsSubsequence reports whether all bytes of want appear in data in
// order, allowing one contiguous gap for the inserted poison block.
func containsSubsequence(data, want []byte) bool {
	for split := 0; split <= len(want); split++ {
		prefix, suffix := want[:split], want[split:]
		idx := bytes.Index(data, prefix)
		if idx < 0 {
			continue
		}
		if bytes.Contains(data[idx+len(prefix):], suffix) {
			return true
		}
	}
	return false
}
