package sealing

import (
	"encoding/base64"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSealer(t *testing.T) *CKKSSealer {
	t.Helper()
	sealer, err := NewCKKSSealer(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return sealer
}

func TestSealProducesValidBase64(t *testing.T) {
	sealer := setupSealer(t)

	sealed, err := sealer.Seal([]float64{0.1, 0.5, 0.9})
	require.NoError(t, err)
	require.NotEmpty(t, sealed)

	blob, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	assert.NotEmpty(t, blob)
}

func TestSealBytes(t *testing.T) {
	sealer := setupSealer(t)

	shard := make([]byte, 192)
	for i := range shard {
		shard[i] = byte(i)
	}

	sealed, err := sealer.SealBytes(shard)
	require.NoError(t, err)
	assert.NotEmpty(t, sealed)
}

func TestSealIsRandomized(t *testing.T) {
	sealer := setupSealer(t)
	values := []float64{0.25, 0.75}

	first, err := sealer.Seal(values)
	require.NoError(t, err)
	second, err := sealer.Seal(values)
	require.NoError(t, err)

	// Encryption randomness must differ between calls even for
	// identical plaintexts.
	assert.NotEqual(t, first, second)
}

func TestSealRejectsEmptyInput(t *testing.T) {
	sealer := setupSealer(t)
	_, err := sealer.Seal(nil)
	require.Error(t, err)
}

func TestSealRejectsOversizedInput(t *testing.T) {
	sealer := setupSealer(t)

	tooMany := make([]float64, sealer.MaxValues()+1)
	_, err := sealer.Seal(tooMany)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many values")
}

func TestMaxValues(t *testing.T) {
	sealer := setupSealer(t)
	// LogN 13 gives a ring degree of 8192 and half as many packing slots.
	assert.Equal(t, 4096, sealer.MaxValues())
}
