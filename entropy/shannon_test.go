package entropy

import (
	"bytes"
	"crypto/rand"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShannon(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected float64
	}{
		{
			name:     "empty input",
			data:     nil,
			expected: 0.0,
		},
		{
			name:     "single byte",
			data:     []byte{0x42},
			expected: 0.0,
		},
		{
			name:     "constant data",
			data:     bytes.Repeat([]byte{0x41}, 1024),
			expected: 0.0,
		},
		{
			name:     "two symbols equal frequency",
			data:     []byte("aabb"),
			expected: 1.0,
		},
		{
			name:     "all byte values once",
			data:     allByteValues(),
			expected: 8.0,
		},
		{
			name:     "192 distinct byte values once",
			data:     ascendingBytes(192),
			expected: math.Log2(192),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Shannon(tt.data), 1e-9)
		})
	}
}

func TestShannonBounds(t *testing.T) {
	inputs := [][]byte{
		nil,
		{0x00},
		[]byte("hello world"),
		bytes.Repeat([]byte{0xFF, 0x00}, 512),
		allByteValues(),
	}

	for _, data := range inputs {
		h := Shannon(data)
		assert.GreaterOrEqual(t, h, 0.0)
		assert.LessOrEqual(t, h, 8.0)
	}
}

func TestShannonRandomDataIsHigh(t *testing.T) {
	data := make([]byte, 1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	// A 1 KiB sample from a CSPRNG measures around 7.8 bits per byte;
	// anything near the floor would mean the measurement is broken.
	assert.Greater(t, Shannon(data), 7.5)
}

// allByteValues returns each of the 256 byte values exactly once.
func allByteValues() []byte {
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}

// ascendingBytes returns the byte values 0 through n-1 in order.
func ascendingBytes(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i)
	}
	return data
}
