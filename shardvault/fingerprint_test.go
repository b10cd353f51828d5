package shardvault

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprint(t *testing.T) {
	content := []byte("shard material")

	first := Fingerprint(content)
	second := Fingerprint(content)
	assert.Equal(t, first, second)

	other := Fingerprint([]byte("different material"))
	assert.NotEqual(t, first, other)
}

func TestFingerprintHex(t *testing.T) {
	// Keccak-256 of the empty input is a fixed well-known digest.
	assert.Equal(t,
		"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470",
		FingerprintHex(nil))

	hex := FingerprintHex([]byte("shard material"))
	assert.Len(t, hex, 66)
	assert.Equal(t, "0x", hex[:2])
}
