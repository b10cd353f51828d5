package shardvault

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Fingerprint returns the Keccak-256 digest of shard content. The digest
// is recorded in logs and the alert journal before destructive overwrites,
// so an operator can later prove exactly which material was condemned
// without the material itself surviving anywhere.
func Fingerprint(content []byte) common.Hash {
	return crypto.Keccak256Hash(content)
}

// FingerprintHex returns the Keccak-256 digest of shard content as a
// 0x-prefixed hex string.
func FingerprintHex(content []byte) string {
	return Fingerprint(content).Hex()
}
