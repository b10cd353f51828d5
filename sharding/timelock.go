package sharding

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/hashicorp/vault/shamir"

	"github.com/ruteri/shard-integrity-enforcer/entropy"
)

// Difficulty bounds for the timelock seal. Sealing and verification both
// cost 2^difficulty hash iterations, so DefaultDifficulty keeps checks
// near-instant while MaxDifficulty caps the work at roughly a minute on
// current hardware.
const (
	DefaultDifficulty = 10
	MaxDifficulty     = 30
)

const (
	sealSize = sha256.Size

	// Quality gate applied to decoded shard bytes. The ceiling matches
	// the monitor's entropy threshold; the scale relaxes it for shards
	// too short to ever reach it, since an n-byte shard tops out at
	// log2(n) bits per byte.
	qualityEntropyCeiling = 7.2
	qualityEntropyScale   = 0.85

	// Bit balance is only meaningful on reasonably sized samples.
	balanceSampleFloor = 100
)

var (
	// ErrInsufficientShards means fewer shards were provided than the threshold requires.
	ErrInsufficientShards = errors.New("insufficient shards")

	// ErrMalformedShard means a shard failed to decode or is too short to carry a seal.
	ErrMalformedShard = errors.New("malformed shard")

	// ErrShardTampered means a shard's timelock seal did not verify.
	ErrShardTampered = errors.New("shard seal mismatch")

	// ErrShardQuality means one or more shards failed the entropy quality gate.
	ErrShardQuality = errors.New("shard quality below floor")
)

// Sharder splits key material into threshold-recoverable shards. Each
// shard carries a timelock seal binding the share payload to its index,
// so a swapped or corrupted shard is caught before reconstruction runs.
type Sharder struct {
	threshold  int
	shares     int
	difficulty uint
	log        *slog.Logger
}

// NewSharder validates the sharding parameters. Threshold and share
// counts follow Shamir's scheme: at least two shares, a threshold of at
// least two that does not exceed the share count, and at most 255 shares.
func NewSharder(log *slog.Logger, threshold, shares int, difficulty uint) (*Sharder, error) {
	if shares < 2 {
		return nil, errors.New("at least 2 shares required")
	}
	if shares > 255 {
		return nil, errors.New("at most 255 shares supported")
	}
	if threshold < 2 {
		return nil, errors.New("threshold must be at least 2")
	}
	if threshold > shares {
		return nil, errors.New("threshold cannot exceed share count")
	}
	if difficulty > MaxDifficulty {
		return nil, fmt.Errorf("difficulty %d exceeds maximum %d", difficulty, MaxDifficulty)
	}

	return &Sharder{
		threshold:  threshold,
		shares:     shares,
		difficulty: difficulty,
		log:        log,
	}, nil
}

// Split splits the secret into hex-encoded shards. Each shard decodes to
// one index byte, the Shamir share payload, and a 32-byte timelock seal
// over payload and index. Intermediate share buffers are wiped before
// returning; the caller is responsible for wiping the secret itself once
// the shards are distributed.
func (s *Sharder) Split(secret []byte) ([]string, error) {
	if len(secret) == 0 {
		return nil, errors.New("cannot split empty secret")
	}

	raw, err := shamir.Split(secret, s.shares, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("shamir split: %w", err)
	}

	encoded := make([]string, len(raw))
	for i, share := range raw {
		index := byte(i + 1)
		seal := timelockSeal(share, index, s.difficulty)

		buf := make([]byte, 0, 1+len(share)+sealSize)
		buf = append(buf, index)
		buf = append(buf, share...)
		buf = append(buf, seal[:]...)
		encoded[i] = hex.EncodeToString(buf)

		Wipe(share)
		Wipe(buf)
	}

	s.log.Debug("Split secret into shards",
		slog.Int("shares", s.shares),
		slog.Int("threshold", s.threshold),
		slog.Uint64("difficulty", uint64(s.difficulty)))

	return encoded, nil
}

// Recombine reconstructs the secret from at least threshold shards. Every
// provided shard's seal is verified first; a tampered or malformed shard
// aborts reconstruction rather than feeding bad material into the
// combine step.
func (s *Sharder) Recombine(encoded []string) ([]byte, error) {
	if len(encoded) < s.threshold {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrInsufficientShards, len(encoded), s.threshold)
	}

	shares := make([][]byte, 0, len(encoded))
	for _, shard := range encoded {
		_, payload, err := s.openShard(shard)
		if err != nil {
			return nil, err
		}
		shares = append(shares, payload)
	}

	secret, err := shamir.Combine(shares)
	if err != nil {
		return nil, fmt.Errorf("shamir combine: %w", err)
	}

	for _, share := range shares {
		Wipe(share)
	}

	return secret, nil
}

// VerifySeal checks a single shard's timelock seal. Verification repeats
// the full 2^difficulty hash iterations that sealing performed.
func (s *Sharder) VerifySeal(encoded string) error {
	_, _, err := s.openShard(encoded)
	return err
}

// openShard decodes a shard and verifies its seal, returning the index
// byte and the bare share payload.
func (s *Sharder) openShard(encoded string) (byte, []byte, error) {
	raw, err := hex.DecodeString(encoded)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrMalformedShard, err)
	}
	if len(raw) < 2+sealSize {
		return 0, nil, fmt.Errorf("%w: %d bytes is too short", ErrMalformedShard, len(raw))
	}

	index := raw[0]
	payload := raw[1 : len(raw)-sealSize]
	seal := raw[len(raw)-sealSize:]

	want := timelockSeal(payload, index, s.difficulty)
	if !bytes.Equal(seal, want[:]) {
		return 0, nil, fmt.Errorf("%w: shard index %d", ErrShardTampered, index)
	}

	return index, payload, nil
}

// CheckShardQuality measures every shard against the entropy quality
// gate. Decoded shard bytes must carry near-maximal entropy for their
// length, and larger shards must not sit implausibly close to an exact
// 50/50 bit balance. Shards that fail to decode count as failures.
func (s *Sharder) CheckShardQuality(encoded []string) error {
	bad := 0
	for i, shard := range encoded {
		raw, err := hex.DecodeString(shard)
		if err != nil {
			s.log.Warn("Shard is not valid hex", slog.Int("shard_index", i), "err", err)
			bad++
			continue
		}

		floor := qualityFloor(len(raw))
		if got := entropy.Shannon(raw); got < floor {
			s.log.Warn("Shard entropy below quality floor",
				slog.Int("shard_index", i),
				slog.Float64("entropy", got),
				slog.Float64("floor", floor))
			bad++
			continue
		}

		if len(raw) >= balanceSampleFloor && entropy.HasSuspiciousBitBalance(raw) {
			s.log.Warn("Shard bit balance is suspiciously exact", slog.Int("shard_index", i))
			bad++
		}
	}

	if bad > 0 {
		return fmt.Errorf("%w: %d of %d shards failed", ErrShardQuality, bad, len(encoded))
	}
	return nil
}

// qualityFloor returns the minimum acceptable bits per byte for a shard
// of n bytes. The floor scales with the maximum entropy the length
// permits and is capped at the fixed ceiling for large shards.
func qualityFloor(n int) float64 {
	if n < 2 {
		return 0
	}
	scaled := qualityEntropyScale * math.Log2(float64(n))
	return math.Min(qualityEntropyCeiling, scaled)
}

// timelockSeal computes the iterated digest binding a share payload to
// its index. The initial digest covers payload and index; it is then
// rehashed 2^difficulty times. There is no shortcut for verification.
func timelockSeal(payload []byte, index byte, difficulty uint) [sealSize]byte {
	buf := make([]byte, 0, len(payload)+1)
	buf = append(buf, payload...)
	buf = append(buf, index)

	digest := sha256.Sum256(buf)
	iterations := uint64(1) << difficulty
	for i := uint64(0); i < iterations; i++ {
		digest = sha256.Sum256(digest[:])
	}
	return digest
}

// Wipe zeroes key material in place.
func Wipe(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
