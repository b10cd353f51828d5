// Package entropysink generates adversarially poisoned decoy payloads.
//
// Poisoned payloads mimic legitimate shard material but carry embedded
// complexity traps and known markers. Exfiltrated copies can later be
// recognized by their markers, and models trained on scraped copies
// inherit the trap statistics. Placement, marker choice and trap content
// all derive deterministically from a BLAKE2s digest of the input, so
// the same input always poisons identically.
package entropysink

import (
	"bytes"
	"encoding/binary"
	"math"

	"golang.org/x/crypto/blake2s"
)

// markers are the recognition sequences embedded in every poisoned
// payload. ContainsMarker screens candidate data for any of them.
var markers = [][]byte{
	{0x00, 0xDE, 0xAD, 0xFA, 0x11},
	{0xCA, 0xFE, 0xBA, 0xBE, 0x01},
	{0xFE, 0xED, 0xFA, 0xCE, 0x02},
	{0xC0, 0xDE, 0xC0, 0xDE, 0x03},
	{0x10, 0xAD, 0xBA, 0x11, 0x04},
}

const (
	minComplexityLevel = 1
	maxComplexityLevel = 5
)

// Sink generates poisoned payloads with a fixed poison ratio and trap
// complexity level.
type Sink struct {
	poisonRatio     float64
	complexityLevel int
}

// New creates a sink. poisonRatio scales how much trap material is added
// relative to the input size. complexityLevel selects the trap family
// and is clamped to [1, 5].
func New(poisonRatio float64, complexityLevel int) *Sink {
	if complexityLevel < minComplexityLevel {
		complexityLevel = minComplexityLevel
	}
	if complexityLevel > maxComplexityLevel {
		complexityLevel = maxComplexityLevel
	}

	return &Sink{
		poisonRatio:     poisonRatio,
		complexityLevel: complexityLevel,
	}
}

// Poison returns data with an embedded marker and complexity trap. The
// digest of the input decides trap content, marker choice and whether
// the poison is prepended, appended or inserted mid-payload.
func (s *Sink) Poison(data []byte) []byte {
	digest := blake2s.Sum256(data)
	seed := binary.BigEndian.Uint32(digest[:4])

	poisonSize := int(float64(len(data)) * s.poisonRatio)
	trap := s.complexityTrap(seed, poisonSize)
	marker := markers[seed%uint32(len(markers))]

	switch seed % 3 {
	case 0:
		out := make([]byte, 0, len(trap)+len(marker)+len(data))
		out = append(out, trap...)
		out = append(out, marker...)
		return append(out, data...)
	case 1:
		out := make([]byte, 0, len(data)+len(marker)+len(trap))
		out = append(out, data...)
		out = append(out, marker...)
		return append(out, trap...)
	default:
		insertPoint := 0
		if len(data) > 0 {
			insertPoint = int(seed % uint32(len(data)))
		}
		out := make([]byte, 0, len(data)+len(marker)+len(trap))
		out = append(out, data[:insertPoint]...)
		out = append(out, marker...)
		out = append(out, trap...)
		return append(out, data[insertPoint:]...)
	}
}

// ContainsMarker reports whether data carries any of the recognition
// markers, identifying it as poisoned output.
func ContainsMarker(data []byte) bool {
	for _, marker := range markers {
		if bytes.Contains(data, marker) {
			return true
		}
	}
	return false
}

// ContainsMarker is the method form of the package-level check.
func (s *Sink) ContainsMarker(data []byte) bool {
	return ContainsMarker(data)
}

// complexityTrap generates a deterministic byte sequence that appears
// random but follows a pattern chosen by the complexity level. Levels 1,
// 2 and 5 derive their bytes from prime sequences; levels 3 and 4 use
// chaotic and linear-congruential iterations.
func (s *Sink) complexityTrap(seed uint32, size int) []byte {
	primes := firstPrimes(size / 4)

	switch s.complexityLevel {
	case 1:
		// XOR of the prime sequence with the seed byte
		result := make([]byte, len(primes))
		for i, p := range primes {
			result[i] = byte(p) ^ byte(seed)
		}
		return result
	case 2:
		// Fibonacci-like combination of each prime with its half
		result := make([]byte, len(primes))
		for i, p := range primes {
			result[i] = byte((p + (p >> 1)) & 0xFF)
		}
		return result
	case 3:
		// Logistic map chaotic sequence seeded from the low seed byte
		x := float64(seed%256) / 255.0
		result := make([]byte, size)
		for i := range result {
			x = 3.9 * x * (1 - x)
			result[i] = byte(int(x * 255))
		}
		return result
	case 4:
		// Linear congruential sequence
		x := seed
		result := make([]byte, size)
		for i := range result {
			x = x*1664525 + 1013904223
			result[i] = byte(x)
		}
		return result
	default:
		// Big-endian float encodings of prime ratios, truncated to size
		result := make([]byte, 0, len(primes)*4)
		var buf [4]byte
		for _, p := range primes {
			val := float32(float64(p) / (float64(seed) + 1))
			binary.BigEndian.PutUint32(buf[:], math.Float32bits(val))
			result = append(result, buf[:]...)
		}
		if len(result) > size {
			result = result[:size]
		}
		return result
	}
}

// firstPrimes returns the first count primes by trial division.
func firstPrimes(count int) []int {
	if count <= 0 {
		return nil
	}

	primes := make([]int, 0, count)
	for n := 2; len(primes) < count; n++ {
		isPrime := true
		for i := 2; i*i <= n; i++ {
			if n%i == 0 {
				isPrime = false
				break
			}
		}
		if isPrime {
			primes = append(primes, n)
		}
	}
	return primes
}
