package entropy

import "math/bits"

const (
	// minSampleSize is the smallest input for which the regularity
	// statistics carry any signal.
	minSampleSize = 100

	// balanceTolerance is the distance from a perfect 0.5 set-bit ratio
	// below which data is considered artificially balanced.
	balanceTolerance = 0.01

	// repeatFactor is how many times above the expected occurrence count
	// a repeated sequence must appear to be flagged.
	repeatFactor = 10
)

// patternLengths are the byte-sequence widths scanned for repetition.
var patternLengths = []int{2, 3, 4}

// DetectRegularities reports whether data exhibits statistical patterns
// consistent with an embedded mathematical backdoor. Inputs shorter than
// the minimum sample size always return false.
func DetectRegularities(data []byte) bool {
	if len(data) < minSampleSize {
		return false
	}

	if HasSuspiciousBitBalance(data) {
		return true
	}

	for _, length := range patternLengths {
		if hasRepeatedSequences(data, length) {
			return true
		}
	}

	return false
}

// HasSuspiciousBitBalance returns true when the set-bit ratio sits
// implausibly close to exactly one half. Genuine random data of realistic
// shard sizes deviates from 0.5 more than the tolerance allows.
func HasSuspiciousBitBalance(data []byte) bool {
	var ones int
	for _, b := range data {
		ones += bits.OnesCount8(b)
	}

	ratio := float64(ones) / float64(len(data)*8)
	diff := ratio - 0.5
	if diff < 0 {
		diff = -diff
	}
	return diff < balanceTolerance
}

// hasRepeatedSequences returns true when any byte sequence of the given
// length occurs more than repeatFactor times the count a uniform
// distribution predicts. The expected count is floored at one occurrence
// so that a single repeat in a short input is never flagged.
func hasRepeatedSequences(data []byte, length int) bool {
	if len(data) < length {
		return false
	}

	counts := make(map[string]int)
	maxCount := 0
	for i := 0; i+length <= len(data); i++ {
		seq := string(data[i : i+length])
		counts[seq]++
		if counts[seq] > maxCount {
			maxCount = counts[seq]
		}
	}

	expected := float64(len(data)) / pow256(length)
	if expected < 1 {
		expected = 1
	}

	return float64(maxCount) > expected*repeatFactor
}

func pow256(n int) float64 {
	result := 1.0
	for i := 0; i < n; i++ {
		result *= 256.0
	}
	return result
}
