package entropy

import "math"

// Shannon returns the Shannon entropy of data in bits per byte.
// Returns 0.0 for empty input. The result is always within [0.0, 8.0].
func Shannon(data []byte) float64 {
	if len(data) == 0 {
		return 0.0
	}

	var freq [256]int
	for _, b := range data {
		freq[b]++
	}

	total := float64(len(data))
	var h float64
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / total
		h -= p * math.Log2(p)
	}

	return h
}
