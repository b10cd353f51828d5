// Package entropy implements the statistical measurements used to judge
// the integrity of cryptographic key shard material.
//
// # Shannon Entropy
//
// Shannon computes byte-frequency entropy in bits per byte, ranging from
// 0.0 (constant data) to 8.0 (uniform distribution over all byte values).
// Healthy shard material produced by a CSPRNG measures close to 8.0;
// values below the configured floor indicate degraded, truncated or
// deliberately weakened material.
//
// # Regularity Detection
//
// DetectRegularities scans shard material for statistical patterns
// consistent with an embedded mathematical backdoor:
//
//   - a set-bit ratio implausibly close to exactly one half, which
//     natural random data exhibits only rarely at realistic sample sizes
//   - short byte sequences repeating far more often than a uniform
//     distribution predicts
//
// Inputs shorter than the minimum sample size are never flagged, since
// the statistics are meaningless at that scale.
package entropy
