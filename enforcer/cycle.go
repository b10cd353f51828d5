package enforcer

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math"
	"time"

	"github.com/ruteri/shard-integrity-enforcer/entropy"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/ruteri/shard-integrity-enforcer/shardvault"
)

// runCycle performs one full enforcement pass: the temperature check,
// then an entropy measurement of every shard, then a regularity screen
// of every shard not already remediated this cycle.
func (e *Enforcer) runCycle(ctx context.Context) {
	started := time.Now()

	e.checkTemperature(ctx)

	remediated := make(map[interfaces.ShardID]bool)
	e.entropyPass(ctx, remediated)
	e.regularityPass(ctx, remediated)

	e.mu.Lock()
	e.cycleCount++
	e.lastCycleAt = time.Now().UTC()
	cycle := e.cycleCount
	e.mu.Unlock()

	e.mtr.CyclesTotal.Inc()
	e.mtr.CycleDuration.Observe(time.Since(started).Seconds())

	e.log.Debug("Enforcement cycle completed",
		slog.Uint64("cycle", cycle),
		slog.Duration("elapsed", time.Since(started)))
}

// checkTemperature compares the current probe reading against the
// adaptive baseline. A delta beyond the allowed variance raises an
// alert. Deltas between one and two variances additionally move the
// baseline to the new reading, so the loop tracks gradual environmental
// drift without normalizing abrupt excursions.
func (e *Enforcer) checkTemperature(ctx context.Context) {
	current, err := e.probe.Read(ctx)
	if err != nil {
		e.log.Warn("Temperature probe read failed; skipping check", "err", err)
		return
	}

	e.mtr.ChecksTotal.WithLabelValues("temperature").Inc()
	e.mtr.AmbientTemperature.Set(current)

	e.mu.RLock()
	baseline := e.baseline
	e.mu.RUnlock()

	delta := math.Abs(current - baseline)
	if delta <= e.cfg.TemperatureVariance {
		e.log.Debug("Temperature within allowed variance",
			slog.Float64("current", current),
			slog.Float64("baseline", baseline),
			slog.Float64("delta", delta))
		return
	}

	e.log.Warn("Temperature excursion beyond allowed variance",
		slog.Float64("baseline", baseline),
		slog.Float64("current", current),
		slog.Float64("delta", delta),
		slog.Float64("variance", e.cfg.TemperatureVariance))

	e.publish(ctx, interfaces.NewTemperatureViolationAlert(baseline, current, delta, e.cfg.TemperatureVariance))

	if delta < 2*e.cfg.TemperatureVariance {
		e.mu.Lock()
		e.baseline = current
		e.mu.Unlock()
		e.mtr.BaselineTemperature.Set(current)
		e.log.Info("Temperature baseline adapted",
			slog.Float64("old_baseline", baseline),
			slog.Float64("new_baseline", current))
	}
}

// entropyPass measures the Shannon entropy of every monitored shard.
// Material below the floor is alerted and then destructively
// overwritten; the alerts always precede the overwrite so the journal
// records what was found even when remediation fails.
func (e *Enforcer) entropyPass(ctx context.Context, remediated map[interfaces.ShardID]bool) {
	for _, shard := range e.shards {
		content, err := shard.Vault.Fetch(ctx)
		if err != nil {
			e.log.Warn("Failed to fetch shard for entropy check",
				slog.String("shard", shard.ID.String()), "err", err)
			continue
		}

		e.mtr.ChecksTotal.WithLabelValues("entropy").Inc()
		bits := entropy.Shannon(content)
		e.mtr.ShardEntropyBits.WithLabelValues(shard.ID.String()).Set(bits)

		healthy := bits >= e.cfg.EntropyThreshold
		e.observe(shard.ID, bits, healthy)

		if healthy {
			e.log.Debug("Shard entropy check passed",
				slog.String("shard", shard.ID.String()),
				slog.Float64("entropy", bits))
			continue
		}

		e.log.Warn("Shard entropy below threshold",
			slog.String("shard", shard.ID.String()),
			slog.Float64("entropy", bits),
			slog.Float64("threshold", e.cfg.EntropyThreshold))

		e.publish(ctx, interfaces.NewEntropyViolationAlert(shard.ID.String(), bits, e.cfg.EntropyThreshold))
		e.publish(ctx, interfaces.NewApoptosisEntropyAlert(shard.ID.String(), bits))
		e.apoptose(ctx, shard, content, entropyReplacementSize, interfaces.ReasonEntropyViolation)
		remediated[shard.ID] = true
	}
}

// regularityPass screens shard material for statistical patterns
// consistent with an embedded mathematical backdoor. Shards remediated
// earlier in this cycle hold a fresh random replacement, so judging
// them again would be meaningless and they are skipped.
func (e *Enforcer) regularityPass(ctx context.Context, remediated map[interfaces.ShardID]bool) {
	for _, shard := range e.shards {
		if remediated[shard.ID] {
			continue
		}

		content, err := shard.Vault.Fetch(ctx)
		if err != nil {
			e.log.Warn("Failed to fetch shard for regularity check",
				slog.String("shard", shard.ID.String()), "err", err)
			continue
		}

		e.mtr.ChecksTotal.WithLabelValues("regularity").Inc()

		if !entropy.DetectRegularities(content) {
			continue
		}

		e.log.Error("Mathematical regularities detected in shard material",
			slog.String("shard", shard.ID.String()))

		e.publish(ctx, interfaces.NewRegularityAlert(shard.ID.String()))
		e.publish(ctx, interfaces.NewApoptosisBackdoorAlert(shard.ID.String()))
		e.apoptose(ctx, shard, content, regularityReplacementSize, interfaces.ReasonMathematicalBackdoor)
	}
}

// publish records an alert in the history ring and fans it out to all
// registered sinks. Apoptosis alerts count by trigger reason, every
// other kind counts as a violation.
func (e *Enforcer) publish(ctx context.Context, alert interfaces.Alert) {
	if alert.Kind == interfaces.AlertCryptographicApoptosis {
		e.mtr.ApoptosisTotal.WithLabelValues(string(alert.Reason)).Inc()
	} else {
		e.mtr.ViolationsTotal.WithLabelValues(string(alert.Kind)).Inc()
	}

	e.history.add(alert)
	_ = e.bus.Deliver(ctx, alert)
}

// observe updates the tracked state of one shard after an entropy
// measurement.
func (e *Enforcer) observe(id interfaces.ShardID, bits float64, healthy bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state := e.states[id]
	state.LastEntropy = bits
	state.LastChecked = time.Now().UTC()
	state.Healthy = healthy
}

// apoptose destructively replaces shard material with fresh random
// bytes. The fingerprint of the condemned content is logged before the
// overwrite so the event remains provable afterwards. When no
// replacement randomness can be obtained the shard is left untouched;
// overwriting key material with predictable bytes would hand an
// attacker exactly what the overwrite exists to deny.
func (e *Enforcer) apoptose(ctx context.Context, shard MonitoredShard, condemned []byte, size int, reason interfaces.ApoptosisReason) {
	replacement := make([]byte, size)
	if _, err := rand.Read(replacement); err != nil {
		e.log.Error("No randomness for replacement material; shard left untouched",
			slog.String("shard", shard.ID.String()), "err", err)
		return
	}

	fingerprint := shardvault.FingerprintHex(condemned)

	if err := shard.Vault.Overwrite(ctx, replacement); err != nil {
		e.mu.Lock()
		e.states[shard.ID].Healthy = false
		e.mu.Unlock()

		e.log.Error("Failed to overwrite condemned shard material",
			slog.String("shard", shard.ID.String()),
			slog.String("reason", string(reason)), "err", err)
		return
	}

	e.mu.Lock()
	e.apoptosisEvents++
	state := e.states[shard.ID]
	state.Healthy = false
	state.Apoptosed = true
	e.mu.Unlock()

	e.log.Warn("Cryptographic apoptosis executed",
		slog.String("shard", shard.ID.String()),
		slog.String("reason", string(reason)),
		slog.String("condemned_fingerprint", fingerprint),
		slog.Int("bytes_written", size))
}
