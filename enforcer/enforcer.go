package enforcer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/ruteri/shard-integrity-enforcer/alerts"
	"github.com/ruteri/shard-integrity-enforcer/interfaces"
	"github.com/ruteri/shard-integrity-enforcer/metrics"
)

// ErrNotRunning means an operation tried to wake the monitoring loop
// while it was stopping.
var ErrNotRunning = errors.New("enforcer is not running")

// MonitoredShard pairs a shard identifier with the vault holding its
// material.
type MonitoredShard struct {
	ID    interfaces.ShardID
	Vault interfaces.ShardVault
}

// Enforcer runs the shard integrity enforcement loop: every check
// interval it reads the ambient temperature, measures the entropy of
// every monitored shard, screens shard contents for statistical
// regularities, and answers violations with alerts followed by a
// destructive overwrite of the affected shard.
//
// All public methods are safe for concurrent use. Cycles are serialized
// by a dedicated mutex, so vault and sink calls from one Enforcer never
// overlap.
type Enforcer struct {
	log    *slog.Logger
	cfg    Config
	probe  interfaces.EnvironmentProbe
	shards []MonitoredShard

	bus     *alerts.Bus
	mtr     *metrics.Metrics
	history *alertHistory

	running atomic.Bool

	// cycleMu serializes enforcement cycles across the background loop
	// and inline CheckNow calls.
	cycleMu sync.Mutex

	mu              sync.RWMutex
	baseline        float64
	cycleCount      uint64
	lastCycleAt     time.Time
	apoptosisEvents uint64
	states          map[interfaces.ShardID]*interfaces.ShardState
	stopCh          chan struct{}
	loopDone        chan struct{}

	// wakeCh carries on-demand check requests into the loop. A non-nil
	// element is closed once the requested cycle completes.
	wakeCh chan chan struct{}

	watchPaths []string
	watcher    *tamperWatcher
}

// New builds an Enforcer over the given shards. The initial temperature
// baseline is captured from the probe at construction time.
func New(log *slog.Logger, cfg Config, probe interfaces.EnvironmentProbe, shards []MonitoredShard) (*Enforcer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if probe == nil {
		return nil, errors.New("environment probe is required")
	}
	if len(shards) == 0 {
		return nil, errors.New("at least one shard to monitor is required")
	}

	states := make(map[interfaces.ShardID]*interfaces.ShardState, len(shards))
	for _, shard := range shards {
		if shard.Vault == nil {
			return nil, fmt.Errorf("shard %s has no vault", shard.ID)
		}
		if _, exists := states[shard.ID]; exists {
			return nil, fmt.Errorf("duplicate shard identifier %s", shard.ID)
		}
		states[shard.ID] = &interfaces.ShardState{Location: shard.Vault.LocationURI()}
	}

	baseline, err := probe.Read(context.Background())
	if err != nil {
		return nil, fmt.Errorf("initial baseline read: %w", err)
	}

	cfg = cfg.withDefaults()

	e := &Enforcer{
		log:      log,
		cfg:      cfg,
		probe:    probe,
		shards:   shards,
		bus:      alerts.NewBus(log),
		mtr:      metrics.New(),
		history:  newAlertHistory(cfg.HistoryCapacity),
		baseline: baseline,
		states:   states,
		wakeCh:   make(chan chan struct{}, 1),
	}
	e.mtr.BaselineTemperature.Set(baseline)

	log.Info("Enforcer initialized",
		slog.Float64("baseline_temperature", baseline),
		slog.Int("shards", len(shards)))

	return e, nil
}

// SetMetrics replaces the internal metrics instance, for sharing a
// registry across components. Call before Start.
func (e *Enforcer) SetMetrics(m *metrics.Metrics) *Enforcer {
	e.mtr = m
	e.mtr.BaselineTemperature.Set(e.baseline)
	return e
}

// Metrics returns the metrics instance backing this enforcer, for
// serving its registry.
func (e *Enforcer) Metrics() *metrics.Metrics {
	return e.mtr
}

// EnableTamperWatch arranges for the given filesystem paths to be watched
// while the loop runs. A change observed between cycles wakes the loop
// for an immediate check. Overwrites performed by the enforcer itself
// also wake the loop; the follow-up cycle re-verifies the replacement.
// Call before Start.
func (e *Enforcer) EnableTamperWatch(paths []string) *Enforcer {
	e.watchPaths = paths
	return e
}

// RegisterAlertSink subscribes a sink to all future alerts. Safe to call
// while the loop is running.
func (e *Enforcer) RegisterAlertSink(sink interfaces.AlertSink) {
	e.bus.Register(sink)
}

// SetBaseline overrides the temperature baseline. Only permitted while
// monitoring is stopped; while running, the baseline belongs to the loop.
func (e *Enforcer) SetBaseline(value float64) {
	if e.running.Load() {
		e.log.Warn("Cannot set baseline while monitoring is running")
		return
	}

	e.mu.Lock()
	e.baseline = value
	e.mu.Unlock()
	e.mtr.BaselineTemperature.Set(value)
}

// Start launches the background monitoring loop. Starting an already
// running enforcer logs a warning and does nothing.
func (e *Enforcer) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running.Load() {
		e.log.Warn("Enforcer already running")
		return
	}
	if e.loopDone != nil {
		select {
		case <-e.loopDone:
		default:
			// The previous loop is still draining past its stop timeout.
			e.log.Error("Previous monitoring loop has not exited; start refused")
			return
		}
	}

	e.stopCh = make(chan struct{})
	e.loopDone = make(chan struct{})
	e.running.Store(true)

	e.log.Info("Starting shard integrity monitoring",
		slog.Float64("entropy_threshold", e.cfg.EntropyThreshold),
		slog.Float64("temperature_variance", e.cfg.TemperatureVariance),
		slog.Duration("check_interval", e.cfg.CheckInterval),
		slog.Int("shards", len(e.shards)))

	if len(e.watchPaths) > 0 {
		watcher, err := newTamperWatcher(e.log, e.watchPaths, e.nudge)
		if err != nil {
			e.log.Error("Tamper watcher unavailable; continuing without it", "err", err)
		} else {
			e.watcher = watcher
		}
	}

	go e.run(e.stopCh, e.loopDone)
}

// Stop signals the monitoring loop to exit and waits for it, bounded by
// the configured stop timeout. Stopping an already stopped enforcer logs
// a warning and does nothing.
func (e *Enforcer) Stop() {
	e.mu.Lock()
	if !e.running.Load() {
		e.mu.Unlock()
		e.log.Warn("Enforcer is not running")
		return
	}

	e.running.Store(false)
	stopCh, loopDone := e.stopCh, e.loopDone
	watcher := e.watcher
	e.watcher = nil
	e.mu.Unlock()

	close(stopCh)
	if watcher != nil {
		watcher.Close()
	}

	select {
	case <-loopDone:
		e.log.Info("Shard integrity monitoring stopped")
	case <-time.After(e.cfg.StopTimeout):
		e.log.Error("Monitoring loop did not exit within the stop timeout",
			slog.Duration("timeout", e.cfg.StopTimeout))
	}
}

// CheckNow runs one enforcement cycle on demand. While the loop is
// running the request is handed to it, preserving the one-cycle-at-a-time
// invariant; while stopped, the cycle runs inline on the caller's
// goroutine. Returns once the cycle has completed.
func (e *Enforcer) CheckNow(ctx context.Context) error {
	if e.running.Load() {
		e.mu.RLock()
		stopCh := e.stopCh
		e.mu.RUnlock()

		done := make(chan struct{})
		select {
		case e.wakeCh <- done:
		case <-stopCh:
			return ErrNotRunning
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-done:
			return nil
		case <-stopCh:
			return ErrNotRunning
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.safeCycle(ctx)
	return nil
}

// Status returns a point-in-time snapshot of the enforcement loop.
func (e *Enforcer) Status() interfaces.EnforcerStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()

	shards := make([]interfaces.ShardState, 0, len(e.shards))
	for _, shard := range e.shards {
		shards = append(shards, *e.states[shard.ID])
	}

	return interfaces.EnforcerStatus{
		Running:             e.running.Load(),
		BaselineTemperature: e.baseline,
		CycleCount:          e.cycleCount,
		LastCycleAt:         e.lastCycleAt,
		ApoptosisEvents:     e.apoptosisEvents,
		AlertsTotal:         e.history.count(),
		Shards:              shards,
	}
}

// RecentAlerts returns up to n of the most recent alerts, newest first.
// n of zero or less returns everything the history ring holds.
func (e *Enforcer) RecentAlerts(n int) []interfaces.Alert {
	return e.history.recent(n)
}

// run is the monitoring loop. The first cycle runs immediately; further
// cycles follow the ticker or an on-demand wake.
func (e *Enforcer) run(stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()

	e.safeCycle(context.Background())

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			e.safeCycle(context.Background())
		case ack := <-e.wakeCh:
			e.safeCycle(context.Background())
			if ack != nil {
				close(ack)
			}
		}
	}
}

// nudge requests an extra cycle without blocking. Used by the tamper
// watcher; an already pending request is sufficient.
func (e *Enforcer) nudge() {
	select {
	case e.wakeCh <- nil:
	default:
	}
}

// safeCycle runs one cycle, containing panics so a single bad iteration
// cannot kill the loop.
func (e *Enforcer) safeCycle(ctx context.Context) {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.log.Error("Enforcement cycle panicked", slog.Any("panic", r))
		}
	}()

	e.runCycle(ctx)
}
