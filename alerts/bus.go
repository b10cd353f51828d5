package alerts

import (
	"context"
	"log/slog"
	"sync"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// Bus fans alerts out to all registered sinks. A failing or panicking
// sink never affects the other sinks or the caller.
type Bus struct {
	log *slog.Logger

	mu    sync.RWMutex
	sinks []interfaces.AlertSink
}

// NewBus creates an empty alert bus.
func NewBus(log *slog.Logger) *Bus {
	return &Bus{log: log}
}

// Register adds a sink to the bus. Safe to call concurrently with Deliver.
func (b *Bus) Register(sink interfaces.AlertSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, sink)
}

// Deliver sends the alert to every registered sink in registration order.
// Always returns nil; sink failures are logged and swallowed so that a
// broken sink cannot suppress remediation.
func (b *Bus) Deliver(ctx context.Context, alert interfaces.Alert) error {
	b.mu.RLock()
	sinks := make([]interfaces.AlertSink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, sink := range sinks {
		b.deliverOne(ctx, sink, alert)
	}

	return nil
}

// deliverOne delivers to a single sink, containing panics.
func (b *Bus) deliverOne(ctx context.Context, sink interfaces.AlertSink, alert interfaces.Alert) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("Alert sink panicked",
				slog.String("alert_id", alert.ID),
				slog.String("alert_type", string(alert.Kind)),
				slog.Any("panic", r))
		}
	}()

	if err := sink.Deliver(ctx, alert); err != nil {
		b.log.Warn("Alert sink failed",
			slog.String("alert_id", alert.ID),
			slog.String("alert_type", string(alert.Kind)),
			"err", err)
	}
}
