package alerts

import (
	"context"
	"log/slog"

	"github.com/ruteri/shard-integrity-enforcer/interfaces"
)

// LogSink writes every alert to the structured log. Apoptosis and
// critical-severity alerts log at error level, the rest at warn.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a sink logging through the given logger.
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

// Deliver implements interfaces.AlertSink.
func (s *LogSink) Deliver(ctx context.Context, alert interfaces.Alert) error {
	attrs := []any{
		slog.String("alert_id", alert.ID),
		slog.String("alert_type", string(alert.Kind)),
	}

	if alert.Shard != "" {
		attrs = append(attrs, slog.String("shard_file", alert.Shard))
	}
	if alert.Entropy != nil {
		attrs = append(attrs, slog.Float64("entropy", *alert.Entropy))
	}
	if alert.Threshold != nil {
		attrs = append(attrs, slog.Float64("threshold", *alert.Threshold))
	}
	if alert.Baseline != nil {
		attrs = append(attrs, slog.Float64("baseline", *alert.Baseline))
	}
	if alert.Current != nil {
		attrs = append(attrs, slog.Float64("current", *alert.Current))
	}
	if alert.Delta != nil {
		attrs = append(attrs, slog.Float64("delta", *alert.Delta))
	}
	if alert.Reason != "" {
		attrs = append(attrs, slog.String("reason", string(alert.Reason)))
	}
	if alert.Severity != "" {
		attrs = append(attrs, slog.String("severity", string(alert.Severity)))
	}

	if alert.Kind == interfaces.AlertCryptographicApoptosis || alert.Severity == interfaces.SeverityCritical {
		s.log.Error("Integrity alert", attrs...)
	} else {
		s.log.Warn("Integrity alert", attrs...)
	}

	return nil
}
