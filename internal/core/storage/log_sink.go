package storage

import (
	"context"
	"log/slog"

	v1 "github.com/aevon-lab/jfrtel/internal/api/v1"
)

// LogSink writes telemetry as structured log records. It is the default sink
// and never fails.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink writing to logger, or to the default logger if nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) SendEvents(ctx context.Context, events []v1.Event) error {
	for _, evt := range events {
		s.logger.InfoContext(ctx, "[LogSink] Event",
			"event_type", evt.Type,
			"timestamp", evt.Timestamp,
			"attributes", map[string]interface{}(evt.Attributes),
		)
	}
	return nil
}

func (s *LogSink) SendSummaries(ctx context.Context, points []v1.SummaryPoint) error {
	for _, p := range points {
		s.logger.InfoContext(ctx, "[LogSink] Summary",
			"name", p.Name,
			"count", p.Count,
			"sum", p.Sum.String(),
			"min", p.Min,
			"max", p.Max,
			"start_time_ms", p.StartTimeMs,
			"end_time_ms", p.EndTimeMs,
			"attributes", map[string]interface{}(p.Attributes),
		)
	}
	return nil
}
