package notification

import (
	"context"
	"log/slog"
)

// LogSink writes events to a structured logger. It is the default sink when
// no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(ctx context.Context, events []Event) error {
	for _, e := range events {
		s.logger.InfoContext(ctx, "notification",
			"event_id", e.ID,
			"user_id", e.UserID,
			"kind", e.Kind.String(),
			"occurred_at", e.OccurredAt,
		)
	}
	return nil
}
