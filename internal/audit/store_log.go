package audit

import (
	"context"
	"log/slog"
)

// LogStore writes each event as a structured log line. It is the sink used
// when no broker is configured.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

func (s *LogStore) Append(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"principal", event.Principal,
		"service", event.Service,
		"decision", event.Decision,
		"reason", event.Reason,
		"count", event.Count,
		"timestamp", event.Timestamp,
	)
	return nil
}
