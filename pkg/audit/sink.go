package audit

import (
	"context"

	"go.uber.org/zap"
)

// Sink defines the interface for audit event destinations.
type Sink interface {
	// Write sends an audit event to the sink.
	Write(ctx context.Context, event *Event) error

	// Close releases any resources held by the sink.
	Close() error

	// Name returns the sink's identifier.
	Name() string
}

// LogSink writes audit events to a structured logger. It is the
// fallback sink when no Kafka brokers are configured, so the trail is
// never silently dropped.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a new LogSink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("audit")}
}

// Write logs the audit event.
func (s *LogSink) Write(_ context.Context, event *Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("severity", string(event.Severity)),
		zap.Time("timestamp", event.Timestamp),
		zap.String("tenant", event.TenantID),
	}
	if event.TaskID != "" {
		fields = append(fields, zap.String("task", event.TaskID))
	}
	if event.ProjectID != "" {
		fields = append(fields, zap.String("project", event.ProjectID))
	}
	if event.Actor != "" {
		fields = append(fields, zap.String("actor", event.Actor))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}
	s.logger.Info("audit event", fields...)
	return nil
}

// Close is a no-op for the log sink.
func (s *LogSink) Close() error { return nil }

// Name returns the sink identifier.
func (s *LogSink) Name() string { return "log" }
