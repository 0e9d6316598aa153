// Package audit records the console's notification and task-lifecycle
// trail. Events flow to a configured sink (Kafka when brokers are set,
// the structured log otherwise); writes are best-effort and a sink
// failure never propagates into the job or handler that emitted the
// event.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// writeTimeout bounds one sink write so a stalled broker cannot stall
// the emitting job.
const writeTimeout = 5 * time.Second

// Service is the emission front door handed to jobs and controllers.
type Service struct {
	sink   Sink
	logger *zap.SugaredLogger

	// now is swappable for tests.
	now func() time.Time
}

// NewService creates an audit Service over a sink. A nil sink falls
// back to the structured log.
func NewService(sink Sink, logger *zap.SugaredLogger) *Service {
	if sink == nil {
		sink = NewLogSink(logger.Desugar())
	}
	return &Service{sink: sink, logger: logger, now: time.Now}
}

// Record fills in the event's id, severity, and timestamp and writes it
// to the sink. Failures are logged and swallowed.
func (s *Service) Record(ctx context.Context, event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Severity == "" {
		event.Severity = SeverityForEventType(event.Type)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	// Detach from the caller's context so a completed request does not
	// cancel the trail write, but still bound the attempt.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.sink.Write(writeCtx, &event); err != nil {
		s.logger.Warnw("Failed to write audit event",
			"sink", s.sink.Name(),
			"eventType", event.Type,
			"tenant", event.TenantID,
			"error", err)
	}
}

// Close releases the underlying sink.
func (s *Service) Close() error {
	return s.sink.Close()
}
