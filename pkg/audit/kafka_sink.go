package audit

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/metrics"
)

// KafkaConfig configures a KafkaSink.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses. Empty disables the
	// Kafka sink.
	Brokers []string `yaml:"brokers"`

	// Topic is the Kafka topic to write audit events to.
	Topic string `yaml:"topic"`

	// Username/Password enable SASL PLAIN authentication when set.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// TLSEnabled turns on TLS for the broker connection.
	TLSEnabled bool `yaml:"tlsEnabled"`

	// BatchTimeout is the maximum time to wait before flushing a batch.
	// Default: 1 second.
	BatchTimeout time.Duration `yaml:"batchTimeout"`

	// WriteTimeout is the timeout for writing messages. Default: 10s.
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// KafkaSink writes audit events to a Kafka topic.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
	mu     sync.Mutex
	closed bool

	messagesWritten atomic.Int64
	messagesFailed  atomic.Int64
}

// NewKafkaSink creates a new KafkaSink.
func NewKafkaSink(cfg KafkaConfig, logger *zap.Logger) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker is required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}

	transport := &kafka.Transport{}
	if cfg.TLSEnabled {
		transport.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	if cfg.Username != "" {
		transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
	}

	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = time.Second
	}
	writeTimeout := cfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           batchTimeout,
		WriteTimeout:           writeTimeout,
		RequiredAcks:           kafka.RequireAll,
		Compression:            kafka.Snappy,
		Transport:              transport,
		AllowAutoTopicCreation: false,
	}

	logger.Info("Kafka audit sink created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
		zap.Bool("tls_enabled", cfg.TLSEnabled),
		zap.Bool("sasl_enabled", cfg.Username != ""))

	return &KafkaSink{writer: writer, logger: logger.Named("kafka-audit")}, nil
}

// classifyKafkaError categorizes Kafka errors for metrics and logging.
func classifyKafkaError(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network"
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "SASL") || strings.Contains(errStr, "authentication"):
		return "auth"
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return "timeout"
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return "network"
	case strings.Contains(errStr, "topic"):
		return "topic"
	default:
		return "other"
	}
}

// Write sends an audit event to Kafka.
func (s *KafkaSink) Write(ctx context.Context, event *Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		metrics.AuditSinkErrors.WithLabelValues(s.Name(), "closed").Inc()
		return fmt.Errorf("kafka sink is closed")
	}
	s.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		metrics.AuditSinkErrors.WithLabelValues(s.Name(), "serialization").Inc()
		s.messagesFailed.Add(1)
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	msg := kafka.Message{
		// Tenant id as the key keeps one tenant's trail ordered within
		// a partition.
		Key:   []byte(event.TenantID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
			{Key: "severity", Value: []byte(event.Severity)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}

	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		errorType := classifyKafkaError(err)
		metrics.AuditSinkErrors.WithLabelValues(s.Name(), errorType).Inc()
		s.messagesFailed.Add(1)

		logFields := []zap.Field{
			zap.Error(err),
			zap.String("error_type", errorType),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
		}
		switch errorType {
		case "network", "timeout":
			s.logger.Warn("Kafka sink temporarily unavailable, event dropped", logFields...)
		default:
			s.logger.Error("failed to write audit event to Kafka", logFields...)
		}
		return fmt.Errorf("failed to write to Kafka (%s): %w", errorType, err)
	}

	metrics.AuditEventsWritten.WithLabelValues(s.Name()).Inc()
	s.messagesWritten.Add(1)
	return nil
}

// Close closes the Kafka writer.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	s.logger.Info("closing Kafka audit sink",
		zap.Int64("messages_written", s.messagesWritten.Load()),
		zap.Int64("messages_failed", s.messagesFailed.Load()))

	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka writer: %w", err)
	}
	return nil
}

// Name returns the sink identifier.
func (s *KafkaSink) Name() string { return "kafka" }

// MessageStats returns message statistics for monitoring.
func (s *KafkaSink) MessageStats() (written, failed int64) {
	return s.messagesWritten.Load(), s.messagesFailed.Load()
}
