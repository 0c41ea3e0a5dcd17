package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/hpc-sre/sarchive/internal/scheduler"
)

// jobMessage is the canonical JSON shape published to the archive
// topic. Environment is omitted entirely when the adapter didn't
// produce any key/value pairs (the Torque shape never does).
type jobMessage struct {
	ID          string            `json:"id"`
	Timestamp   time.Time         `json:"timestamp"`
	Cluster     string            `json:"cluster"`
	Script      string            `json:"script"`
	Environment map[string]string `json:"environment,omitempty"`
}

// KafkaSink publishes job records as JSON to a Kafka topic.
// Transport failures are logged, not surfaced: once a record has been
// handed to the producer, the archiver's job is done — retrying or
// failing the whole pipeline over a broker hiccup would mean losing
// spool entries the scheduler is about to delete anyway.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaSink builds a KafkaSink publishing to topic on brokers.
// messageTimeout bounds how long a single write is allowed to take.
func NewKafkaSink(brokers []string, topic string, messageTimeout time.Duration, logger *slog.Logger) *KafkaSink {
	if logger == nil {
		logger = slog.Default()
	}
	if messageTimeout <= 0 {
		messageTimeout = 5 * time.Second
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		WriteTimeout: messageTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return &KafkaSink{writer: writer, logger: logger}
}

// Submit serializes record and publishes it. Serialization failure is
// surfaced as ErrInvalidData; transport failure is logged and swallowed.
func (s *KafkaSink) Submit(ctx context.Context, record *scheduler.JobRecord) error {
	msg := jobMessage{
		ID:          record.JobID,
		Timestamp:   time.Now().UTC(),
		Cluster:     record.Cluster,
		Script:      string(record.Script),
		Environment: record.ExtraInfo,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}

	if err := s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(record.JobID),
		Value: payload,
	}); err != nil {
		s.logger.Error("kafka publish failed, continuing", "job_id", record.JobID, "err", err)
	}
	return nil
}

// Close flushes and closes the underlying producer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
