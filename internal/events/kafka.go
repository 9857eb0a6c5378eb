package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/crmdesk/crm-service/internal/config"
)

// ErrForwarderClosed is returned when Forward is called after Close.
var ErrForwarderClosed = errors.New("kafka forwarder closed")

// MessageWriter is the subset of *kafka.Writer the forwarder needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaForwarder copies every dispatched event onto a Kafka topic, keyed by record id
// so that all events of one record land on the same partition.
type KafkaForwarder struct {
	writer MessageWriter
	logger *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewKafkaForwarder builds a forwarder for cfg. It returns nil when no brokers are configured.
func NewKafkaForwarder(cfg config.KafkaConfig, logger *zap.Logger) *KafkaForwarder {
	if len(cfg.Brokers) == 0 {
		return nil
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return NewKafkaForwarderWithWriter(writer, logger)
}

// NewKafkaForwarderWithWriter wraps an existing writer.
func NewKafkaForwarderWithWriter(writer MessageWriter, logger *zap.Logger) *KafkaForwarder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaForwarder{writer: writer, logger: logger}
}

// Attach subscribes the forwarder to every event type on d.
func (f *KafkaForwarder) Attach(d Dispatcher) {
	if f == nil || d == nil {
		return
	}
	SubscribeAll(d, f.Forward)
}

// Forward serializes event and writes it to Kafka.
func (f *KafkaForwarder) Forward(ctx context.Context, event Event) error {
	f.mu.Lock()
	closed := f.closed
	f.mu.Unlock()
	if closed {
		return ErrForwarderClosed
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.RecordID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "record_type", Value: []byte(event.RecordType)},
		},
		Time: event.Timestamp,
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write event to kafka: %w", err)
	}
	f.logger.Debug("event forwarded", zap.String("event_type", string(event.Type)), zap.String("record_id", event.RecordID))
	return nil
}

// Close flushes and closes the underlying writer.
func (f *KafkaForwarder) Close() error {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.writer.Close()
}
