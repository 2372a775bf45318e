// Package kafkaaudit publishes engine audit events to a Kafka topic.
package kafkaaudit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	goExpense "github.com/MrEthical07/goExpense"
)

var ErrNoBrokers = errors.New("kafkaaudit: at least one broker and a topic are required")

const defaultWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink implements goExpense.AuditSink. Events are JSON encoded and keyed by user id so one
// user's events stay ordered within a partition.
type Sink struct {
	writer  messageWriter
	log     *slog.Logger
	timeout time.Duration
}

var _ goExpense.AuditSink = (*Sink)(nil)

// New creates a sink writing to topic. Call Close on shutdown.
func New(brokers []string, topic string, log *slog.Logger) (*Sink, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, ErrNoBrokers
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return newSink(w, log), nil
}

func newSink(w messageWriter, log *slog.Logger) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{writer: w, log: log, timeout: defaultWriteTimeout}
}

// Emit never returns an error; failed writes are logged and the event is lost.
func (s *Sink) Emit(ctx context.Context, event goExpense.AuditEvent) {
	if s == nil || s.writer == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.log.Error("audit encode failed", "event_type", event.EventType, "err", err)
		return
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	msg := kafka.Message{Value: payload, Time: event.Timestamp}
	if event.UserID != "" {
		msg.Key = []byte(event.UserID)
	}
	msg.Headers = []kafka.Header{{Key: "event_type", Value: []byte(event.EventType)}}

	if err := s.writer.WriteMessages(writeCtx, msg); err != nil {
		s.log.Warn("audit publish failed", "event_type", event.EventType, "err", err)
	}
}

// Close flushes pending batches. Safe to call on a nil sink.
func (s *Sink) Close() error {
	if s == nil || s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
