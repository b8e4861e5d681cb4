// Package kafkasink publishes audit events to a Kafka topic as CloudEvents
// JSON, keyed by account id so one account's events stay ordered within a
// partition.
package kafkasink

import (
	"context"
	"encoding/json"
	"time"

	"github.com/MrEthical07/schedauth/internal/audit"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Writer is the subset of *kafka.Writer the sink uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config describes where events go.
type Config struct {
	Brokers []string
	Topic   string
	// Source fills the CloudEvents source attribute.
	Source string
	// WriteTimeout bounds a single publish. Zero means 5s.
	WriteTimeout time.Duration
}

type cloudEvent struct {
	ID          string      `json:"id"`
	Source      string      `json:"source"`
	SpecVersion string      `json:"specversion"`
	Type        string      `json:"type"`
	Time        time.Time   `json:"time"`
	Subject     string      `json:"subject,omitempty"`
	ContentType string      `json:"datacontenttype"`
	Data        audit.Event `json:"data"`
}

// Sink implements audit.Sink. Publish errors are logged and otherwise
// ignored; audit delivery never fails a request.
type Sink struct {
	w       Writer
	source  string
	timeout time.Duration
	log     *zap.Logger
}

// New builds a Sink with a synchronous kafka.Writer that waits for all
// in-sync replicas.
func New(cfg Config, log *zap.Logger) *Sink {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return NewWithWriter(w, cfg, log)
}

func NewWithWriter(w Writer, cfg Config, log *zap.Logger) *Sink {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	source := cfg.Source
	if source == "" {
		source = "schedauth"
	}
	return &Sink{w: w, source: source, timeout: timeout, log: log}
}

func (s *Sink) Emit(ctx context.Context, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	ce := cloudEvent{
		ID:          uuid.NewString(),
		Source:      s.source,
		SpecVersion: "1.0",
		Type:        "schedauth." + event.Type,
		Time:        event.Timestamp,
		Subject:     event.AccountID,
		ContentType: "application/json",
		Data:        event,
	}
	payload, err := json.Marshal(ce)
	if err != nil {
		s.log.Error("audit_kafka_encode_failed", zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err = s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.AccountID),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "ce_id", Value: []byte(ce.ID)},
			{Key: "ce_type", Value: []byte(ce.Type)},
		},
	})
	if err != nil {
		s.log.Error("audit_kafka_publish_failed",
			zap.String("event_type", event.Type),
			zap.Error(err),
		)
	}
}

func (s *Sink) Close() error {
	return s.w.Close()
}
