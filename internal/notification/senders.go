package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"
)

// LogSender writes notifications to the log. Used when no broker is configured.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.InfoContext(ctx, "notification",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"volunteer_id", msg.VolunteerID,
		"status", msg.Status,
		"request_id", msg.RequestID,
	)
	return nil
}

// Producer is the part of *kgo.Client the Kafka sender needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSender publishes notifications to a topic consumed by the mail service.
// Records are keyed by record id so one volunteer's messages stay ordered.
type KafkaSender struct {
	producer Producer
	topic    string
}

func NewKafkaSender(producer Producer, topic string) *KafkaSender {
	return &KafkaSender{producer: producer, topic: topic}
}

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(msg.RecordID),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(msg.Kind)},
		},
	}
	if err := s.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce notification: %w", err)
	}
	return nil
}
