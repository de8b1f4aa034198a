package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Producer is the slice of *kgo.Client the Kafka sink uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaSink publishes events as JSON, keyed by report ID so one report's
// events stay ordered within a partition.
type KafkaSink struct {
	producer Producer
	topic    string
}

func NewKafkaSink(producer Producer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

func (s *KafkaSink) Append(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	records := make([]*kgo.Record, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode audit event %s: %w", e.ID, err)
		}
		records = append(records, &kgo.Record{
			Topic: s.topic,
			Key:   []byte(e.ReportID),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "action", Value: []byte(e.Action)},
			},
		})
	}
	if err := s.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		return fmt.Errorf("produce audit events: %w", err)
	}
	return nil
}
