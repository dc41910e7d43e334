package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/ntentasd/fitmetrics-api/internal/metrics"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
)

const eventTypeHeader = "event_type"

const WorkoutRecordedEvent = "workout.recorded"

type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(brokers, newConfig("fitmetrics-api"))
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewPublisherFromProducer(producer, topic), nil
}

func NewPublisherFromProducer(producer sarama.SyncProducer, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{producer, topic}
}

// PublishWorkoutRecorded sends ev keyed by owner, so one owner's events stay
// ordered within a partition.
func (p *Publisher) PublishWorkoutRecorded(ctx context.Context, ev types.WorkoutRecorded) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, _, err = p.producer.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.UserID.String()),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte(eventTypeHeader), Value: []byte(WorkoutRecordedEvent)},
		},
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("failed to publish event: %w", err)
	}
	metrics.EventsPublishedTotal.WithLabelValues("ok").Inc()

	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

// NopPublisher drops every event. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishWorkoutRecorded(context.Context, types.WorkoutRecorded) error {
	return nil
}
