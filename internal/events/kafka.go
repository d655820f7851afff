package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
)

// KafkaPublisher forwards integrity audit events to Kafka so proctoring
// dashboards outside this service can consume them. Optional: the engine
// runs fine without brokers configured.
type KafkaPublisher struct {
	publisher *kafka.Publisher
	logger    *slog.Logger
}

// NewKafkaPublisher connects to the given brokers
func NewKafkaPublisher(brokers []string, logger *slog.Logger) (*KafkaPublisher, error) {
	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: kafka.DefaultMarshaler{},
		},
		watermill.NewSlogLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return &KafkaPublisher{publisher: publisher, logger: logger}, nil
}

// Publish sends an event to a Kafka topic
func (k *KafkaPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := Marshal(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := k.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to kafka topic %s: %w", event.Type, topic, err)
	}
	return nil
}

// Close shuts down the Kafka producer
func (k *KafkaPublisher) Close() error {
	return k.publisher.Close()
}

// FanoutPublisher publishes each event to every wrapped publisher. Used to
// mirror integrity events onto the local bus and the Kafka audit stream.
type FanoutPublisher struct {
	publishers []Publisher
	logger     *slog.Logger
}

// NewFanoutPublisher wraps the given publishers; nil entries are skipped
func NewFanoutPublisher(logger *slog.Logger, publishers ...Publisher) *FanoutPublisher {
	var active []Publisher
	for _, p := range publishers {
		if p != nil {
			active = append(active, p)
		}
	}
	return &FanoutPublisher{publishers: active, logger: logger}
}

// Publish delivers to all wrapped publishers, returning the first error
// after attempting every one.
func (f *FanoutPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	var firstErr error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, topic, event); err != nil {
			f.logger.Error("fanout publish failed", "topic", topic, "type", event.Type, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Close closes all wrapped publishers
func (f *FanoutPublisher) Close() error {
	var firstErr error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
