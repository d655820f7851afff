package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// Bus is the in-process event bus backed by watermill's gochannel pub/sub.
// It implements both Publisher and Subscriber.
type Bus struct {
	pubSub *gochannel.GoChannel
}

// NewBus creates the in-process bus
func NewBus(logger *slog.Logger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewSlogLogger(logger),
	)
	return &Bus{pubSub: pubSub}
}

// Publish sends an event to a topic
func (b *Bus) Publish(ctx context.Context, topic string, event *Event) error {
	msg, err := Marshal(event)
	if err != nil {
		return err
	}
	msg.SetContext(ctx)

	if err := b.pubSub.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s to %s: %w", event.Type, topic, err)
	}
	return nil
}

// Subscribe returns a channel of messages for a topic
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, topic)
}

// Close shuts down the bus and all subscriptions
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
