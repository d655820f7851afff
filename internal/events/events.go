// Package events carries the engine's in-process messaging: connectivity
// transitions, toast notifications for the presentation layer and integrity
// audit events. Everything rides on watermill topics so the HTTP surface,
// the sync worker and an optional Kafka audit sink stay decoupled.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// Topic names.
const (
	TopicConnectivity = "connectivity.changed"
	TopicToasts       = "toasts"
	TopicIntegrity    = "integrity.events"
	TopicSyncResults  = "sync.completed"
)

// Event types.
const (
	EventConnectivityChanged = "connectivity.changed"
	EventToast               = "toast.requested"
	EventWarningIssued       = "integrity.warning_issued"
	EventQuizLocked          = "integrity.quiz_locked"
	EventCountersCleared     = "integrity.counters_cleared"
	EventSyncCompleted       = "outbox.sync_completed"
)

// EventSource identifies this service in published events
const EventSource = "quiz-session-engine"

// Event is the envelope published on every topic
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// NewEvent builds an event envelope with a fresh id and timestamp
func NewEvent(eventType string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   "1.0",
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher publishes events to a topic
type Publisher interface {
	Publish(ctx context.Context, topic string, event *Event) error
	Close() error
}

// Subscriber consumes raw watermill messages from a topic
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Marshal encodes an event into a watermill message
func Marshal(event *Event) (*message.Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("type", event.Type)
	msg.Metadata.Set("source", event.Source)
	return msg, nil
}

// Unmarshal decodes a watermill message back into an event
func Unmarshal(msg *message.Message) (*Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return &event, nil
}
