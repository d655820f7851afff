package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records published events for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	events map[string][]*Event
	logger *slog.Logger

	failErr error
}

// NewMockEventPublisher creates a recording publisher
func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{
		events: make(map[string][]*Event),
		logger: logger,
	}
}

// FailWith makes Publish return err until cleared with FailWith(nil)
func (m *MockEventPublisher) FailWith(err error) {
	m.mu.Lock()
	m.failErr = err
	m.mu.Unlock()
}

func (m *MockEventPublisher) Publish(ctx context.Context, topic string, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return m.failErr
	}
	m.events[topic] = append(m.events[topic], event)
	if m.logger != nil {
		m.logger.Debug("mock publish", "topic", topic, "type", event.Type)
	}
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// Published returns the events recorded for a topic
func (m *MockEventPublisher) Published(topic string) []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Event(nil), m.events[topic]...)
}

// PublishedOfType filters recorded events by type across one topic
func (m *MockEventPublisher) PublishedOfType(topic, eventType string) []*Event {
	var result []*Event
	for _, e := range m.Published(topic) {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}
