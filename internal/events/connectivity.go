package events

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Connectivity tracks whether the remote store is reachable. The
// presentation layer reports transitions; a change is published on
// TopicConnectivity so the sync worker can react.
type Connectivity struct {
	online    atomic.Bool
	publisher Publisher
	logger    *slog.Logger
}

// NewConnectivity creates a tracker with the given initial state
func NewConnectivity(publisher Publisher, logger *slog.Logger, initialOnline bool) *Connectivity {
	c := &Connectivity{
		publisher: publisher,
		logger:    logger,
	}
	c.online.Store(initialOnline)
	return c
}

// Online reports the current connectivity state
func (c *Connectivity) Online() bool {
	return c.online.Load()
}

// Report records a connectivity state. Only actual transitions publish an
// event; repeated reports of the same state are no-ops.
func (c *Connectivity) Report(ctx context.Context, online bool) {
	if !c.online.CompareAndSwap(!online, online) {
		return
	}

	c.logger.Info("connectivity changed", "online", online)

	event := NewEvent(EventConnectivityChanged, map[string]interface{}{
		"online": online,
	})
	if err := c.publisher.Publish(ctx, TopicConnectivity, event); err != nil {
		c.logger.Error("failed to publish connectivity event", "error", err)
	}
}
