package events

import (
	"context"
	"log/slog"
)

// ToastLevel is the severity of a user-facing toast
type ToastLevel string

const (
	ToastSuccess ToastLevel = "success"
	ToastInfo    ToastLevel = "info"
	ToastWarning ToastLevel = "warning"
	ToastError   ToastLevel = "error"
)

// Notifier delivers user-facing toast messages. The default implementation
// publishes them on the toast topic for the presentation layer to render;
// delivery is fire-and-forget.
type Notifier interface {
	Toast(ctx context.Context, level ToastLevel, text string, durationMs int)
}

type topicNotifier struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewNotifier creates a Notifier publishing on TopicToasts
func NewNotifier(publisher Publisher, logger *slog.Logger) Notifier {
	return &topicNotifier{publisher: publisher, logger: logger}
}

func (n *topicNotifier) Toast(ctx context.Context, level ToastLevel, text string, durationMs int) {
	event := NewEvent(EventToast, map[string]interface{}{
		"level":       string(level),
		"text":        text,
		"duration_ms": durationMs,
	})
	if err := n.publisher.Publish(ctx, TopicToasts, event); err != nil {
		n.logger.Error("failed to publish toast", "error", err, "text", text)
	}
}
