package services

import (
	"context"
	"log/slog"
	"sync"

	"github.com/classpulse/quiz-session-engine/internal/events"
)

// SyncWorker drains the outbox whenever connectivity comes back. It listens
// on the connectivity topic so a reconnect anywhere in the process triggers
// exactly one sync pass.
type SyncWorker struct {
	subscriber events.Subscriber
	outbox     OutboxService
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSyncWorker creates the worker; Start begins consuming
func NewSyncWorker(subscriber events.Subscriber, outbox OutboxService, logger *slog.Logger) *SyncWorker {
	return &SyncWorker{
		subscriber: subscriber,
		outbox:     outbox,
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start subscribes to connectivity transitions and syncs on each return to
// online. Runs until Stop or ctx cancellation.
func (w *SyncWorker) Start(ctx context.Context) error {
	ctx, w.cancel = context.WithCancel(ctx)

	messages, err := w.subscriber.Subscribe(ctx, events.TopicConnectivity)
	if err != nil {
		return err
	}

	go func() {
		defer close(w.done)
		w.logger.Info("sync worker started")

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}

				event, err := events.Unmarshal(msg)
				msg.Ack()
				if err != nil {
					w.logger.Error("sync worker received malformed event", "error", err)
					continue
				}

				online, _ := event.Data["online"].(bool)
				if !online {
					continue
				}

				result, err := w.outbox.Sync(ctx)
				if err != nil {
					// Transient by definition; the next reconnect retries.
					w.logger.Warn("reconnect sync failed", "error", err)
					continue
				}
				if result.Attempted > 0 {
					w.logger.Info("reconnect sync finished",
						"attempted", result.Attempted,
						"synced", result.Synced,
						"skipped", result.Skipped)
				}
			}
		}
	}()

	return nil
}

// Stop cancels the subscription and waits for the loop to exit
func (w *SyncWorker) Stop() {
	w.once.Do(func() {
		if w.cancel != nil {
			w.cancel()
		}
		<-w.done
	})
}
