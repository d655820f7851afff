package services

import (
	"testing"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/repositories/memory"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

func TestNewServiceManager(t *testing.T) {
	logger := testLogger()
	bus := events.NewMockEventPublisher(logger)

	sm := NewServiceManager(ServiceManagerDeps{
		Repo:      memory.NewRepository(),
		Store:     localstore.NewMemoryStore(),
		Validator: validator.New(),
		Conn:      events.NewConnectivity(bus, logger, true),
		Notifier:  &recordingNotifier{},
		Bus:       bus,
		Audit:     bus,
		Logger:    logger,
	}, ServiceManagerConfig{
		MaxWarnings:    3,
		RewarnInterval: 7 * time.Second,
	})

	if sm.Session() == nil || sm.Grading() == nil || sm.Shuffle() == nil ||
		sm.Monitor() == nil || sm.Outbox() == nil || sm.Rewards() == nil {
		t.Fatal("expected every service wired")
	}

	if err := sm.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := sm.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
}
