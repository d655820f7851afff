package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
)

// InfractionConfig tunes the monitor
type InfractionConfig struct {
	// DedupWindow suppresses a second counted signal of the same family
	// inside the window. Zero disables dedup: bursts over-count, which is
	// the strict reading of the threshold rule.
	DedupWindow time.Duration
}

// WarningOutcome reports what a processed signal did to the session
type WarningOutcome struct {
	Counted      bool
	Kind         models.WarningKind
	WarningCount int
	Remaining    int
	Locked       bool
	LockReason   string
}

type infractionMonitor struct {
	store    localstore.Store
	repo     repositories.Repository
	conn     *events.Connectivity
	notifier events.Notifier
	audit    events.Publisher
	logger   *slog.Logger
	config   InfractionConfig

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

// NewInfractionMonitor creates the anti-cheat monitor. Counters persist in
// the local store keyed by scope, so they survive restarts and count across
// attempts until an enqueue or an instructor unlock clears them.
func NewInfractionMonitor(
	store localstore.Store,
	repo repositories.Repository,
	conn *events.Connectivity,
	notifier events.Notifier,
	audit events.Publisher,
	logger *slog.Logger,
	config InfractionConfig,
) InfractionMonitor {
	return &infractionMonitor{
		store:    store,
		repo:     repo,
		conn:     conn,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		config:   config,
		lastSeen: make(map[string]time.Time),
	}
}

// LoadCounters reads the persisted warning counters for a scope
func (m *infractionMonitor) LoadCounters(ctx context.Context, scope models.SessionScope) (general int, devTools int, err error) {
	general, err = localstore.GetCounter(ctx, m.store, localstore.WarningCounterKey(scope))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load warning counter: %w", err)
	}
	devTools, err = localstore.GetCounter(ctx, m.store, localstore.DevToolCounterKey(scope))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to load devtools counter: %w", err)
	}
	return general, devTools, nil
}

// ClearCounters removes the persisted counters for a scope. Called after a
// successful enqueue and on instructor-unlock reconciliation.
func (m *infractionMonitor) ClearCounters(ctx context.Context, scope models.SessionScope) error {
	err := m.store.Delete(ctx,
		localstore.WarningCounterKey(scope),
		localstore.DevToolCounterKey(scope))
	if err != nil {
		return fmt.Errorf("failed to clear counters: %w", err)
	}

	m.mu.Lock()
	delete(m.lastSeen, dedupKey(scope, models.WarningGeneral))
	delete(m.lastSeen, dedupKey(scope, models.WarningDevTools))
	m.mu.Unlock()

	m.publishAudit(ctx, events.EventCountersCleared, scope, map[string]interface{}{})
	return nil
}

// IssueWarning counts one infraction of the given family against the
// session and persists the counter before anything else happens. Crossing
// the threshold locks the scope: a lock record write is attempted when
// online, but the local lock stands regardless.
func (m *infractionMonitor) IssueWarning(ctx context.Context, session *models.Session, policy models.IntegrityPolicy, kind models.WarningKind) (*WarningOutcome, error) {
	outcome := &WarningOutcome{Kind: kind}

	if session.InstructorPreview || session.State != models.SessionInProgress {
		return outcome, nil
	}

	switch kind {
	case models.WarningGeneral:
		if !policy.LockOnLeave {
			return outcome, nil
		}
	case models.WarningPaste:
		if !policy.WarnOnPaste {
			return outcome, nil
		}
	case models.WarningDevTools:
		if !policy.DetectDevTools {
			return outcome, nil
		}
	default:
		return nil, fmt.Errorf("unknown warning kind: %s", kind)
	}

	if m.deduplicated(session.Scope, kind) {
		m.logger.Debug("signal suppressed inside dedup window",
			"quiz_id", session.Scope.QuizID, "kind", kind)
		return outcome, nil
	}

	key := localstore.WarningCounterKey(session.Scope)
	count := session.Warnings
	if kind == models.WarningDevTools {
		key = localstore.DevToolCounterKey(session.Scope)
		count = session.DevToolWarnings
	}
	count++

	if err := m.store.Set(ctx, key, count); err != nil {
		m.logger.Error("failed to persist warning counter", "key", key, "error", err)
		m.notifier.Toast(ctx, events.ToastError, "Could not process warning. Please proceed with caution.", 0)
		return nil, fmt.Errorf("failed to persist warning counter: %w", err)
	}

	outcome.Counted = true
	outcome.WarningCount = count
	outcome.Remaining = policy.MaxWarnings - count

	m.publishAudit(ctx, events.EventWarningIssued, session.Scope, map[string]interface{}{
		"kind":  string(kind),
		"count": count,
		"max":   policy.MaxWarnings,
	})

	if count >= policy.MaxWarnings {
		outcome.Locked = true
		outcome.LockReason = lockReasonFor(kind)
		m.lock(ctx, session, outcome.LockReason)
		return outcome, nil
	}

	if kind == models.WarningDevTools {
		m.notifier.Toast(ctx, events.ToastWarning,
			fmt.Sprintf("Developer tools warning %d of %d.", count, policy.MaxWarnings), 0)
	}

	return outcome, nil
}

// lock marks the scope locked and best-effort records it remotely. The
// remote write only happens online; offline locks surface during the next
// online open through the local counters.
func (m *infractionMonitor) lock(ctx context.Context, session *models.Session, reason string) {
	scope := session.Scope

	m.logger.Warn("quiz locked for integrity violation",
		"quiz_id", scope.QuizID,
		"student_id", scope.StudentID,
		"post_id", scope.PostID,
		"reason", reason)

	if m.conn.Online() {
		record := &models.LockRecord{
			ID:          models.LockRecordID(scope),
			QuizID:      scope.QuizID,
			StudentID:   scope.StudentID,
			StudentName: session.StudentName,
			PostID:      scope.PostID,
			ClassID:     session.ClassID,
			Reason:      reason,
			LockedAt:    time.Now().UTC(),
		}
		if err := m.repo.Lock().Create(ctx, record); err != nil {
			m.logger.Error("failed to write lock record, local lock stands",
				"lock_id", record.ID, "error", err)
		}
	}

	m.publishAudit(ctx, events.EventQuizLocked, scope, map[string]interface{}{
		"reason": reason,
	})

	m.notifier.Toast(ctx, events.ToastError,
		fmt.Sprintf("Quiz Locked: %s.", reason), 5000)
}

// deduplicated records the signal time and reports whether the previous
// counted signal of the same family was inside the window.
func (m *infractionMonitor) deduplicated(scope models.SessionScope, kind models.WarningKind) bool {
	if m.config.DedupWindow <= 0 {
		return false
	}

	family := models.WarningGeneral
	if kind == models.WarningDevTools {
		family = models.WarningDevTools
	}
	key := dedupKey(scope, family)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if last, ok := m.lastSeen[key]; ok && now.Sub(last) < m.config.DedupWindow {
		return true
	}
	m.lastSeen[key] = now
	return false
}

func (m *infractionMonitor) publishAudit(ctx context.Context, eventType string, scope models.SessionScope, data map[string]interface{}) {
	if m.audit == nil {
		return
	}

	data["quiz_id"] = scope.QuizID
	data["student_id"] = scope.StudentID
	data["post_id"] = scope.PostID

	if err := m.audit.Publish(ctx, events.TopicIntegrity, events.NewEvent(eventType, data)); err != nil {
		m.logger.Error("failed to publish integrity event", "type", eventType, "error", err)
	}
}

func dedupKey(scope models.SessionScope, family models.WarningKind) string {
	return fmt.Sprintf("%s|%s|%s|%s", scope.QuizID, scope.StudentID, scope.PostID, family)
}

func lockReasonFor(kind models.WarningKind) string {
	switch kind {
	case models.WarningPaste:
		return models.LockReasonPaste
	case models.WarningDevTools:
		return models.LockReasonDevTools
	default:
		return models.LockReasonNavigation
	}
}
