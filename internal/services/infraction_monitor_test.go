package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories/memory"
)

func monitoredSession(scope models.SessionScope) *models.Session {
	return &models.Session{
		ID:          "sess-1",
		Scope:       scope,
		StudentName: "Alice Reyes",
		ClassID:     "class-1",
		State:       models.SessionInProgress,
	}
}

func strictPolicy() models.IntegrityPolicy {
	return models.NewIntegrityPolicy(models.QuizSettings{
		IntegrityEnabled: true,
		LockOnLeave:      true,
		WarnOnPaste:      true,
		DetectDevTools:   true,
	}, 3)
}

func TestIssueWarning_CountsAndPersists(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)

	outcome, err := env.monitor.IssueWarning(context.Background(), session, strictPolicy(), models.WarningGeneral)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if !outcome.Counted || outcome.WarningCount != 1 || outcome.Remaining != 2 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if outcome.Locked {
		t.Fatal("first warning must not lock")
	}

	general, devTools, err := env.monitor.LoadCounters(context.Background(), scope)
	if err != nil {
		t.Fatalf("LoadCounters failed: %v", err)
	}
	if general != 1 || devTools != 0 {
		t.Fatalf("expected counters 1/0, got %d/%d", general, devTools)
	}
}

func TestIssueWarning_PasteSharesGeneralCounter(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)
	policy := strictPolicy()

	if _, err := env.monitor.IssueWarning(context.Background(), session, policy, models.WarningGeneral); err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	session.Warnings = 1

	outcome, err := env.monitor.IssueWarning(context.Background(), session, policy, models.WarningPaste)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if outcome.WarningCount != 2 {
		t.Fatalf("expected paste to increment the shared counter to 2, got %d", outcome.WarningCount)
	}

	general, devTools, err := env.monitor.LoadCounters(context.Background(), scope)
	if err != nil {
		t.Fatalf("LoadCounters failed: %v", err)
	}
	if general != 2 || devTools != 0 {
		t.Fatalf("expected counters 2/0, got %d/%d", general, devTools)
	}
}

func TestIssueWarning_DevToolsCounterIsSeparate(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)

	outcome, err := env.monitor.IssueWarning(context.Background(), session, strictPolicy(), models.WarningDevTools)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if outcome.Kind != models.WarningDevTools || outcome.WarningCount != 1 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	general, devTools, err := env.monitor.LoadCounters(context.Background(), scope)
	if err != nil {
		t.Fatalf("LoadCounters failed: %v", err)
	}
	if general != 0 || devTools != 1 {
		t.Fatalf("expected counters 0/1, got %d/%d", general, devTools)
	}

	if got := env.notifier.containing("Developer tools warning 1 of 3."); len(got) != 1 {
		t.Fatalf("expected a devtools toast, got %v", env.notifier.all())
	}
}

func TestIssueWarning_PolicyGating(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)

	cases := []struct {
		name     string
		settings models.QuizSettings
		kind     models.WarningKind
	}{
		{"integrity disabled skips everything", models.QuizSettings{}, models.WarningGeneral},
		{"paste gate off", models.QuizSettings{IntegrityEnabled: true, LockOnLeave: true}, models.WarningPaste},
		{"devtools gate off", models.QuizSettings{IntegrityEnabled: true, LockOnLeave: true}, models.WarningDevTools},
		{"leave gate off", models.QuizSettings{IntegrityEnabled: true, WarnOnPaste: true}, models.WarningGeneral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			policy := models.NewIntegrityPolicy(tc.settings, 3)
			outcome, err := env.monitor.IssueWarning(context.Background(), session, policy, tc.kind)
			if err != nil {
				t.Fatalf("IssueWarning failed: %v", err)
			}
			if outcome.Counted {
				t.Fatalf("signal must not count under policy %+v", tc.settings)
			}
		})
	}
}

func TestIssueWarning_PreviewNeverCounts(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "t1", PostID: "standalone"}
	session := monitoredSession(scope)
	session.InstructorPreview = true

	outcome, err := env.monitor.IssueWarning(context.Background(), session, strictPolicy(), models.WarningGeneral)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if outcome.Counted {
		t.Fatal("preview sessions must not accumulate warnings")
	}
}

func TestIssueWarning_ThresholdLocksOnline(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)
	policy := strictPolicy()

	var outcome *WarningOutcome
	for i := 0; i < 3; i++ {
		var err error
		outcome, err = env.monitor.IssueWarning(context.Background(), session, policy, models.WarningGeneral)
		if err != nil {
			t.Fatalf("IssueWarning failed: %v", err)
		}
		session.Warnings = outcome.WarningCount
	}

	if !outcome.Locked || outcome.LockReason != models.LockReasonNavigation {
		t.Fatalf("expected a navigation lock, got %+v", outcome)
	}

	record, err := env.repo.Lock().Get(context.Background(), models.LockRecordID(scope))
	if err != nil {
		t.Fatalf("expected a remote lock record: %v", err)
	}
	if record.Reason != models.LockReasonNavigation {
		t.Errorf("unexpected lock reason %q", record.Reason)
	}

	if got := env.notifier.containing("Quiz Locked: " + models.LockReasonNavigation); len(got) != 1 {
		t.Fatalf("expected a lock toast, got %v", env.notifier.all())
	}

	if audits := env.audit.PublishedOfType(events.TopicIntegrity, events.EventQuizLocked); len(audits) != 1 {
		t.Fatalf("expected one lock audit event, got %d", len(audits))
	}
}

func TestIssueWarning_ThresholdLocksOfflineWithoutRemoteRecord(t *testing.T) {
	env := newTestEnv(false)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)
	policy := strictPolicy()

	var outcome *WarningOutcome
	for i := 0; i < 3; i++ {
		var err error
		outcome, err = env.monitor.IssueWarning(context.Background(), session, policy, models.WarningDevTools)
		if err != nil {
			t.Fatalf("IssueWarning failed: %v", err)
		}
		session.DevToolWarnings = outcome.WarningCount
	}

	if !outcome.Locked || outcome.LockReason != models.LockReasonDevTools {
		t.Fatalf("expected a devtools lock, got %+v", outcome)
	}

	// Offline: no remote record, but the persisted counter still locks the
	// scope on the next open.
	if _, err := env.repo.Lock().Get(context.Background(), models.LockRecordID(scope)); err == nil {
		t.Fatal("expected no remote lock record while offline")
	}
	_, devTools, err := env.monitor.LoadCounters(context.Background(), scope)
	if err != nil {
		t.Fatalf("LoadCounters failed: %v", err)
	}
	if devTools < 3 {
		t.Fatalf("expected persisted devtools counter at threshold, got %d", devTools)
	}
}

func TestIssueWarning_CounterWriteFailureSurfaces(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)

	env.store.FailNextOp(errors.New("disk full"))

	if _, err := env.monitor.IssueWarning(context.Background(), session, strictPolicy(), models.WarningGeneral); err == nil {
		t.Fatal("expected an error when the counter cannot persist")
	}
	if got := env.notifier.containing("Could not process warning"); len(got) != 1 {
		t.Fatalf("expected a failure toast, got %v", env.notifier.all())
	}
}

func TestIssueWarning_DedupWindow(t *testing.T) {
	store := localstore.NewMemoryStore()
	repo := memory.NewRepository()
	notifier := &recordingNotifier{}
	bus := events.NewMockEventPublisher(testLogger())
	conn := events.NewConnectivity(bus, testLogger(), true)
	monitor := NewInfractionMonitor(store, repo, conn, notifier, bus, testLogger(),
		InfractionConfig{DedupWindow: time.Hour})

	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)
	policy := strictPolicy()

	first, err := monitor.IssueWarning(context.Background(), session, policy, models.WarningGeneral)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	session.Warnings = first.WarningCount

	// A paste burst right after shares the general family and is suppressed.
	second, err := monitor.IssueWarning(context.Background(), session, policy, models.WarningPaste)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if second.Counted {
		t.Fatal("expected the second signal inside the window to be suppressed")
	}

	// Devtools is a different family and still counts.
	third, err := monitor.IssueWarning(context.Background(), session, policy, models.WarningDevTools)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if !third.Counted {
		t.Fatal("expected devtools to count despite the general-family window")
	}
}

func TestClearCounters_ResetsDedupWindow(t *testing.T) {
	store := localstore.NewMemoryStore()
	repo := memory.NewRepository()
	notifier := &recordingNotifier{}
	bus := events.NewMockEventPublisher(testLogger())
	conn := events.NewConnectivity(bus, testLogger(), true)
	monitor := NewInfractionMonitor(store, repo, conn, notifier, bus, testLogger(),
		InfractionConfig{DedupWindow: time.Hour})

	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)
	policy := strictPolicy()

	if _, err := monitor.IssueWarning(context.Background(), session, policy, models.WarningGeneral); err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if err := monitor.ClearCounters(context.Background(), scope); err != nil {
		t.Fatalf("ClearCounters failed: %v", err)
	}
	session.Warnings = 0

	again, err := monitor.IssueWarning(context.Background(), session, policy, models.WarningGeneral)
	if err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if !again.Counted || again.WarningCount != 1 {
		t.Fatalf("cleared scope must count fresh signals, got %+v", again)
	}
}

func TestClearCounters(t *testing.T) {
	env := newTestEnv(true)
	scope := models.SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "standalone"}
	session := monitoredSession(scope)

	if _, err := env.monitor.IssueWarning(context.Background(), session, strictPolicy(), models.WarningGeneral); err != nil {
		t.Fatalf("IssueWarning failed: %v", err)
	}
	if err := env.monitor.ClearCounters(context.Background(), scope); err != nil {
		t.Fatalf("ClearCounters failed: %v", err)
	}

	general, devTools, err := env.monitor.LoadCounters(context.Background(), scope)
	if err != nil {
		t.Fatalf("LoadCounters failed: %v", err)
	}
	if general != 0 || devTools != 0 {
		t.Fatalf("expected cleared counters, got %d/%d", general, devTools)
	}

	if audits := env.audit.PublishedOfType(events.TopicIntegrity, events.EventCountersCleared); len(audits) != 1 {
		t.Fatalf("expected one counters-cleared audit event, got %d", len(audits))
	}
}
