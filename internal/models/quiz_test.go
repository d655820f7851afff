package models

import (
	"testing"
	"time"
)

func TestIsExamMode(t *testing.T) {
	deadline := time.Now().Add(time.Hour)

	cases := []struct {
		name string
		quiz Quiz
		want bool
	}{
		{"single attempt with deadline", Quiz{MaxAttempts: 1, AvailableUntil: &deadline}, true},
		{"single attempt without deadline", Quiz{MaxAttempts: 1}, false},
		{"multiple attempts with deadline", Quiz{MaxAttempts: 3, AvailableUntil: &deadline}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.quiz.IsExamMode(); got != tc.want {
				t.Errorf("IsExamMode() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEffectiveMaxAttempts(t *testing.T) {
	if got := (&Quiz{MaxAttempts: 0}).EffectiveMaxAttempts(); got != 1 {
		t.Errorf("zero attempts should default to 1, got %d", got)
	}
	if got := (&Quiz{MaxAttempts: 5}).EffectiveMaxAttempts(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
}

func TestQuestionStartNumbers(t *testing.T) {
	quiz := Quiz{Questions: []Question{
		{ID: "q1", Points: 1},
		{ID: "q2", Points: 3},
		{ID: "q3", Points: 0}, // counts as one item
		{ID: "q4", Points: 2},
	}}

	want := []int{1, 2, 5, 6}
	got := quiz.QuestionStartNumbers()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("QuestionStartNumbers() = %v, want %v", got, want)
		}
	}
	if quiz.TotalItems() != 7 {
		t.Errorf("TotalItems() = %d, want 7", quiz.TotalItems())
	}
}

func TestNewIntegrityPolicy(t *testing.T) {
	t.Run("disabled integrity masks every gate", func(t *testing.T) {
		policy := NewIntegrityPolicy(QuizSettings{
			LockOnLeave:          true,
			WarnOnPaste:          true,
			DetectDevTools:       true,
			PreventScreenCapture: true,
		}, 3)
		if policy.Enabled || policy.LockOnLeave || policy.WarnOnPaste ||
			policy.DetectDevTools || policy.BlockScreenCapture {
			t.Fatalf("expected all gates off, got %+v", policy)
		}
	})

	t.Run("enabled integrity carries every gate", func(t *testing.T) {
		policy := NewIntegrityPolicy(QuizSettings{
			IntegrityEnabled:     true,
			LockOnLeave:          true,
			PreventScreenCapture: true,
		}, 3)
		if !policy.LockOnLeave || !policy.BlockScreenCapture {
			t.Fatalf("expected enabled gates on, got %+v", policy)
		}
		if policy.WarnOnPaste || policy.DetectDevTools {
			t.Fatalf("expected unset gates off, got %+v", policy)
		}
	})

	t.Run("invalid threshold falls back to default", func(t *testing.T) {
		policy := NewIntegrityPolicy(QuizSettings{IntegrityEnabled: true}, 0)
		if policy.MaxWarnings != DefaultMaxWarnings {
			t.Fatalf("expected default threshold, got %d", policy.MaxWarnings)
		}
	})
}

func TestSubmissionKey(t *testing.T) {
	queuedAt := time.UnixMilli(1700000000000)
	if got := SubmissionKey("s1", "quiz-1", queuedAt); got != "s1-quiz-1-1700000000000" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestLockRecordID(t *testing.T) {
	scope := SessionScope{QuizID: "quiz-1", StudentID: "s1", PostID: "post-7"}
	if got := LockRecordID(scope); got != "quiz-1_s1_post-7" {
		t.Errorf("unexpected id %q", got)
	}
}

func TestSignalTypeIsValid(t *testing.T) {
	for _, signal := range []SignalType{
		SignalAppBackground, SignalAppForeground, SignalVisibilityHidden,
		SignalVisibilityShown, SignalWindowBlur, SignalWindowFocus,
		SignalNavigateAway, SignalPaste, SignalCopy, SignalCut, SignalDevTools,
	} {
		if !signal.IsValid() {
			t.Errorf("%s should be valid", signal)
		}
	}
	if SignalType("teleport").IsValid() {
		t.Error("unknown signals must be invalid")
	}
}
