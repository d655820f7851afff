package models

import (
	"encoding/json"
	"time"
)

// SessionState is the lifecycle state of a quiz session
type SessionState string

const (
	SessionUnavailable    SessionState = "unavailable"
	SessionLocked         SessionState = "locked"
	SessionNoAttemptsLeft SessionState = "no-attempts-left"
	SessionInProgress     SessionState = "in-progress"
	SessionSubmitted      SessionState = "submitted"
	SessionReviewing      SessionState = "reviewing"
)

// SignalType identifies a platform signal reported by the presentation layer
type SignalType string

const (
	SignalAppBackground    SignalType = "app-background"
	SignalAppForeground    SignalType = "app-foreground"
	SignalVisibilityHidden SignalType = "visibility-hidden"
	SignalVisibilityShown  SignalType = "visibility-visible"
	SignalWindowBlur       SignalType = "window-blur"
	SignalWindowFocus      SignalType = "window-focus"
	SignalNavigateAway     SignalType = "navigate-away"
	SignalPaste            SignalType = "paste"
	SignalCopy             SignalType = "copy"
	SignalCut              SignalType = "cut"
	SignalDevTools         SignalType = "devtools"
)

// IsValid checks if the signal type is recognized
func (s SignalType) IsValid() bool {
	switch s {
	case SignalAppBackground, SignalAppForeground, SignalVisibilityHidden,
		SignalVisibilityShown, SignalWindowBlur, SignalWindowFocus,
		SignalNavigateAway, SignalPaste, SignalCopy, SignalCut, SignalDevTools:
		return true
	}
	return false
}

// WarningKind is the counter family an infraction signal belongs to.
// Navigation and paste signals share the general counter; developer tools
// signals have their own.
type WarningKind string

const (
	WarningGeneral  WarningKind = "general"
	WarningPaste    WarningKind = "paste"
	WarningDevTools WarningKind = "devtools"
)

// SessionScope identifies the (quiz, student, post) a session belongs to.
// Warning counters, shuffle orders and lock records are all keyed by it.
type SessionScope struct {
	QuizID    string `json:"quiz_id"`
	StudentID string `json:"student_id"`
	PostID    string `json:"post_id"`
}

// Session is the externally visible snapshot of a session's state.
// The runtime that owns it lives in the session service.
type Session struct {
	ID                string       `json:"id"`
	Scope             SessionScope `json:"scope"`
	StudentName       string       `json:"student_name,omitempty"`
	ClassID           string       `json:"class_id"`
	State             SessionState `json:"state"`
	InstructorPreview bool         `json:"instructor_preview"`

	CurrentIndex      int                        `json:"current_index"`
	Order             []int                      `json:"order,omitempty"`
	Answers           map[int]json.RawMessage    `json:"answers,omitempty"`
	QuestionAttempted bool                       `json:"question_attempted"`
	Streak            int                        `json:"streak"`

	Warnings           int  `json:"warnings"`
	DevToolWarnings    int  `json:"dev_tool_warnings"`
	InfractionActive   bool `json:"infraction_active"`
	BlockScreenCapture bool `json:"block_screen_capture"`

	AttemptsTaken   int    `json:"attempts_taken"`
	MaxAttempts     int    `json:"max_attempts"`
	Late            bool   `json:"late"`
	ExamMode        bool   `json:"exam_mode"`
	TimeRemaining   *int   `json:"time_remaining,omitempty"`
	StatusMessage   string `json:"status_message,omitempty"`
	LockReason      string `json:"lock_reason,omitempty"`
	TotalItems      int    `json:"total_items"`
	QuestionNumbers []int  `json:"question_numbers,omitempty"`

	Score            *int        `json:"score,omitempty"`
	XPGained         int         `json:"xp_gained,omitempty"`
	LatestSubmission *Submission `json:"latest_submission,omitempty"`

	OpenedAt time.Time `json:"opened_at"`
}

// CanAnswer reports whether the session accepts answer input
func (s *Session) CanAnswer() bool {
	return s.State == SessionInProgress && !s.InstructorPreview
}
