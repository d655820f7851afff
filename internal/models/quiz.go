package models

import (
	"time"
)

// QuizSettings controls integrity monitoring and presentation behavior.
// All gates are ignored while IntegrityEnabled is false.
type QuizSettings struct {
	IntegrityEnabled     bool `json:"integrity_enabled"`
	LockOnLeave          bool `json:"lock_on_leave"`
	WarnOnPaste          bool `json:"warn_on_paste"`
	DetectDevTools       bool `json:"detect_dev_tools"`
	PreventScreenCapture bool `json:"prevent_screen_capture"`
	ShuffleQuestions     bool `json:"shuffle_questions"`
}

// Quiz is the assessment definition fetched from the remote store.
// Questions are stored as a JSON document alongside the row.
type Quiz struct {
	ID             string       `json:"id" gorm:"primaryKey"`
	Title          string       `json:"title"`
	ClassID        string       `json:"class_id" gorm:"index"`
	Quarter        string       `json:"quarter,omitempty"`
	Difficulty     string       `json:"difficulty,omitempty"`
	Questions      []Question   `json:"questions" gorm:"serializer:json"`
	Settings       QuizSettings `json:"settings" gorm:"serializer:json"`
	MaxAttempts    int          `json:"max_attempts"`
	AvailableFrom  *time.Time   `json:"available_from,omitempty"`
	AvailableUntil *time.Time   `json:"available_until,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

func (Quiz) TableName() string {
	return "quizzes"
}

// IsExamMode reports whether the quiz is a single-attempt exam with a hard
// deadline. Exam sessions run a countdown and auto-submit at the deadline.
func (q *Quiz) IsExamMode() bool {
	return q.MaxAttempts == 1 && q.AvailableUntil != nil
}

// EffectiveMaxAttempts treats zero and negative values as a single attempt
func (q *Quiz) EffectiveMaxAttempts() int {
	if q.MaxAttempts < 1 {
		return 1
	}
	return q.MaxAttempts
}

// TotalItems sums the item slots of all questions
func (q *Quiz) TotalItems() int {
	total := 0
	for i := range q.Questions {
		total += q.Questions[i].EffectivePoints()
	}
	return total
}

// QuestionStartNumbers returns the 1-based item number each question starts
// at, in definition order. A 3-point question after a 1-point question starts
// at item 2 and the next question at item 5.
func (q *Quiz) QuestionStartNumbers() []int {
	starts := make([]int, len(q.Questions))
	next := 1
	for i := range q.Questions {
		starts[i] = next
		next += q.Questions[i].EffectivePoints()
	}
	return starts
}

// IntegrityPolicy is the per-session view of the quiz integrity settings.
// It is derived once at session open and treated as immutable afterwards.
type IntegrityPolicy struct {
	Enabled            bool
	LockOnLeave        bool
	WarnOnPaste        bool
	DetectDevTools     bool
	BlockScreenCapture bool
	MaxWarnings        int
}

// NewIntegrityPolicy derives the active policy from quiz settings.
// Disabled settings produce a policy under which no signal ever counts.
func NewIntegrityPolicy(settings QuizSettings, maxWarnings int) IntegrityPolicy {
	if maxWarnings < 1 {
		maxWarnings = DefaultMaxWarnings
	}
	return IntegrityPolicy{
		Enabled:            settings.IntegrityEnabled,
		LockOnLeave:        settings.IntegrityEnabled && settings.LockOnLeave,
		WarnOnPaste:        settings.IntegrityEnabled && settings.WarnOnPaste,
		DetectDevTools:     settings.IntegrityEnabled && settings.DetectDevTools,
		BlockScreenCapture: settings.IntegrityEnabled && settings.PreventScreenCapture,
		MaxWarnings:        maxWarnings,
	}
}

// DefaultMaxWarnings is the number of counted infractions that locks a quiz
const DefaultMaxWarnings = 3
