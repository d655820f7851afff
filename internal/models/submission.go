package models

import (
	"fmt"
	"time"
)

// SubmissionStatus is the review status of a stored submission
type SubmissionStatus string

const (
	SubmissionGraded        SubmissionStatus = "graded"
	SubmissionPendingReview SubmissionStatus = "pending_review"
)

// QuestionResult is the graded outcome of a single question inside a
// submission document.
type QuestionResult struct {
	QuestionID    string       `json:"question_id"`
	Kind          QuestionKind `json:"kind"`
	QuestionText  string       `json:"question_text"`
	Points        int          `json:"points"`
	StartNumber   int          `json:"start_number"`
	UserAnswer    string       `json:"user_answer"`
	CorrectAnswer string       `json:"correct_answer,omitempty"`
	Score         float64      `json:"score"`
	IsCorrect     bool         `json:"is_correct"`
	PendingReview bool         `json:"pending_review,omitempty"`

	// Matching-kind detail, empty for other kinds.
	Pairs        []MatchingPairResult `json:"pairs,omitempty"`
	CorrectCount int                  `json:"correct_count,omitempty"`
}

// MatchingPairResult records one prompt of a matching question
type MatchingPairResult struct {
	PromptID      string `json:"prompt_id"`
	PromptText    string `json:"prompt_text"`
	UserAnswer    string `json:"user_answer"`
	CorrectAnswer string `json:"correct_answer"`
	IsCorrect     bool   `json:"is_correct"`
}

// Submission is a completed attempt written to the remote store. ID is the
// deterministic idempotency key, so replaying a sync can never duplicate a
// row.
type Submission struct {
	ID               string           `json:"id" gorm:"primaryKey"`
	QuizID           string           `json:"quiz_id" gorm:"index:idx_submission_scope"`
	QuizTitle        string           `json:"quiz_title,omitempty"`
	StudentID        string           `json:"student_id" gorm:"index:idx_submission_scope"`
	StudentName      string           `json:"student_name,omitempty"`
	ClassID          string           `json:"class_id"`
	PostID           string           `json:"post_id" gorm:"index:idx_submission_scope"`
	Quarter          string           `json:"quarter,omitempty"`
	Difficulty       string           `json:"difficulty,omitempty"`
	Answers          []QuestionResult `json:"answers" gorm:"serializer:json"`
	Score            int              `json:"score"`
	TotalItems       int              `json:"total_items"`
	Status           SubmissionStatus `json:"status"`
	HasPendingEssays bool             `json:"has_pending_essays"`
	AttemptNumber    int              `json:"attempt_number"`
	Late             bool             `json:"late"`
	XPGained         int              `json:"xp_gained"`
	SubmittedAt      time.Time        `json:"submitted_at" gorm:"default:now()"`
}

func (Submission) TableName() string {
	return "submissions"
}

// SubmissionKey builds the deterministic idempotency key for a submission
// queued at queuedAt. Requeueing the same attempt yields the same key.
func SubmissionKey(studentID, quizID string, queuedAt time.Time) string {
	return fmt.Sprintf("%s-%s-%d", studentID, quizID, queuedAt.UnixMilli())
}

// OutboxEntry is one queued submission in the device-local outbox
type OutboxEntry struct {
	IdempotencyKey string     `json:"idempotency_key"`
	QueuedAt       time.Time  `json:"queued_at"`
	Submission     Submission `json:"submission"`
}

// LockRecord marks a (quiz, student, post) scope as locked for cheating.
// Its ID is derived from the scope so writes are idempotent; only an
// instructor deleting the record unlocks the scope.
type LockRecord struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	QuizID      string    `json:"quiz_id"`
	StudentID   string    `json:"student_id"`
	StudentName string    `json:"student_name,omitempty"`
	PostID      string    `json:"post_id"`
	ClassID     string    `json:"class_id"`
	Reason      string    `json:"reason"`
	LockedAt    time.Time `json:"locked_at" gorm:"default:now()"`
}

func (LockRecord) TableName() string {
	return "quiz_locks"
}

// LockRecordID derives the lock document id for a scope
func LockRecordID(scope SessionScope) string {
	return fmt.Sprintf("%s_%s_%s", scope.QuizID, scope.StudentID, scope.PostID)
}

// Lock reasons recorded when a counter crosses the threshold.
const (
	LockReasonNavigation = "Too many unauthorized attempts to navigate away"
	LockReasonPaste      = "Pasting content too many times"
	LockReasonDevTools   = "Developer tools opened too many times"
)
