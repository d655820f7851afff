package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

// ===== REQUEST DTOs =====

type OpenSessionRequest struct {
	QuizID            string `json:"quiz_id" validate:"required"`
	StudentID         string `json:"student_id" validate:"required"`
	StudentName       string `json:"student_name"`
	ClassID           string `json:"class_id" validate:"required"`
	PostID            string `json:"post_id"`
	InstructorPreview bool   `json:"instructor_preview"`
}

type AnswerRequest struct {
	Answer json.RawMessage `json:"answer" validate:"required"`
}

type SignalRequest struct {
	Type models.SignalType `json:"type" validate:"required"`
}

type ConnectivityRequest struct {
	Online bool `json:"online"`
}

type ApplyRewardsRequest struct {
	StudentID     string `json:"student_id"`
	XPGained      int    `json:"xp_gained"`
	FinalScore    int    `json:"final_score"`
	TotalItems    int    `json:"total_items"`
	AttemptsTaken int    `json:"attempts_taken"`
}

// ===== RESPONSE DTOs =====

// SessionQuestionView is the current question stripped of correct answers
type SessionQuestionView struct {
	Index        int                     `json:"index"`
	Kind         models.QuestionKind     `json:"kind"`
	Text         string                  `json:"text"`
	Points       int                     `json:"points"`
	StartNumber  int                     `json:"start_number"`
	Options      []string                `json:"options,omitempty"`
	Prompts      []models.MatchingPrompt `json:"prompts,omitempty"`
	MatchOptions []models.MatchingOption `json:"match_options,omitempty"`
}

// SessionView is the full snapshot returned to the presentation layer
type SessionView struct {
	Session       models.Session       `json:"session"`
	Question      *SessionQuestionView `json:"question,omitempty"`
	QuestionCount int                  `json:"question_count"`
}

// AnswerFeedback reports the immediate outcome of recording an answer
type AnswerFeedback struct {
	Attempted bool `json:"attempted"`
	Graded    bool `json:"graded"`
	IsCorrect bool `json:"is_correct"`
	Streak    int  `json:"streak"`
}

// MatchingFeedback reports pair counts after confirming a matching answer
type MatchingFeedback struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// AttemptGrade is the graded outcome of a whole attempt
type AttemptGrade struct {
	Results          []models.QuestionResult `json:"results"`
	RawScore         float64                 `json:"raw_score"`
	FinalScore       int                     `json:"final_score"`
	TotalItems       int                     `json:"total_items"`
	CorrectCount     int                     `json:"correct_count"`
	HasPendingEssays bool                    `json:"has_pending_essays"`
}

// ===== SERVICE INTERFACES =====

// GradingService grades answers deterministically
type GradingService interface {
	GradeQuestion(question *models.Question, answer json.RawMessage, startNumber int) (*models.QuestionResult, error)
	CheckAnswer(question *models.Question, answer json.RawMessage) (bool, error)
	ConfirmMatching(question *models.Question, answer json.RawMessage) (correct int, total int, err error)
	GradeAttempt(quiz *models.Quiz, positions []int, answers map[int]json.RawMessage) (*AttemptGrade, error)
}

// ShuffleService produces and persists question presentation orders
type ShuffleService interface {
	Order(ctx context.Context, quiz *models.Quiz, scope models.SessionScope, attemptNumber int) ([]int, error)
	Clear(ctx context.Context, scope models.SessionScope) error
}

// InfractionMonitor counts integrity signals and locks scopes at threshold
type InfractionMonitor interface {
	LoadCounters(ctx context.Context, scope models.SessionScope) (general int, devTools int, err error)
	ClearCounters(ctx context.Context, scope models.SessionScope) error
	IssueWarning(ctx context.Context, session *models.Session, policy models.IntegrityPolicy, kind models.WarningKind) (*WarningOutcome, error)
}

// OutboxService queues submissions durably and syncs them idempotently
type OutboxService interface {
	QueueSubmission(ctx context.Context, submission *models.Submission, queuedAt time.Time) (*models.OutboxEntry, error)
	Pending(ctx context.Context) ([]models.OutboxEntry, error)
	PendingForScope(ctx context.Context, scope models.SessionScope) ([]models.OutboxEntry, error)
	Sync(ctx context.Context) (*SyncResult, error)
}

// RewardService applies XP, levels and reward unlocks after submission
type RewardService interface {
	ApplyQuizRewards(ctx context.Context, req ApplyRewardsRequest) (*models.UserProfile, error)
}

// SessionService runs the quiz session lifecycle
type SessionService interface {
	Open(ctx context.Context, req OpenSessionRequest) (*SessionView, error)
	Get(ctx context.Context, sessionID string) (*SessionView, error)
	Answer(ctx context.Context, sessionID string, answer json.RawMessage) (*AnswerFeedback, error)
	ConfirmMatching(ctx context.Context, sessionID string, answer json.RawMessage) (*MatchingFeedback, error)
	Next(ctx context.Context, sessionID string) (*SessionView, error)
	Submit(ctx context.Context, sessionID string) (*SessionView, error)
	Review(ctx context.Context, sessionID string) (*SessionView, error)
	StartNewAttempt(ctx context.Context, sessionID string) (*SessionView, error)
	Signal(ctx context.Context, sessionID string, signal models.SignalType) (*SessionView, error)
	Close(ctx context.Context, sessionID string) error
	Shutdown()
}

// ServiceManager wires and exposes all services
type ServiceManager interface {
	Session() SessionService
	Grading() GradingService
	Shuffle() ShuffleService
	Monitor() InfractionMonitor
	Outbox() OutboxService
	Rewards() RewardService
	Close() error
}
