package repositories

import (
	"context"
	"errors"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

// ErrNotFound indicates the requested row does not exist
var ErrNotFound = errors.New("repository: record not found")

// IsNotFound reports whether err means a missing row
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// QuizRepository reads quiz definitions from the remote store
type QuizRepository interface {
	GetByID(ctx context.Context, id string) (*models.Quiz, error)
	Create(ctx context.Context, quiz *models.Quiz) error
	Update(ctx context.Context, quiz *models.Quiz) error
}

// SubmissionFilters narrows submission queries
type SubmissionFilters struct {
	QuizID    string
	StudentID string
	PostID    string
	Limit     int
}

// SubmissionRepository stores completed attempts. CreateBatch is the sync
// path: all rows in one transaction, conflicting ids skipped, reporting how
// many rows were actually inserted.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id string) (*models.Submission, error)
	GetByScope(ctx context.Context, scope models.SessionScope) ([]*models.Submission, error)
	List(ctx context.Context, filters SubmissionFilters) ([]*models.Submission, error)
	CreateBatch(ctx context.Context, submissions []*models.Submission) (int64, error)
}

// LockRepository stores integrity lock records. Creation is idempotent on
// the scope-derived id; deletion is the instructor unlock.
type LockRepository interface {
	Get(ctx context.Context, id string) (*models.LockRecord, error)
	Create(ctx context.Context, record *models.LockRecord) error
	Delete(ctx context.Context, id string) error
	ListByClass(ctx context.Context, classID string) ([]*models.LockRecord, error)
}

// ProfileRepository stores student gamification profiles
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	Create(ctx context.Context, profile *models.UserProfile) error
	ApplyRewardUpdate(ctx context.Context, update *models.RewardUpdate) (*models.UserProfile, error)
}

// Repository aggregates all remote-store repositories
type Repository interface {
	Quiz() QuizRepository
	Submission() SubmissionRepository
	Lock() LockRepository
	Profile() ProfileRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}
