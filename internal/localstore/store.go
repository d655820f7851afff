package localstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

var (
	// ErrNotFound indicates the key is absent from the store
	ErrNotFound = errors.New("localstore: key not found")
	// ErrNotAvailable indicates the store backend is not configured
	ErrNotAvailable = errors.New("localstore: not available")
)

// Store is the device-local durable key-value store. It survives process
// restarts and keeps working while the remote store is unreachable: the
// submission outbox, infraction counters and shuffle orders all live here.
// Values are JSON documents.
type Store interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// OutboxKey is the single list of queued submissions, shared across scopes
const OutboxKey = "quiz-submission-outbox"

// WarningCounterKey is the general infraction counter for a scope
func WarningCounterKey(scope models.SessionScope) string {
	return fmt.Sprintf("quizWarnings:%s:%s:%s", scope.QuizID, scope.StudentID, scope.PostID)
}

// DevToolCounterKey is the developer-tools infraction counter for a scope
func DevToolCounterKey(scope models.SessionScope) string {
	return fmt.Sprintf("devToolWarnings:%s:%s:%s", scope.QuizID, scope.StudentID, scope.PostID)
}

// ShuffleKey is the persisted question order for a scope
func ShuffleKey(scope models.SessionScope) string {
	return fmt.Sprintf("quizShuffle:%s:%s:%s", scope.QuizID, scope.StudentID, scope.PostID)
}

// QuizCacheKey is the cached quiz definition used when the remote store is
// unreachable at session open.
func QuizCacheKey(quizID string) string {
	return fmt.Sprintf("quizCache:%s", quizID)
}

// ScopeKeys lists the per-scope keys cleared after a successful enqueue
func ScopeKeys(scope models.SessionScope) []string {
	return []string{
		WarningCounterKey(scope),
		DevToolCounterKey(scope),
		ShuffleKey(scope),
	}
}

// GetCounter reads an integer counter, treating a missing key as zero
func GetCounter(ctx context.Context, store Store, key string) (int, error) {
	var count int
	if err := store.Get(ctx, key, &count); err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}
