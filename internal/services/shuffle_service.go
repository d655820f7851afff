package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand"

	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
)

type shuffleService struct {
	store  localstore.Store
	logger *slog.Logger
}

// NewShuffleService creates the question order service. Orders persist in
// the local store so a reload mid-attempt shows the same sequence.
func NewShuffleService(store localstore.Store, logger *slog.Logger) ShuffleService {
	return &shuffleService{store: store, logger: logger}
}

// Order returns the presentation order for the quiz as indices into
// quiz.Questions. With shuffling disabled it is the identity order. A
// persisted order that no longer matches the question count is discarded
// and regenerated.
func (s *shuffleService) Order(ctx context.Context, quiz *models.Quiz, scope models.SessionScope, attemptNumber int) ([]int, error) {
	count := len(quiz.Questions)
	if !quiz.Settings.ShuffleQuestions {
		return identityOrder(count), nil
	}

	key := localstore.ShuffleKey(scope)

	var stored []int
	err := s.store.Get(ctx, key, &stored)
	if err == nil && isPermutation(stored, count) {
		return stored, nil
	}
	if err != nil && !errors.Is(err, localstore.ErrNotFound) {
		s.logger.Warn("failed to read persisted shuffle order, regenerating",
			"quiz_id", quiz.ID, "error", err)
	} else if err == nil {
		s.logger.Warn("persisted shuffle order no longer matches quiz, regenerating",
			"quiz_id", quiz.ID, "stored_len", len(stored), "question_count", count)
	}

	order := shuffledOrder(count, shuffleSeed(scope, attemptNumber))

	if err := s.store.Set(ctx, key, order); err != nil {
		// A lost order only costs a reshuffle on reload.
		s.logger.Warn("failed to persist shuffle order", "quiz_id", quiz.ID, "error", err)
	}

	return order, nil
}

// Clear removes the persisted order for a scope
func (s *shuffleService) Clear(ctx context.Context, scope models.SessionScope) error {
	return s.store.Delete(ctx, localstore.ShuffleKey(scope))
}

func identityOrder(count int) []int {
	order := make([]int, count)
	for i := range order {
		order[i] = i
	}
	return order
}

// shuffleSeed derives a stable seed so the same attempt in the same scope
// always shuffles the same way.
func shuffleSeed(scope models.SessionScope, attemptNumber int) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%s|%s|%s|%d", scope.QuizID, scope.StudentID, scope.PostID, attemptNumber)
	return int64(h.Sum64())
}

// shuffledOrder is a seeded Fisher-Yates shuffle of [0, count)
func shuffledOrder(count int, seed int64) []int {
	order := identityOrder(count)
	rng := rand.New(rand.NewSource(seed))
	for i := count - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		order[i], order[j] = order[j], order[i]
	}
	return order
}

func isPermutation(order []int, count int) bool {
	if len(order) != count {
		return false
	}
	seen := make([]bool, count)
	for _, idx := range order {
		if idx < 0 || idx >= count || seen[idx] {
			return false
		}
		seen[idx] = true
	}
	return true
}
