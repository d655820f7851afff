package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

type outboxService struct {
	store     localstore.Store
	repo      repositories.Repository
	validator *validator.Validator
	publisher events.Publisher
	logger    *slog.Logger

	// Guards read-modify-write of the outbox list. Sync itself needs no
	// exclusion: idempotency keys make replays harmless.
	mu sync.Mutex
}

// NewOutboxService creates the submission outbox. Submissions are queued
// durably on the device first and pushed to the remote store by Sync.
func NewOutboxService(
	store localstore.Store,
	repo repositories.Repository,
	v *validator.Validator,
	publisher events.Publisher,
	logger *slog.Logger,
) OutboxService {
	return &outboxService{
		store:     store,
		repo:      repo,
		validator: v,
		publisher: publisher,
		logger:    logger,
	}
}

// QueueSubmission validates and appends a submission to the outbox.
// Missing critical fields reject the enqueue; missing optional fields are
// only logged. The entry's idempotency key derives from the student, quiz
// and queue time, so the same attempt can never enqueue as two identities.
func (s *outboxService) QueueSubmission(ctx context.Context, submission *models.Submission, queuedAt time.Time) (*models.OutboxEntry, error) {
	if errs := s.validator.ValidateSubmissionCritical(submission); errs.HasErrors() {
		s.logger.Error("rejecting submission with missing critical fields",
			"quiz_id", submission.QuizID,
			"student_id", submission.StudentID,
			"errors", errs.Error())
		return nil, NewValidationError(errs)
	}

	if missing := s.validator.SubmissionOptionalOmissions(submission); len(missing) > 0 {
		s.logger.Warn("queueing submission with missing optional fields",
			"quiz_id", submission.QuizID,
			"missing", missing)
	}

	submission.ID = models.SubmissionKey(submission.StudentID, submission.QuizID, queuedAt)

	entry := models.OutboxEntry{
		IdempotencyKey: submission.ID,
		QueuedAt:       queuedAt,
		Submission:     *submission,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	entries = append(entries, entry)

	if err := s.store.Set(ctx, localstore.OutboxKey, entries); err != nil {
		return nil, fmt.Errorf("failed to persist outbox: %w", err)
	}

	s.logger.Info("submission queued",
		"idempotency_key", entry.IdempotencyKey,
		"quiz_id", submission.QuizID,
		"outbox_size", len(entries))

	return &entry, nil
}

// Pending returns all queued entries
func (s *outboxService) Pending(ctx context.Context) ([]models.OutboxEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// PendingForScope filters queued entries by (quiz, student, post)
func (s *outboxService) PendingForScope(ctx context.Context, scope models.SessionScope) ([]models.OutboxEntry, error) {
	entries, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}

	var result []models.OutboxEntry
	for _, entry := range entries {
		sub := entry.Submission
		if sub.QuizID == scope.QuizID && sub.StudentID == scope.StudentID && sub.PostID == scope.PostID {
			result = append(result, entry)
		}
	}
	return result, nil
}

// SyncResult summarizes one sync pass
type SyncResult struct {
	Attempted int   `json:"attempted"`
	Synced    int   `json:"synced"`
	Skipped   int   `json:"skipped"`
	Inserted  int64 `json:"inserted"`
}

// Sync pushes every queued submission to the remote store in one atomic
// batch and removes only the entries this pass handled once the batch
// succeeds. Rows whose idempotency key already exists are skipped
// server-side, so overlapping sync passes write each attempt at most once.
// Entries that fail critical validation are dropped with a logged reason,
// never retried.
func (s *outboxService) Sync(ctx context.Context) (*SyncResult, error) {
	entries, err := s.Pending(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Attempted: len(entries)}
	if len(entries) == 0 {
		return result, nil
	}

	handled := make(map[string]bool, len(entries))
	var batch []*models.Submission
	for i := range entries {
		entry := entries[i]
		submission := entry.Submission

		if errs := s.validator.ValidateSubmissionCritical(&submission); errs.HasErrors() {
			result.Skipped++
			handled[entry.IdempotencyKey] = true
			s.logger.Error("dropping permanently invalid outbox entry",
				"idempotency_key", entry.IdempotencyKey,
				"reason", errs.Error(),
				"error_kind", ErrPermanentData.Error())
			continue
		}

		// Recompute rather than trust the stored key.
		submission.ID = models.SubmissionKey(submission.StudentID, submission.QuizID, entry.QueuedAt)
		handled[entry.IdempotencyKey] = true
		batch = append(batch, &submission)
	}

	if len(batch) > 0 {
		err = s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
			inserted, err := txRepo.Submission().CreateBatch(ctx, batch)
			if err != nil {
				return err
			}
			result.Inserted = inserted
			return nil
		})
		if err != nil {
			return nil, NewTransientNetworkError("outbox sync", err)
		}
		result.Synced = len(batch)
	}

	// The whole batch landed; drop only what this pass read. A submission
	// queued while the batch was in flight stays for the next pass.
	if err := s.removeEntries(ctx, handled); err != nil {
		// Harmless: the next sync replays the batch and conflicts skip.
		s.logger.Warn("failed to clear synced entries from outbox", "error", err)
	}

	s.logger.Info("outbox sync completed",
		"attempted", result.Attempted,
		"synced", result.Synced,
		"skipped", result.Skipped,
		"inserted", result.Inserted)

	s.publishSyncCompleted(ctx, result)

	return result, nil
}

// removeEntries rewrites the outbox without the given idempotency keys,
// under the same lock QueueSubmission appends under.
func (s *outboxService) removeEntries(ctx context.Context, keys map[string]bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load(ctx)
	if err != nil {
		return err
	}

	remaining := make([]models.OutboxEntry, 0, len(entries))
	for _, entry := range entries {
		if !keys[entry.IdempotencyKey] {
			remaining = append(remaining, entry)
		}
	}

	if len(remaining) == 0 {
		return s.store.Delete(ctx, localstore.OutboxKey)
	}
	return s.store.Set(ctx, localstore.OutboxKey, remaining)
}

func (s *outboxService) load(ctx context.Context) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	if err := s.store.Get(ctx, localstore.OutboxKey, &entries); err != nil {
		if errors.Is(err, localstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read outbox: %w", err)
	}
	return entries, nil
}

func (s *outboxService) publishSyncCompleted(ctx context.Context, result *SyncResult) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(events.EventSyncCompleted, map[string]interface{}{
		"attempted": result.Attempted,
		"synced":    result.Synced,
		"skipped":   result.Skipped,
		"inserted":  result.Inserted,
	})
	if err := s.publisher.Publish(ctx, events.TopicSyncResults, event); err != nil {
		s.logger.Error("failed to publish sync result", "error", err)
	}
}
