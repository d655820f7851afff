package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/models"
)

// ===== ATTEMPT LIFECYCLE =====

// beginAttemptLocked resets the runtime into a fresh in-progress attempt
func (s *sessionService) beginAttemptLocked(ctx context.Context, runtime *sessionRuntime) error {
	order, err := s.shuffle.Order(ctx, runtime.quiz, runtime.state.Scope, runtime.state.AttemptsTaken+1)
	if err != nil {
		return fmt.Errorf("failed to resolve question order: %w", err)
	}

	runtime.submitted = false
	runtime.state.State = models.SessionInProgress
	runtime.state.Order = order
	runtime.state.CurrentIndex = 0
	runtime.state.Answers = make(map[int]json.RawMessage)
	runtime.state.QuestionAttempted = false
	runtime.state.Streak = 0
	runtime.state.Score = nil
	runtime.state.XPGained = 0
	runtime.state.InfractionActive = false
	runtime.state.StatusMessage = ""
	runtime.state.QuestionNumbers = displayStartNumbers(runtime.quiz, order)

	if runtime.state.ExamMode && !runtime.state.InstructorPreview {
		remaining := int(time.Until(*runtime.quiz.AvailableUntil).Seconds())
		runtime.state.TimeRemaining = &remaining
		s.startExamTimer(runtime)
	}

	return nil
}

// Answer records the answer for the current question. Auto-graded kinds
// grade immediately and lock in; essays just store; matching stores until
// ConfirmMatching.
func (s *sessionService) Answer(ctx context.Context, sessionID string, answer json.RawMessage) (*AnswerFeedback, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if err := s.requireInProgressLocked(runtime); err != nil {
		return nil, err
	}
	if runtime.state.InstructorPreview {
		return &AnswerFeedback{}, nil
	}
	if len(answer) == 0 {
		return nil, badAnswer()
	}

	question, err := s.currentQuestionLocked(runtime)
	if err != nil {
		return nil, err
	}

	position := runtime.state.CurrentIndex

	switch question.Kind {
	case models.Essay:
		runtime.state.Answers[position] = answer
		runtime.state.QuestionAttempted = true
		return &AnswerFeedback{Attempted: true, Streak: runtime.state.Streak}, nil

	case models.MatchingType:
		runtime.state.Answers[position] = answer
		return &AnswerFeedback{Attempted: false, Streak: runtime.state.Streak}, nil

	default:
		if runtime.state.QuestionAttempted {
			return nil, ErrQuestionAnswered
		}

		correct, err := s.grading.CheckAnswer(question, answer)
		if err != nil {
			return nil, err
		}

		runtime.state.Answers[position] = answer
		runtime.state.QuestionAttempted = true
		if correct {
			runtime.state.Streak++
		} else {
			runtime.state.Streak = 0
		}

		return &AnswerFeedback{
			Attempted: true,
			Graded:    true,
			IsCorrect: correct,
			Streak:    runtime.state.Streak,
		}, nil
	}
}

// ConfirmMatching locks in the stored matching answer and reports how many
// pairs matched. A full match extends the streak.
func (s *sessionService) ConfirmMatching(ctx context.Context, sessionID string, answer json.RawMessage) (*MatchingFeedback, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if err := s.requireInProgressLocked(runtime); err != nil {
		return nil, err
	}
	if runtime.state.InstructorPreview {
		return &MatchingFeedback{}, nil
	}

	question, err := s.currentQuestionLocked(runtime)
	if err != nil {
		return nil, err
	}
	if runtime.state.QuestionAttempted {
		return nil, ErrQuestionAnswered
	}

	if len(answer) > 0 {
		runtime.state.Answers[runtime.state.CurrentIndex] = answer
	}

	correct, total, err := s.grading.ConfirmMatching(question, runtime.state.Answers[runtime.state.CurrentIndex])
	if err != nil {
		return nil, err
	}

	runtime.state.QuestionAttempted = true
	if correct == total {
		runtime.state.Streak++
	} else {
		runtime.state.Streak = 0
	}

	return &MatchingFeedback{Correct: correct, Total: total}, nil
}

// Next advances to the following question; past the last one it submits
func (s *sessionService) Next(ctx context.Context, sessionID string) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if err := s.requireInProgressLocked(runtime); err != nil {
		return nil, err
	}

	runtime.state.CurrentIndex++
	runtime.state.QuestionAttempted = false

	if runtime.state.CurrentIndex >= len(runtime.state.Order) {
		if runtime.state.InstructorPreview {
			runtime.state.CurrentIndex = len(runtime.state.Order) - 1
			return s.viewLocked(runtime), nil
		}
		return s.submitLocked(ctx, runtime)
	}

	return s.viewLocked(runtime), nil
}

// Submit grades and queues the current attempt
func (s *sessionService) Submit(ctx context.Context, sessionID string) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	return s.submitLocked(ctx, runtime)
}

// submitLocked is the one-shot submit path. The submitted guard makes
// concurrent submits of the same attempt enqueue exactly once.
func (s *sessionService) submitLocked(ctx context.Context, runtime *sessionRuntime) (*SessionView, error) {
	if runtime.state.InstructorPreview {
		return nil, ErrPreviewReadOnly
	}
	if runtime.submitted || runtime.state.Score != nil {
		return nil, ErrAlreadySubmitted
	}
	if err := s.requireInProgressLocked(runtime); err != nil {
		return nil, err
	}

	runtime.submitted = true

	grade, err := s.grading.GradeAttempt(runtime.quiz, runtime.state.Order, runtime.state.Answers)
	if err != nil {
		runtime.submitted = false
		return nil, fmt.Errorf("failed to grade attempt: %w", err)
	}

	queuedAt := time.Now()
	xpGained := grade.FinalScore * models.XPPerPoint

	status := models.SubmissionGraded
	if grade.HasPendingEssays {
		status = models.SubmissionPendingReview
	}

	submission := &models.Submission{
		QuizID:           runtime.quiz.ID,
		QuizTitle:        runtime.quiz.Title,
		StudentID:        runtime.state.Scope.StudentID,
		StudentName:      runtime.state.StudentName,
		ClassID:          runtime.state.ClassID,
		PostID:           runtime.state.Scope.PostID,
		Quarter:          runtime.quiz.Quarter,
		Difficulty:       runtime.quiz.Difficulty,
		Answers:          grade.Results,
		Score:            grade.FinalScore,
		TotalItems:       grade.TotalItems,
		Status:           status,
		HasPendingEssays: grade.HasPendingEssays,
		AttemptNumber:    runtime.state.AttemptsTaken + 1,
		Late:             runtime.state.Late,
		XPGained:         xpGained,
		SubmittedAt:      queuedAt,
	}

	if _, err := s.outbox.QueueSubmission(ctx, submission, queuedAt); err != nil {
		runtime.submitted = false
		s.notifier.Toast(ctx, events.ToastError, "Failed to save your submission. Please try again.", 5000)
		return nil, err
	}

	// The attempt is safely queued; local scope state resets now.
	if err := s.monitor.ClearCounters(ctx, runtime.state.Scope); err != nil {
		s.logger.Warn("failed to clear counters after submit", "error", err)
	}
	if err := s.shuffle.Clear(ctx, runtime.state.Scope); err != nil {
		s.logger.Warn("failed to clear shuffle order after submit", "error", err)
	}
	s.stopTimersLocked(runtime)

	attemptsBefore := runtime.state.AttemptsTaken
	score := grade.FinalScore
	runtime.state.Warnings = 0
	runtime.state.DevToolWarnings = 0
	runtime.state.InfractionActive = false
	runtime.state.Score = &score
	runtime.state.XPGained = xpGained
	runtime.state.AttemptsTaken++
	runtime.state.State = models.SessionSubmitted
	runtime.state.LatestSubmission = submission

	s.logger.Info("attempt submitted",
		"session_id", runtime.state.ID,
		"quiz_id", runtime.quiz.ID,
		"score", grade.FinalScore,
		"total_items", grade.TotalItems,
		"late", runtime.state.Late,
		"pending_essays", grade.HasPendingEssays,
		"online", s.conn.Online())

	if s.conn.Online() {
		if _, err := s.outbox.Sync(ctx); err != nil {
			s.logger.Warn("post-submit sync failed, outbox retained", "error", err)
			s.notifier.Toast(ctx, events.ToastWarning,
				"Submitted locally. Syncing will retry when the connection recovers.", 4000)
		} else if xpGained > 0 {
			_, rerr := s.rewards.ApplyQuizRewards(ctx, ApplyRewardsRequest{
				StudentID:     runtime.state.Scope.StudentID,
				XPGained:      xpGained,
				FinalScore:    grade.FinalScore,
				TotalItems:    grade.TotalItems,
				AttemptsTaken: attemptsBefore,
			})
			if rerr != nil {
				s.logger.Error("reward update failed after submit", "error", rerr)
				s.notifier.Toast(ctx, events.ToastWarning,
					"Quiz submitted, but failed to update your profile rewards.", 4000)
			}
		}
		s.notifier.Toast(ctx, events.ToastSuccess,
			fmt.Sprintf("Quiz submitted! Score: %d/%d", grade.FinalScore, grade.TotalItems), 4000)
	} else {
		s.notifier.Toast(ctx, events.ToastInfo,
			"You're offline. Your submission is saved and will sync when you reconnect.", 5000)
	}

	if grade.HasPendingEssays {
		s.notifier.Toast(ctx, events.ToastInfo,
			"Some answers need manual review; your score may still change.", 5000)
	}

	return s.viewLocked(runtime), nil
}

// StartNewAttempt begins another attempt after a submission, if any remain
func (s *sessionService) StartNewAttempt(ctx context.Context, sessionID string) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	switch runtime.state.State {
	case models.SessionLocked:
		return nil, NewIntegrityError(models.LockRecordID(runtime.state.Scope), runtime.state.LockReason)
	case models.SessionSubmitted, models.SessionReviewing:
	default:
		return nil, ErrSessionNotActive
	}

	if runtime.state.AttemptsTaken >= runtime.state.MaxAttempts {
		return nil, ErrNoAttemptsLeft
	}

	if err := s.beginAttemptLocked(ctx, runtime); err != nil {
		return nil, err
	}
	return s.viewLocked(runtime), nil
}

// ===== SIGNALS =====

// Signal processes one platform signal against the session
func (s *sessionService) Signal(ctx context.Context, sessionID string, signal models.SignalType) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}
	if !signal.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSignal, signal)
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	switch signal {
	case models.SignalAppForeground, models.SignalVisibilityShown, models.SignalWindowFocus:
		runtime.state.InfractionActive = false
		s.stopRewarnLocked(runtime)

	case models.SignalCopy, models.SignalCut:
		// Blocked but never counted.
		s.notifier.Toast(ctx, events.ToastWarning, "Copying/Cutting is disabled during the quiz.", 0)

	case models.SignalPaste:
		s.notifier.Toast(ctx, events.ToastWarning, "Pasting is disabled during the quiz.", 0)
		s.applyWarningLocked(ctx, runtime, models.WarningPaste)

	case models.SignalDevTools:
		s.applyWarningLocked(ctx, runtime, models.WarningDevTools)

	default:
		// Backgrounding, hiding, blurring, navigating away.
		s.applyWarningLocked(ctx, runtime, models.WarningGeneral)
		if runtime.state.State == models.SessionInProgress &&
			!runtime.state.InstructorPreview &&
			runtime.policy.LockOnLeave {
			runtime.state.InfractionActive = true
			s.startRewarnLocked(runtime)
		}
	}

	return s.viewLocked(runtime), nil
}

// applyWarningLocked runs one warning through the monitor and folds the
// outcome back into session state.
func (s *sessionService) applyWarningLocked(ctx context.Context, runtime *sessionRuntime, kind models.WarningKind) {
	outcome, err := s.monitor.IssueWarning(ctx, &runtime.state, runtime.policy, kind)
	if err != nil {
		s.logger.Error("failed to issue warning", "kind", kind, "error", err)
		return
	}
	if !outcome.Counted {
		return
	}

	if outcome.Kind == models.WarningDevTools {
		runtime.state.DevToolWarnings = outcome.WarningCount
	} else {
		runtime.state.Warnings = outcome.WarningCount
	}

	if outcome.Locked {
		runtime.state.State = models.SessionLocked
		runtime.state.LockReason = outcome.LockReason
		runtime.state.InfractionActive = false
		s.stopTimersLocked(runtime)
	}
}

// ===== TIMERS =====

// startExamTimer runs the countdown for exam-mode sessions and submits
// whatever is answered when the deadline hits.
func (s *sessionService) startExamTimer(runtime *sessionRuntime) {
	if runtime.cancelTimer != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	runtime.cancelTimer = cancel
	deadline := *runtime.quiz.AvailableUntil

	go func() {
		ticker := time.NewTicker(s.config.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining := int(time.Until(deadline).Seconds())
				if remaining > 0 {
					runtime.mu.Lock()
					r := remaining
					runtime.state.TimeRemaining = &r
					runtime.mu.Unlock()
					continue
				}

				runtime.mu.Lock()
				zero := 0
				runtime.state.TimeRemaining = &zero
				if !runtime.submitted && runtime.state.State == models.SessionInProgress {
					s.notifier.Toast(context.Background(), events.ToastError, "Time's up! Submitting your quiz.", 4000)
					if _, err := s.submitLocked(context.Background(), runtime); err != nil {
						s.logger.Error("deadline auto-submit failed", "session_id", runtime.state.ID, "error", err)
					}
				}
				runtime.mu.Unlock()
				return
			}
		}
	}()
}

// startRewarnLocked keeps warning while an infraction stays active
func (s *sessionService) startRewarnLocked(runtime *sessionRuntime) {
	if runtime.cancelRewarn != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	runtime.cancelRewarn = cancel

	go func() {
		ticker := time.NewTicker(s.config.RewarnInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				runtime.mu.Lock()
				if !runtime.state.InfractionActive || runtime.state.State != models.SessionInProgress {
					runtime.cancelRewarn = nil
					runtime.mu.Unlock()
					cancel()
					return
				}
				s.applyWarningLocked(context.Background(), runtime, models.WarningGeneral)
				runtime.mu.Unlock()
			}
		}
	}()
}

func (s *sessionService) stopRewarnLocked(runtime *sessionRuntime) {
	if runtime.cancelRewarn != nil {
		runtime.cancelRewarn()
		runtime.cancelRewarn = nil
	}
}

func (s *sessionService) stopTimersLocked(runtime *sessionRuntime) {
	if runtime.cancelTimer != nil {
		runtime.cancelTimer()
		runtime.cancelTimer = nil
	}
	s.stopRewarnLocked(runtime)
}

// ===== VIEWS =====

func (s *sessionService) requireInProgressLocked(runtime *sessionRuntime) error {
	switch runtime.state.State {
	case models.SessionInProgress:
		return nil
	case models.SessionLocked:
		return NewIntegrityError(models.LockRecordID(runtime.state.Scope), runtime.state.LockReason)
	default:
		return ErrSessionNotActive
	}
}

func (s *sessionService) currentQuestionLocked(runtime *sessionRuntime) (*models.Question, error) {
	idx := runtime.state.CurrentIndex
	if idx < 0 || idx >= len(runtime.state.Order) {
		return nil, ErrSessionNotActive
	}
	return &runtime.quiz.Questions[runtime.state.Order[idx]], nil
}

// viewLocked snapshots the session for the presentation layer. Raw answers
// never leave the runtime; the current question is stripped of its key.
func (s *sessionService) viewLocked(runtime *sessionRuntime) *SessionView {
	snapshot := runtime.state
	snapshot.Answers = nil
	snapshot.Order = nil

	view := &SessionView{
		Session:       snapshot,
		QuestionCount: len(runtime.state.Order),
	}

	if runtime.state.State == models.SessionInProgress {
		if question, err := s.currentQuestionLocked(runtime); err == nil {
			view.Question = s.questionView(runtime, question)
		}
	}
	return view
}

func (s *sessionService) questionView(runtime *sessionRuntime, question *models.Question) *SessionQuestionView {
	idx := runtime.state.CurrentIndex
	view := &SessionQuestionView{
		Index:  idx,
		Kind:   question.Kind,
		Text:   question.Text,
		Points: question.EffectivePoints(),
	}
	if idx < len(runtime.state.QuestionNumbers) {
		view.StartNumber = runtime.state.QuestionNumbers[idx]
	}

	switch question.Kind {
	case models.MultipleChoice:
		var content models.MultipleChoiceContent
		if err := question.DecodeContent(&content); err == nil {
			view.Options = content.Options
		}
	case models.MatchingType:
		var content models.MatchingContent
		if err := question.DecodeContent(&content); err == nil {
			view.Prompts = content.Prompts
			view.MatchOptions = content.Options
		}
	}
	return view
}

// displayStartNumbers computes per-question 1-based item numbers over the
// presentation order.
func displayStartNumbers(quiz *models.Quiz, order []int) []int {
	starts := make([]int, len(order))
	next := 1
	for i, questionIndex := range order {
		starts[i] = next
		next += quiz.Questions[questionIndex].EffectivePoints()
	}
	return starts
}
