package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/localstore"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
	"github.com/classpulse/quiz-session-engine/internal/validator"
)

// SessionConfig tunes session runtime behavior
type SessionConfig struct {
	MaxWarnings    int
	RewarnInterval time.Duration
	TickInterval   time.Duration
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.MaxWarnings < 1 {
		c.MaxWarnings = models.DefaultMaxWarnings
	}
	if c.RewarnInterval <= 0 {
		c.RewarnInterval = 7 * time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = time.Second
	}
	return c
}

// sessionRuntime owns one live session. All state mutations happen under
// its mutex; methods suffixed Locked require it held.
type sessionRuntime struct {
	mu     sync.Mutex
	state  models.Session
	quiz   *models.Quiz
	policy models.IntegrityPolicy

	// One-shot submit guard for the current attempt.
	submitted bool

	cancelTimer  context.CancelFunc
	cancelRewarn context.CancelFunc
}

type sessionService struct {
	repo      repositories.Repository
	store     localstore.Store
	grading   GradingService
	shuffle   ShuffleService
	monitor   InfractionMonitor
	outbox    OutboxService
	rewards   RewardService
	conn      *events.Connectivity
	notifier  events.Notifier
	logger    *slog.Logger
	validator *validator.Validator
	config    SessionConfig

	mu       sync.RWMutex
	sessions map[string]*sessionRuntime
}

// NewSessionService creates the session state machine
func NewSessionService(
	repo repositories.Repository,
	store localstore.Store,
	grading GradingService,
	shuffle ShuffleService,
	monitor InfractionMonitor,
	outbox OutboxService,
	rewards RewardService,
	conn *events.Connectivity,
	notifier events.Notifier,
	logger *slog.Logger,
	v *validator.Validator,
	config SessionConfig,
) SessionService {
	return &sessionService{
		repo:      repo,
		store:     store,
		grading:   grading,
		shuffle:   shuffle,
		monitor:   monitor,
		outbox:    outbox,
		rewards:   rewards,
		conn:      conn,
		notifier:  notifier,
		logger:    logger,
		validator: v,
		config:    config.withDefaults(),
		sessions:  make(map[string]*sessionRuntime),
	}
}

// Open resolves availability, locks and prior attempts for a scope and
// starts (or replays) a session. Works entirely off local state when the
// remote store is unreachable.
func (s *sessionService) Open(ctx context.Context, req OpenSessionRequest) (*SessionView, error) {
	if errs := s.validator.Validate(&req); errs.HasErrors() {
		return nil, NewValidationError(errs)
	}

	postID := req.PostID
	if postID == "" {
		postID = "standalone"
	}

	quiz, err := s.loadQuiz(ctx, req.QuizID)
	if err != nil {
		return nil, err
	}

	scope := models.SessionScope{QuizID: quiz.ID, StudentID: req.StudentID, PostID: postID}
	policy := models.NewIntegrityPolicy(quiz.Settings, s.config.MaxWarnings)
	now := time.Now()

	runtime := &sessionRuntime{
		quiz:   quiz,
		policy: policy,
		state: models.Session{
			ID:                 uuid.New().String(),
			Scope:              scope,
			StudentName:        req.StudentName,
			ClassID:            req.ClassID,
			InstructorPreview:  req.InstructorPreview,
			MaxAttempts:        quiz.EffectiveMaxAttempts(),
			ExamMode:           quiz.IsExamMode(),
			TotalItems:         quiz.TotalItems(),
			BlockScreenCapture: policy.BlockScreenCapture,
			Answers:            make(map[int]json.RawMessage),
			OpenedAt:           now,
		},
	}

	s.logger.Info("opening session",
		"session_id", runtime.state.ID,
		"quiz_id", quiz.ID,
		"student_id", req.StudentID,
		"post_id", postID,
		"preview", req.InstructorPreview,
		"online", s.conn.Online())

	if req.InstructorPreview {
		if err := s.beginAttemptLocked(ctx, runtime); err != nil {
			return nil, err
		}
		s.register(runtime)
		return s.viewLocked(runtime), nil
	}

	if quiz.AvailableFrom != nil && now.Before(*quiz.AvailableFrom) {
		runtime.state.State = models.SessionUnavailable
		runtime.state.StatusMessage = "This quiz is not yet available."
		s.register(runtime)
		return s.viewLocked(runtime), nil
	}

	if quiz.AvailableUntil != nil && now.After(*quiz.AvailableUntil) {
		if quiz.IsExamMode() {
			runtime.state.State = models.SessionUnavailable
			runtime.state.StatusMessage = "The exam deadline has passed."
			s.register(runtime)
			return s.viewLocked(runtime), nil
		}
		runtime.state.Late = true
		s.notifier.Toast(ctx, events.ToastWarning,
			"This quiz is past its deadline. Your submission will be marked as late.", 5000)
	}

	general, devTools, err := s.monitor.LoadCounters(ctx, scope)
	if err != nil {
		// Unreadable counters never block the student; a lock still
		// surfaces through the remote record when online.
		s.logger.Error("failed to load infraction counters", "error", err)
	}

	locked := general >= policy.MaxWarnings || devTools >= policy.MaxWarnings
	lockReason := ""
	if locked {
		// No lock record to consult offline; the maxed counter names the
		// family that tripped.
		lockReason = models.LockReasonNavigation
		if devTools >= policy.MaxWarnings {
			lockReason = models.LockReasonDevTools
		}
	}

	var remote []*models.Submission
	if s.conn.Online() {
		locked, lockReason, general, devTools = s.reconcileLock(ctx, scope, locked, lockReason, general, devTools)

		// Push any stranded entries before counting attempts so the
		// merge below sees them as remote rows, not duplicates.
		if pending, perr := s.outbox.PendingForScope(ctx, scope); perr == nil && len(pending) > 0 {
			if _, serr := s.outbox.Sync(ctx); serr != nil {
				s.logger.Warn("opportunistic sync on open failed", "error", serr)
			}
		}

		remote, err = s.repo.Submission().GetByScope(ctx, scope)
		if err != nil {
			s.logger.Warn("failed to fetch remote submissions, using local attempts only", "error", err)
		}
	}

	merged := s.mergeAttempts(ctx, scope, remote)

	runtime.state.Warnings = general
	runtime.state.DevToolWarnings = devTools
	runtime.state.AttemptsTaken = len(merged)

	var latest *models.Submission
	if len(merged) > 0 {
		latest = merged[0]
	}

	switch {
	case locked:
		runtime.state.State = models.SessionLocked
		runtime.state.LockReason = lockReason
		runtime.state.LatestSubmission = latest
	case len(merged) >= runtime.state.MaxAttempts:
		runtime.state.State = models.SessionNoAttemptsLeft
		runtime.state.LatestSubmission = latest
		if latest != nil {
			score := latest.Score
			runtime.state.Score = &score
		}
	case latest != nil:
		runtime.state.State = models.SessionSubmitted
		runtime.state.LatestSubmission = latest
		score := latest.Score
		runtime.state.Score = &score
		runtime.state.XPGained = latest.XPGained
	default:
		if err := s.beginAttemptLocked(ctx, runtime); err != nil {
			return nil, err
		}
	}

	s.register(runtime)
	return s.viewLocked(runtime), nil
}

// Get returns the current snapshot of a session
func (s *sessionService) Get(ctx context.Context, sessionID string) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()
	return s.viewLocked(runtime), nil
}

// Review moves a submitted session into review of its latest submission
func (s *sessionService) Review(ctx context.Context, sessionID string) (*SessionView, error) {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return nil, err
	}

	runtime.mu.Lock()
	defer runtime.mu.Unlock()

	if runtime.state.LatestSubmission == nil {
		return nil, ErrSessionNotActive
	}
	if runtime.state.State != models.SessionSubmitted && runtime.state.State != models.SessionNoAttemptsLeft {
		return nil, ErrSessionNotActive
	}

	runtime.state.State = models.SessionReviewing
	return s.viewLocked(runtime), nil
}

// Close releases a session. Leaving an unfinished monitored attempt counts
// one final navigation warning before the runtime goes away.
func (s *sessionService) Close(ctx context.Context, sessionID string) error {
	runtime, err := s.runtime(sessionID)
	if err != nil {
		return err
	}

	runtime.mu.Lock()
	if runtime.state.State == models.SessionInProgress &&
		!runtime.state.InstructorPreview &&
		runtime.policy.LockOnLeave {
		s.applyWarningLocked(ctx, runtime, models.WarningGeneral)
	}
	s.stopTimersLocked(runtime)
	runtime.mu.Unlock()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	s.logger.Info("session closed", "session_id", sessionID)
	return nil
}

// Shutdown stops all session timers. Sessions themselves are not persisted;
// reopening a scope rebuilds state from the local and remote stores.
func (s *sessionService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, runtime := range s.sessions {
		runtime.mu.Lock()
		s.stopTimersLocked(runtime)
		runtime.mu.Unlock()
	}
}

// ===== INTERNAL =====

func (s *sessionService) register(runtime *sessionRuntime) {
	s.mu.Lock()
	s.sessions[runtime.state.ID] = runtime
	s.mu.Unlock()
}

func (s *sessionService) runtime(sessionID string) (*sessionRuntime, error) {
	s.mu.RLock()
	runtime, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return runtime, nil
}

// loadQuiz fetches the quiz, caching it locally so an offline reopen still
// has the definition.
func (s *sessionService) loadQuiz(ctx context.Context, quizID string) (*models.Quiz, error) {
	quiz, err := s.repo.Quiz().GetByID(ctx, quizID)
	if err == nil {
		if cerr := s.store.Set(ctx, localstore.QuizCacheKey(quizID), quiz); cerr != nil {
			s.logger.Debug("failed to cache quiz locally", "quiz_id", quizID, "error", cerr)
		}
		return quiz, nil
	}
	if repositories.IsNotFound(err) {
		return nil, ErrQuizNotFound
	}

	var cached models.Quiz
	if cerr := s.store.Get(ctx, localstore.QuizCacheKey(quizID), &cached); cerr == nil {
		s.logger.Warn("remote quiz fetch failed, using cached copy", "quiz_id", quizID, "error", err)
		return &cached, nil
	}

	return nil, NewTransientNetworkError("load quiz", err)
}

// reconcileLock compares the local lock decision against the remote lock
// record. A remote record always locks; a missing record with maxed local
// counters means the instructor unlocked, so the counters reset.
func (s *sessionService) reconcileLock(ctx context.Context, scope models.SessionScope, locked bool, lockReason string, general, devTools int) (bool, string, int, int) {
	record, err := s.repo.Lock().Get(ctx, models.LockRecordID(scope))
	switch {
	case err == nil:
		return true, record.Reason, general, devTools
	case repositories.IsNotFound(err):
		if locked {
			if cerr := s.monitor.ClearCounters(ctx, scope); cerr != nil {
				s.logger.Error("failed to clear counters after instructor unlock", "error", cerr)
				return locked, lockReason, general, devTools
			}
			s.logger.Info("instructor unlock detected, local counters cleared",
				"quiz_id", scope.QuizID, "student_id", scope.StudentID)
			s.notifier.Toast(ctx, events.ToastSuccess,
				"Your instructor has unlocked this quiz. You may continue.", 4000)
			return false, "", 0, 0
		}
		return false, "", general, devTools
	default:
		// Can't read the record; the local decision stands.
		s.logger.Warn("failed to check remote lock record", "error", err)
		return locked, lockReason, general, devTools
	}
}

// mergeAttempts combines remote submissions with still-queued outbox
// entries, deduplicated by idempotency key, newest first.
func (s *sessionService) mergeAttempts(ctx context.Context, scope models.SessionScope, remote []*models.Submission) []*models.Submission {
	merged := make([]*models.Submission, 0, len(remote))
	seen := make(map[string]bool, len(remote))
	for _, sub := range remote {
		merged = append(merged, sub)
		seen[sub.ID] = true
	}

	pending, err := s.outbox.PendingForScope(ctx, scope)
	if err != nil {
		s.logger.Error("failed to read outbox for attempt merge", "error", err)
	}
	for i := range pending {
		entry := pending[i]
		if seen[entry.IdempotencyKey] {
			continue
		}
		sub := entry.Submission
		merged = append(merged, &sub)
		seen[entry.IdempotencyKey] = true
	}

	for i := 0; i < len(merged); i++ {
		for j := i + 1; j < len(merged); j++ {
			if merged[j].SubmittedAt.After(merged[i].SubmittedAt) {
				merged[i], merged[j] = merged[j], merged[i]
			}
		}
	}
	return merged
}

func badAnswer() error {
	return NewValidationError(validator.ValidationErrors{{
		Field:   "answer",
		Message: "must not be empty",
		Rule:    "required",
	}})
}
