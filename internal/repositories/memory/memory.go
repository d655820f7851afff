// Package memory provides an in-memory Repository used by service tests and
// by sessions exercised without a database. Behavior mirrors the postgres
// implementation, including idempotent batch inserts and lock upserts.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
)

// Repository is the in-memory implementation of repositories.Repository
type Repository struct {
	mu sync.RWMutex

	quizzes     map[string]models.Quiz
	submissions map[string]models.Submission
	locks       map[string]models.LockRecord
	profiles    map[string]models.UserProfile

	// Error injection. When set, the matching operations fail with the
	// given error until cleared.
	failErr error
}

// NewRepository creates an empty in-memory repository
func NewRepository() *Repository {
	return &Repository{
		quizzes:     make(map[string]models.Quiz),
		submissions: make(map[string]models.Submission),
		locks:       make(map[string]models.LockRecord),
		profiles:    make(map[string]models.UserProfile),
	}
}

// FailWith makes every subsequent operation return err until cleared with
// FailWith(nil). Simulates the remote store being unreachable.
func (r *Repository) FailWith(err error) {
	r.mu.Lock()
	r.failErr = err
	r.mu.Unlock()
}

func (r *Repository) failure() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failErr
}

// SubmissionCount returns the number of stored submissions. Test helper.
func (r *Repository) SubmissionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.submissions)
}

func (r *Repository) Quiz() repositories.QuizRepository             { return &quizRepo{r} }
func (r *Repository) Submission() repositories.SubmissionRepository { return &submissionRepo{r} }
func (r *Repository) Lock() repositories.LockRepository             { return &lockRepo{r} }
func (r *Repository) Profile() repositories.ProfileRepository       { return &profileRepo{r} }

// WithTransaction runs fn against the same store. The in-memory store has
// no rollback; batch operations are already atomic under the mutex.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if err := r.failure(); err != nil {
		return err
	}
	return fn(r)
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.failure()
}

func (r *Repository) Close() error {
	return nil
}

// ===== Quiz =====

type quizRepo struct{ r *Repository }

func (q *quizRepo) GetByID(ctx context.Context, id string) (*models.Quiz, error) {
	if err := q.r.failure(); err != nil {
		return nil, err
	}
	q.r.mu.RLock()
	defer q.r.mu.RUnlock()
	quiz, ok := q.r.quizzes[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &quiz, nil
}

func (q *quizRepo) Create(ctx context.Context, quiz *models.Quiz) error {
	if err := q.r.failure(); err != nil {
		return err
	}
	q.r.mu.Lock()
	defer q.r.mu.Unlock()
	q.r.quizzes[quiz.ID] = *quiz
	return nil
}

func (q *quizRepo) Update(ctx context.Context, quiz *models.Quiz) error {
	return q.Create(ctx, quiz)
}

// ===== Submission =====

type submissionRepo struct{ r *Repository }

func (s *submissionRepo) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	if err := s.r.failure(); err != nil {
		return nil, err
	}
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	sub, ok := s.r.submissions[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &sub, nil
}

func (s *submissionRepo) GetByScope(ctx context.Context, scope models.SessionScope) ([]*models.Submission, error) {
	if err := s.r.failure(); err != nil {
		return nil, err
	}
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	var result []*models.Submission
	for id := range s.r.submissions {
		sub := s.r.submissions[id]
		if sub.QuizID == scope.QuizID && sub.StudentID == scope.StudentID && sub.PostID == scope.PostID {
			result = append(result, &sub)
		}
	}
	sortNewestFirst(result)
	return result, nil
}

func (s *submissionRepo) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, error) {
	if err := s.r.failure(); err != nil {
		return nil, err
	}
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()

	var result []*models.Submission
	for id := range s.r.submissions {
		sub := s.r.submissions[id]
		if filters.QuizID != "" && sub.QuizID != filters.QuizID {
			continue
		}
		if filters.StudentID != "" && sub.StudentID != filters.StudentID {
			continue
		}
		if filters.PostID != "" && sub.PostID != filters.PostID {
			continue
		}
		result = append(result, &sub)
	}
	sortNewestFirst(result)
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (s *submissionRepo) CreateBatch(ctx context.Context, submissions []*models.Submission) (int64, error) {
	if err := s.r.failure(); err != nil {
		return 0, err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()

	var inserted int64
	for _, sub := range submissions {
		if _, exists := s.r.submissions[sub.ID]; exists {
			continue
		}
		s.r.submissions[sub.ID] = *sub
		inserted++
	}
	return inserted, nil
}

func sortNewestFirst(subs []*models.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
}

// ===== Lock =====

type lockRepo struct{ r *Repository }

func (l *lockRepo) Get(ctx context.Context, id string) (*models.LockRecord, error) {
	if err := l.r.failure(); err != nil {
		return nil, err
	}
	l.r.mu.RLock()
	defer l.r.mu.RUnlock()
	record, ok := l.r.locks[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &record, nil
}

func (l *lockRepo) Create(ctx context.Context, record *models.LockRecord) error {
	if err := l.r.failure(); err != nil {
		return err
	}
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	if _, exists := l.r.locks[record.ID]; exists {
		return nil
	}
	l.r.locks[record.ID] = *record
	return nil
}

func (l *lockRepo) Delete(ctx context.Context, id string) error {
	if err := l.r.failure(); err != nil {
		return err
	}
	l.r.mu.Lock()
	defer l.r.mu.Unlock()
	delete(l.r.locks, id)
	return nil
}

func (l *lockRepo) ListByClass(ctx context.Context, classID string) ([]*models.LockRecord, error) {
	if err := l.r.failure(); err != nil {
		return nil, err
	}
	l.r.mu.RLock()
	defer l.r.mu.RUnlock()

	var result []*models.LockRecord
	for id := range l.r.locks {
		record := l.r.locks[id]
		if record.ClassID == classID {
			result = append(result, &record)
		}
	}
	return result, nil
}

// ===== Profile =====

type profileRepo struct{ r *Repository }

func (p *profileRepo) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	if err := p.r.failure(); err != nil {
		return nil, err
	}
	p.r.mu.RLock()
	defer p.r.mu.RUnlock()
	profile, ok := p.r.profiles[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &profile, nil
}

func (p *profileRepo) Create(ctx context.Context, profile *models.UserProfile) error {
	if err := p.r.failure(); err != nil {
		return err
	}
	p.r.mu.Lock()
	defer p.r.mu.Unlock()
	p.r.profiles[profile.ID] = *profile
	return nil
}

func (p *profileRepo) ApplyRewardUpdate(ctx context.Context, update *models.RewardUpdate) (*models.UserProfile, error) {
	if err := p.r.failure(); err != nil {
		return nil, err
	}
	p.r.mu.Lock()
	defer p.r.mu.Unlock()

	profile, ok := p.r.profiles[update.StudentID]
	if !ok {
		return nil, repositories.ErrNotFound
	}

	profile.XP = update.XP
	if update.Level > profile.Level {
		profile.Level = update.Level
	}
	profile.UnlockedRewards = unionStrings(profile.UnlockedRewards, update.UnlockedRewards)
	profile.GenericBadges = unionStrings(profile.GenericBadges, update.NewBadges)
	if update.DisplayTitle != "" {
		profile.DisplayTitle = update.DisplayTitle
	}
	if update.CanSetBio != nil {
		profile.CanSetBio = *update.CanSetBio
	}

	p.r.profiles[update.StudentID] = profile
	return &profile, nil
}

func unionStrings(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, v := range existing {
		seen[v] = true
	}
	for _, v := range incoming {
		if !seen[v] {
			existing = append(existing, v)
			seen[v] = true
		}
	}
	return existing
}
