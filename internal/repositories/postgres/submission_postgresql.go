package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
)

type SubmissionPostgreSQL struct {
	db *gorm.DB
}

func NewSubmissionPostgreSQL(db *gorm.DB) repositories.SubmissionRepository {
	return &SubmissionPostgreSQL{db: db}
}

func (s *SubmissionPostgreSQL) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	var submission models.Submission
	if err := s.db.WithContext(ctx).First(&submission, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get submission: %w", err)
	}
	return &submission, nil
}

func (s *SubmissionPostgreSQL) GetByScope(ctx context.Context, scope models.SessionScope) ([]*models.Submission, error) {
	var submissions []*models.Submission
	err := s.db.WithContext(ctx).
		Where("quiz_id = ? AND student_id = ? AND post_id = ?", scope.QuizID, scope.StudentID, scope.PostID).
		Order("submitted_at DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions for scope: %w", err)
	}
	return submissions, nil
}

func (s *SubmissionPostgreSQL) List(ctx context.Context, filters repositories.SubmissionFilters) ([]*models.Submission, error) {
	query := s.db.WithContext(ctx).Model(&models.Submission{})

	if filters.QuizID != "" {
		query = query.Where("quiz_id = ?", filters.QuizID)
	}
	if filters.StudentID != "" {
		query = query.Where("student_id = ?", filters.StudentID)
	}
	if filters.PostID != "" {
		query = query.Where("post_id = ?", filters.PostID)
	}
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}

	var submissions []*models.Submission
	if err := query.Order("submitted_at DESC").Find(&submissions).Error; err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	return submissions, nil
}

// CreateBatch inserts all submissions in one statement. Rows whose id
// already exists are skipped, so replaying a batch is safe. Returns the
// number of rows actually inserted.
func (s *SubmissionPostgreSQL) CreateBatch(ctx context.Context, submissions []*models.Submission) (int64, error) {
	if len(submissions) == 0 {
		return 0, nil
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&submissions)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to batch create submissions: %w", result.Error)
	}

	return result.RowsAffected, nil
}
