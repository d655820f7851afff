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

type LockPostgreSQL struct {
	db *gorm.DB
}

func NewLockPostgreSQL(db *gorm.DB) repositories.LockRepository {
	return &LockPostgreSQL{db: db}
}

func (l *LockPostgreSQL) Get(ctx context.Context, id string) (*models.LockRecord, error) {
	var record models.LockRecord
	if err := l.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get lock record: %w", err)
	}
	return &record, nil
}

// Create writes a lock record. The id derives from the scope, so a second
// lock for the same scope is a no-op rather than an error.
func (l *LockPostgreSQL) Create(ctx context.Context, record *models.LockRecord) error {
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("failed to create lock record: %w", err)
	}
	return nil
}

func (l *LockPostgreSQL) Delete(ctx context.Context, id string) error {
	return l.db.WithContext(ctx).Delete(&models.LockRecord{}, "id = ?", id).Error
}

func (l *LockPostgreSQL) ListByClass(ctx context.Context, classID string) ([]*models.LockRecord, error) {
	var records []*models.LockRecord
	err := l.db.WithContext(ctx).
		Where("class_id = ?", classID).
		Order("locked_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list lock records: %w", err)
	}
	return records, nil
}
