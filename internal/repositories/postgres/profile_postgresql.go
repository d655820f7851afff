package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
)

type ProfilePostgreSQL struct {
	db *gorm.DB
}

func NewProfilePostgreSQL(db *gorm.DB) repositories.ProfileRepository {
	return &ProfilePostgreSQL{db: db}
}

func (p *ProfilePostgreSQL) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var profile models.UserProfile
	if err := p.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (p *ProfilePostgreSQL) Create(ctx context.Context, profile *models.UserProfile) error {
	return p.db.WithContext(ctx).Create(profile).Error
}

// ApplyRewardUpdate merges a reward delta into the profile row inside a
// transaction. Reward and badge lists are unioned, never replaced.
func (p *ProfilePostgreSQL) ApplyRewardUpdate(ctx context.Context, update *models.RewardUpdate) (*models.UserProfile, error) {
	var updated *models.UserProfile

	err := p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.UserProfile
		if err := tx.First(&profile, "id = ?", update.StudentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repositories.ErrNotFound
			}
			return fmt.Errorf("failed to load profile for update: %w", err)
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

		if err := tx.Save(&profile).Error; err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		updated = &profile
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
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
