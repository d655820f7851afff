package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/classpulse/quiz-session-engine/internal/events"
	"github.com/classpulse/quiz-session-engine/internal/models"
	"github.com/classpulse/quiz-session-engine/internal/repositories"
)

type rewardService struct {
	repo     repositories.Repository
	notifier events.Notifier
	logger   *slog.Logger
}

// NewRewardService creates the XP/level/reward updater applied after a
// synced submission.
func NewRewardService(repo repositories.Repository, notifier events.Notifier, logger *slog.Logger) RewardService {
	return &rewardService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

// ApplyQuizRewards adds the gained XP to the profile, recomputes the level
// and unlocks every reward whose level falls inside the jump. A multi-level
// jump grants all intermediate rewards in the same update. Zero XP is a
// no-op.
func (s *rewardService) ApplyQuizRewards(ctx context.Context, req ApplyRewardsRequest) (*models.UserProfile, error) {
	if req.XPGained <= 0 || req.StudentID == "" {
		return nil, nil
	}

	profile, err := s.repo.Profile().GetByID(ctx, req.StudentID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	currentLevel := profile.EffectiveLevel()
	newXP := profile.XP + req.XPGained
	newLevel := models.LevelFromXP(newXP)
	leveledUp := newLevel > currentLevel

	update := &models.RewardUpdate{
		StudentID: req.StudentID,
		XP:        newXP,
		Level:     profile.Level,
		LeveledUp: leveledUp,
	}

	var newlyUnlocked []string
	if leveledUp {
		update.Level = newLevel
		s.notifier.Toast(ctx, events.ToastSuccess,
			fmt.Sprintf("🎉 Level Up! You've reached Level %d!", newLevel), 4000)

		newlyUnlocked = unlockedBetween(profile, currentLevel, newLevel)

		if newLevel >= models.RewardCatalog[models.RewardCanSetBio].Level && !profile.CanSetBio {
			canSetBio := true
			update.CanSetBio = &canSetBio
		}

		if best := models.BestTitle(newLevel, profile.DisplayTitle); best != profile.DisplayTitle {
			update.DisplayTitle = best
		}
	}

	if len(newlyUnlocked) > 0 {
		for _, id := range newlyUnlocked {
			if id != models.RewardCanSetBio {
				update.UnlockedRewards = append(update.UnlockedRewards, id)
			}
		}
		s.notifier.Toast(ctx, events.ToastInfo,
			"🎁 New rewards available! Check the Rewards page.", 5000)
	}

	update.NewBadges = s.earnedBadges(profile, req, newlyUnlocked)

	updated, err := s.repo.Profile().ApplyRewardUpdate(ctx, update)
	if err != nil {
		return nil, fmt.Errorf("failed to apply reward update: %w", err)
	}

	s.logger.Info("rewards applied",
		"student_id", req.StudentID,
		"xp_gained", req.XPGained,
		"new_xp", newXP,
		"level", newLevel,
		"leveled_up", leveledUp,
		"unlocked", len(update.UnlockedRewards),
		"badges", len(update.NewBadges))

	return updated, nil
}

// unlockedBetween lists catalog rewards whose level lies in (from, to] and
// which the profile does not already own, in stable level order.
func unlockedBetween(profile *models.UserProfile, from, to int) []string {
	var ids []string
	for id, reward := range models.RewardCatalog {
		if reward.Level > from && reward.Level <= to && !profile.HasReward(id) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := models.RewardCatalog[ids[i]], models.RewardCatalog[ids[j]]
		if a.Level != b.Level {
			return a.Level < b.Level
		}
		return ids[i] < ids[j]
	})
	return ids
}

// earnedBadges collects performance badges plus badges unlocked by the
// level jump, skipping ones already earned.
func (s *rewardService) earnedBadges(profile *models.UserProfile, req ApplyRewardsRequest, newlyUnlocked []string) []string {
	var candidates []string

	if req.TotalItems > 0 && req.FinalScore > 0 && req.FinalScore == req.TotalItems {
		candidates = append(candidates, models.BadgePerfectScore)
	}
	if req.TotalItems > 0 && req.AttemptsTaken == 0 {
		candidates = append(candidates, models.BadgeFirstQuiz)
	}
	for _, id := range newlyUnlocked {
		if models.RewardCatalog[id].Kind == models.RewardBadge {
			candidates = append(candidates, id)
		}
	}

	var badges []string
	for _, badge := range candidates {
		if !profile.HasBadge(badge) {
			badges = append(badges, badge)
		}
	}
	return badges
}
