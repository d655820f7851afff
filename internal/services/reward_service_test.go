package services

import (
	"context"
	"errors"
	"testing"

	"github.com/classpulse/quiz-session-engine/internal/models"
)

func seedProfile(t *testing.T, env *testEnv, profile *models.UserProfile) {
	t.Helper()
	if profile.Level == 0 {
		profile.Level = 1
	}
	if err := env.repo.Profile().Create(context.Background(), profile); err != nil {
		t.Fatalf("seed profile failed: %v", err)
	}
}

func TestApplyQuizRewards_ZeroXPIsNoop(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 100})

	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  0,
	})
	if err != nil || updated != nil {
		t.Fatalf("expected a silent no-op, got profile=%v err=%v", updated, err)
	}

	profile, err := env.repo.Profile().GetByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if profile.XP != 100 {
		t.Fatalf("no-op must not touch the profile, got xp=%d", profile.XP)
	}
}

func TestApplyQuizRewards_ProfileNotFound(t *testing.T) {
	env := newTestEnv(true)

	_, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "ghost",
		XPGained:  50,
	})
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestApplyQuizRewards_XPWithoutLevelUp(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 100, Level: 1})

	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  100,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}

	if updated.XP != 200 || updated.Level != 1 {
		t.Fatalf("expected xp 200 at level 1, got xp=%d level=%d", updated.XP, updated.Level)
	}
	if got := env.notifier.containing("Level Up"); len(got) != 0 {
		t.Errorf("no level-up toast expected, got %v", env.notifier.all())
	}
}

func TestApplyQuizRewards_LevelUp(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 450, Level: 1})

	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  100,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}

	if updated.Level != 2 {
		t.Fatalf("expected level 2 at 550 xp, got %d", updated.Level)
	}
	if got := env.notifier.containing("🎉 Level Up! You've reached Level 2!"); len(got) != 1 {
		t.Fatalf("expected the level-up toast, got %v", env.notifier.all())
	}
	// Nothing unlocks before level 5.
	if len(updated.UnlockedRewards) != 0 {
		t.Errorf("no rewards expected at level 2, got %v", updated.UnlockedRewards)
	}
	if got := env.notifier.containing("New rewards available"); len(got) != 0 {
		t.Errorf("no rewards toast expected, got %v", env.notifier.all())
	}
}

func TestApplyQuizRewards_MultiLevelJumpGrantsIntermediates(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 1})

	// Enough cumulative XP to land exactly on level 15.
	gained := models.LevelThreshold(14)
	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  gained,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}

	if updated.Level != 15 {
		t.Fatalf("expected level 15, got %d", updated.Level)
	}

	want := []string{"border_basic", "border_animated"}
	if len(updated.UnlockedRewards) != len(want) {
		t.Fatalf("expected rewards %v, got %v", want, updated.UnlockedRewards)
	}
	for i, id := range want {
		if updated.UnlockedRewards[i] != id {
			t.Fatalf("expected rewards %v in level order, got %v", want, updated.UnlockedRewards)
		}
	}

	if !updated.CanSetBio {
		t.Error("expected the bio feature unlocked at level 15")
	}
	if got := env.notifier.containing("🎁 New rewards available! Check the Rewards page."); len(got) != 1 {
		t.Fatalf("expected the rewards toast, got %v", env.notifier.all())
	}
}

func TestApplyQuizRewards_TitleAndBadgeUnlocks(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 1})

	gained := models.LevelThreshold(34)
	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  gained,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}

	if updated.Level != 35 {
		t.Fatalf("expected level 35, got %d", updated.Level)
	}
	if updated.DisplayTitle != models.TitleAdept {
		t.Errorf("expected the adept title, got %q", updated.DisplayTitle)
	}

	hasScholar := false
	for _, badge := range updated.GenericBadges {
		if badge == "badge_scholar" {
			hasScholar = true
		}
	}
	if !hasScholar {
		t.Errorf("expected the scholar badge from the level jump, got %v", updated.GenericBadges)
	}
}

func TestApplyQuizRewards_PerformanceBadges(t *testing.T) {
	t.Run("perfect score", func(t *testing.T) {
		env := newTestEnv(true)
		seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 1})

		updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
			StudentID:     "s1",
			XPGained:      500,
			FinalScore:    10,
			TotalItems:    10,
			AttemptsTaken: 1,
		})
		if err != nil {
			t.Fatalf("ApplyQuizRewards failed: %v", err)
		}
		if len(updated.GenericBadges) != 1 || updated.GenericBadges[0] != models.BadgePerfectScore {
			t.Fatalf("expected the perfect-score badge, got %v", updated.GenericBadges)
		}
	})

	t.Run("first quiz", func(t *testing.T) {
		env := newTestEnv(true)
		seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 1})

		updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
			StudentID:     "s1",
			XPGained:      400,
			FinalScore:    8,
			TotalItems:    10,
			AttemptsTaken: 0,
		})
		if err != nil {
			t.Fatalf("ApplyQuizRewards failed: %v", err)
		}
		if len(updated.GenericBadges) != 1 || updated.GenericBadges[0] != models.BadgeFirstQuiz {
			t.Fatalf("expected the first-quiz badge, got %v", updated.GenericBadges)
		}
	})

	t.Run("imperfect retake earns neither", func(t *testing.T) {
		env := newTestEnv(true)
		seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 1})

		updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
			StudentID:     "s1",
			XPGained:      400,
			FinalScore:    8,
			TotalItems:    10,
			AttemptsTaken: 2,
		})
		if err != nil {
			t.Fatalf("ApplyQuizRewards failed: %v", err)
		}
		if len(updated.GenericBadges) != 0 {
			t.Fatalf("expected no badges, got %v", updated.GenericBadges)
		}
	})
}

func TestApplyQuizRewards_OwnedRewardsSkipped(t *testing.T) {
	env := newTestEnv(true)
	seedProfile(t, env, &models.UserProfile{
		ID:              "s1",
		XP:              0,
		Level:           1,
		UnlockedRewards: []string{"border_basic"},
		GenericBadges:   []string{models.BadgePerfectScore},
	})

	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID:     "s1",
		XPGained:      models.LevelThreshold(9),
		FinalScore:    10,
		TotalItems:    10,
		AttemptsTaken: 1,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}

	if updated.Level != 10 {
		t.Fatalf("expected level 10, got %d", updated.Level)
	}
	// border_basic was already owned; only border_animated is new.
	if len(updated.UnlockedRewards) != 2 || updated.UnlockedRewards[1] != "border_animated" {
		t.Fatalf("unexpected rewards: %v", updated.UnlockedRewards)
	}
	if len(updated.GenericBadges) != 1 {
		t.Fatalf("owned badges must not duplicate, got %v", updated.GenericBadges)
	}
}

func TestApplyQuizRewards_LevelNeverRegresses(t *testing.T) {
	env := newTestEnv(true)

	// A profile with a manually granted level above its XP keeps it.
	seedProfile(t, env, &models.UserProfile{ID: "s1", XP: 0, Level: 20})

	updated, err := env.rewards.ApplyQuizRewards(context.Background(), ApplyRewardsRequest{
		StudentID: "s1",
		XPGained:  500,
	})
	if err != nil {
		t.Fatalf("ApplyQuizRewards failed: %v", err)
	}
	if updated.Level != 20 {
		t.Fatalf("expected the granted level to stick, got %d", updated.Level)
	}
	if got := env.notifier.containing("Level Up"); len(got) != 0 {
		t.Errorf("no level-up toast expected, got %v", env.notifier.all())
	}
}
