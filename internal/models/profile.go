package models

import "time"

// UserProfile is the student profile row carrying gamification progress
type UserProfile struct {
	ID              string    `json:"id" gorm:"primaryKey"`
	DisplayName     string    `json:"display_name"`
	XP              int       `json:"xp"`
	Level           int       `json:"level"`
	UnlockedRewards []string  `json:"unlocked_rewards" gorm:"serializer:json"`
	GenericBadges   []string  `json:"generic_badges" gorm:"serializer:json"`
	DisplayTitle    string    `json:"display_title,omitempty"`
	CanSetBio       bool      `json:"can_set_bio"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

// EffectiveLevel treats missing level data as level 1
func (p *UserProfile) EffectiveLevel() int {
	if p.Level < 1 {
		return 1
	}
	return p.Level
}

// HasReward checks the unlocked cosmetic rewards
func (p *UserProfile) HasReward(id string) bool {
	for _, r := range p.UnlockedRewards {
		if r == id {
			return true
		}
	}
	return false
}

// HasBadge checks the earned badges
func (p *UserProfile) HasBadge(id string) bool {
	for _, b := range p.GenericBadges {
		if b == id {
			return true
		}
	}
	return false
}

// RewardUpdate is the delta a reward application writes to a profile
type RewardUpdate struct {
	StudentID       string   `json:"student_id"`
	XP              int      `json:"xp"`
	Level           int      `json:"level"`
	LeveledUp       bool     `json:"leveled_up"`
	UnlockedRewards []string `json:"unlocked_rewards,omitempty"`
	NewBadges       []string `json:"new_badges,omitempty"`
	DisplayTitle    string   `json:"display_title,omitempty"`
	CanSetBio       *bool    `json:"can_set_bio,omitempty"`
}
