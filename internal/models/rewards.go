package models

import "math"

// XP and leveling constants. Levels follow a triangular progression: the
// cumulative XP required to pass level n is n(n+1)/2 * LevelStepXP.
const (
	XPPerPoint  = 50
	LevelStepXP = 500
)

// LevelThreshold returns the cumulative XP needed to advance past level
func LevelThreshold(level int) int {
	if level < 1 {
		return 0
	}
	return level * (level + 1) / 2 * LevelStepXP
}

// LevelFromXP computes the level reached with the given cumulative XP
func LevelFromXP(xp int) int {
	if xp <= 0 {
		return 1
	}
	level := int(math.Floor((math.Sqrt(1+8*float64(xp)/LevelStepXP)-1)/2)) + 1
	if level < 1 {
		return 1
	}
	return level
}

// RewardKind classifies an unlockable reward
type RewardKind string

const (
	RewardBorder     RewardKind = "border"
	RewardBackground RewardKind = "background"
	RewardFeature    RewardKind = "feature"
	RewardTitle      RewardKind = "title"
	RewardBadge      RewardKind = "badge"
)

// Reward is one unlockable cosmetic or feature bound to a level
type Reward struct {
	Level       int        `json:"level"`
	Kind        RewardKind `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
}

// Reward and badge identifiers referenced outside the catalog.
const (
	RewardCanSetBio   = "canSetBio"
	TitleAdept        = "title_adept"
	TitleGuru         = "title_guru"
	TitleLegend       = "title_legend"
	BadgePerfectScore = "perfect_score"
	BadgeFirstQuiz    = "first_quiz"
)

// RewardCatalog maps reward ids to their definitions. It is the single
// source of truth for what unlocks at which level.
var RewardCatalog = map[string]Reward{
	"border_basic":              {Level: 5, Kind: RewardBorder, Name: "Basic Border", Description: "A simple, clean border."},
	"border_animated":           {Level: 10, Kind: RewardBorder, Name: "Animated Border", Description: "A subtly pulsing border."},
	"border_advanced_animated":  {Level: 30, Kind: RewardBorder, Name: "Advanced Animated Border", Description: "A spinning, eye-catching border."},
	"border_elite_animated":     {Level: 50, Kind: RewardBorder, Name: "Elite Animated Border", Description: "A highly stylized border."},
	"border_legendary_animated": {Level: 80, Kind: RewardBorder, Name: "Legendary Animated Border", Description: "A border with striking visual effects."},
	"bg_pattern_1":              {Level: 20, Kind: RewardBackground, Name: "Subtle Pattern Background", Description: "A gentle pattern for your profile."},
	"bg_pattern_2":              {Level: 40, Kind: RewardBackground, Name: "Intricate Pattern Background", Description: "A more detailed background design."},
	"bg_pattern_elite":          {Level: 60, Kind: RewardBackground, Name: "Elite Background", Description: "A premium background theme."},
	"bg_pattern_legendary":      {Level: 90, Kind: RewardBackground, Name: "Legendary Background", Description: "A top-tier background."},
	RewardCanSetBio:             {Level: 15, Kind: RewardFeature, Name: "Custom Bio", Description: "Unlock the ability to set a custom bio."},
	TitleAdept:                  {Level: 35, Kind: RewardTitle, Name: "Title: Adept", Description: "Display the \"Adept\" title."},
	TitleGuru:                   {Level: 70, Kind: RewardTitle, Name: "Title: Guru", Description: "Display the \"Guru\" title."},
	TitleLegend:                 {Level: 100, Kind: RewardTitle, Name: "Title: Legend", Description: "Display the ultimate \"Legend\" title."},
	"badge_scholar":             {Level: 25, Kind: RewardBadge, Name: "Scholar Badge", Description: "Awarded for reaching Level 25."},
	"badge_master":              {Level: 45, Kind: RewardBadge, Name: "Master Badge", Description: "Awarded for reaching Level 45."},
	"badge_legend":              {Level: 100, Kind: RewardBadge, Name: "Legend Badge", Description: "Awarded for reaching Level 100."},
}

// BestTitle picks the highest-ranked title unlocked at level, keeping the
// current title when nothing better is reached.
func BestTitle(level int, current string) string {
	switch {
	case level >= RewardCatalog[TitleLegend].Level:
		return TitleLegend
	case level >= RewardCatalog[TitleGuru].Level && current != TitleLegend:
		return TitleGuru
	case level >= RewardCatalog[TitleAdept].Level && current != TitleLegend && current != TitleGuru:
		return TitleAdept
	}
	return current
}
