package models

import "testing"

func TestLevelFromXP(t *testing.T) {
	cases := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{-50, 1},
		{499, 1},
		{500, 2},
		{1499, 2},
		{1500, 3},
		{LevelThreshold(14), 15},
		{LevelThreshold(14) - 1, 14},
	}

	for _, tc := range cases {
		if got := LevelFromXP(tc.xp); got != tc.level {
			t.Errorf("LevelFromXP(%d) = %d, want %d", tc.xp, got, tc.level)
		}
	}
}

func TestLevelThresholdMatchesLevelFromXP(t *testing.T) {
	// Reaching a threshold lands exactly on the next level.
	for level := 1; level <= 100; level++ {
		xp := LevelThreshold(level)
		if got := LevelFromXP(xp); got != level+1 {
			t.Fatalf("LevelFromXP(LevelThreshold(%d)) = %d, want %d", level, got, level+1)
		}
		if got := LevelFromXP(xp - 1); got != level {
			t.Fatalf("LevelFromXP(LevelThreshold(%d)-1) = %d, want %d", level, got, level)
		}
	}
}

func TestBestTitle(t *testing.T) {
	cases := []struct {
		name    string
		level   int
		current string
		want    string
	}{
		{"below every title", 10, "", ""},
		{"adept at 35", 35, "", TitleAdept},
		{"guru at 70", 70, "", TitleGuru},
		{"legend at 100", 100, "", TitleLegend},
		{"adept never demotes a guru", 35, TitleGuru, TitleGuru},
		{"guru never demotes a legend", 70, TitleLegend, TitleLegend},
		{"legend upgrades a guru", 100, TitleGuru, TitleLegend},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := BestTitle(tc.level, tc.current); got != tc.want {
				t.Errorf("BestTitle(%d, %q) = %q, want %q", tc.level, tc.current, got, tc.want)
			}
		})
	}
}

func TestRewardCatalogTitlesExist(t *testing.T) {
	for _, id := range []string{RewardCanSetBio, TitleAdept, TitleGuru, TitleLegend, "badge_scholar"} {
		if _, ok := RewardCatalog[id]; !ok {
			t.Errorf("catalog is missing %q", id)
		}
	}
}
