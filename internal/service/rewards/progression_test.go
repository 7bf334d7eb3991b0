package rewards

import (
	"testing"
	"time"

	"github.com/lifedrop/donorhub/internal/models"
)

func TestLevelForCountBoundaries(t *testing.T) {
	tests := []struct {
		n            int
		wantLevel    string
		wantProgress float64
	}{
		{0, models.LevelBronze, 0},
		{1, models.LevelBronze, 10},
		{5, models.LevelBronze, 50},
		{9, models.LevelBronze, 90},
		{10, models.LevelSilver, 0},
		{17, models.LevelSilver, 100 * 7.0 / 15.0},
		{24, models.LevelSilver, 100 * 14.0 / 15.0},
		{25, models.LevelGold, 0},
		{40, models.LevelGold, 60},
		{49, models.LevelGold, 96},
		{50, models.LevelPlatinum, 100},
		{75, models.LevelPlatinum, 100},
	}

	for _, tt := range tests {
		level, prog := LevelForCount(tt.n)
		if level != tt.wantLevel {
			t.Errorf("n=%d: expected level %s, got %s", tt.n, tt.wantLevel, level)
		}
		if diff := prog - tt.wantProgress; diff > 1e-9 || diff < -1e-9 {
			t.Errorf("n=%d: expected progress %f, got %f", tt.n, tt.wantProgress, prog)
		}
	}
}

func TestApplyFirstDonation(t *testing.T) {
	rules := DefaultRules()
	user := &models.User{Level: models.LevelBronze}
	date := time.Now()

	outcome := rules.Apply(user, date)

	if outcome.PointsAwarded != 100 {
		t.Errorf("Expected 100 points for first donation, got %d", outcome.PointsAwarded)
	}
	if user.Streak != 1 {
		t.Errorf("Expected streak 1, got %d", user.Streak)
	}
	if user.TotalDonations != 1 {
		t.Errorf("Expected 1 total donation, got %d", user.TotalDonations)
	}
	if user.LastDonationDate == nil || !user.LastDonationDate.Equal(date) {
		t.Error("Expected last donation date to be set")
	}
	expected := date.AddDate(0, 0, 90)
	if user.NextEligibleDate == nil || !user.NextEligibleDate.Equal(expected) {
		t.Errorf("Expected next eligible %v, got %v", expected, user.NextEligibleDate)
	}
	if len(outcome.NewBadges) != 1 || outcome.NewBadges[0] != models.BadgeFirstDonation {
		t.Errorf("Expected first_donation badge, got %v", outcome.NewBadges)
	}
}

func TestApplyMaintainedCadenceIncrementsStreak(t *testing.T) {
	rules := DefaultRules()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Level: models.LevelBronze}

	// Donations every 80 days: streak after k donations equals k.
	date := start
	var lastOutcome Outcome
	for k := 1; k <= 4; k++ {
		lastOutcome = rules.Apply(user, date)
		if user.Streak != k {
			t.Fatalf("After donation %d: expected streak %d, got %d", k, k, user.Streak)
		}
		date = date.AddDate(0, 0, 80)
	}

	// Fourth donation: streak 4, bonus 40.
	if lastOutcome.PointsAwarded != 140 {
		t.Errorf("Expected 140 points at streak 4, got %d", lastOutcome.PointsAwarded)
	}
}

func TestApplyGapResetsStreak(t *testing.T) {
	rules := DefaultRules()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Level: models.LevelBronze}
	rules.Apply(user, start)
	rules.Apply(user, start.AddDate(0, 0, 60)) // streak 2

	// Gap of 91 days resets the streak and drops the bonus.
	outcome := rules.Apply(user, start.AddDate(0, 0, 60+91))
	if user.Streak != 1 {
		t.Errorf("Expected streak reset to 1, got %d", user.Streak)
	}
	if !outcome.StreakReset {
		t.Error("Expected streak reset flag")
	}
	if outcome.PointsAwarded != 100 {
		t.Errorf("Expected base 100 points after reset, got %d", outcome.PointsAwarded)
	}
}

func TestApplyBoundaryGapMaintainsStreak(t *testing.T) {
	rules := DefaultRules()
	start := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	user := &models.User{Level: models.LevelBronze}
	rules.Apply(user, start)

	// Exactly 90 days later still counts as maintained cadence.
	outcome := rules.Apply(user, start.AddDate(0, 0, 90))
	if user.Streak != 2 {
		t.Errorf("Expected streak 2 at 90-day boundary, got %d", user.Streak)
	}
	if outcome.PointsAwarded != 120 {
		t.Errorf("Expected 120 points (base + streak 2 bonus), got %d", outcome.PointsAwarded)
	}
}

func TestApplyNinthToTenthDonationPromotesToSilver(t *testing.T) {
	// Donor with 9 donations and a 100-day gap: eligible, promoted to
	// Silver, streak reset, base points only.
	rules := DefaultRules()
	last := time.Now().AddDate(0, 0, -100)
	user := &models.User{
		TotalDonations:   9,
		Streak:           3,
		Level:            models.LevelBronze,
		LastDonationDate: &last,
	}

	today := time.Now()
	outcome := rules.Apply(user, today)

	if user.TotalDonations != 10 {
		t.Errorf("Expected 10 donations, got %d", user.TotalDonations)
	}
	if user.Level != models.LevelSilver {
		t.Errorf("Expected level silver, got %s", user.Level)
	}
	if user.Streak != 1 {
		t.Errorf("Expected streak reset to 1, got %d", user.Streak)
	}
	if outcome.PointsAwarded != 100 {
		t.Errorf("Expected 100 points without streak bonus, got %d", outcome.PointsAwarded)
	}
	expected := today.AddDate(0, 0, 90)
	if user.NextEligibleDate == nil || !user.NextEligibleDate.Equal(expected) {
		t.Errorf("Expected next eligible %v, got %v", expected, user.NextEligibleDate)
	}
}

func TestBadgesDue(t *testing.T) {
	tests := []struct {
		n    int
		want []string
	}{
		{0, nil},
		{1, []string{models.BadgeFirstDonation}},
		{4, []string{models.BadgeFirstDonation}},
		{5, []string{models.BadgeFirstDonation, models.BadgeRegularDonor}},
		{16, []string{models.BadgeFirstDonation, models.BadgeRegularDonor}},
		{17, []string{models.BadgeFirstDonation, models.BadgeRegularDonor, models.BadgeLifeSaver}},
	}

	for _, tt := range tests {
		got := badgesDue(tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("n=%d: expected %v, got %v", tt.n, tt.want, got)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("n=%d: expected %v, got %v", tt.n, tt.want, got)
				break
			}
		}
	}
}
