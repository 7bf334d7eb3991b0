// Package rewards implements the reward progression engine: points, streaks,
// levels and badge unlocking driven by completed donations.
package rewards

import (
	"time"

	"github.com/lifedrop/donorhub/internal/models"
)

// Default progression tuning, overridable through configuration.
const (
	DefaultBasePoints        = 100
	DefaultStreakBonusPoints = 10
	DefaultCadenceDays       = 90
)

// Outcome summarizes what a single donation did to a donor's progression.
type Outcome struct {
	PointsAwarded int      `json:"points_awarded"`
	StreakReset   bool     `json:"streak_reset"`
	NewBadges     []string `json:"new_badges,omitempty"`
}

// Rules holds the progression tuning applied on every donation.
type Rules struct {
	BasePoints        int
	StreakBonusPoints int
	CadenceDays       int
}

// DefaultRules returns the built-in progression tuning.
func DefaultRules() Rules {
	return Rules{
		BasePoints:        DefaultBasePoints,
		StreakBonusPoints: DefaultStreakBonusPoints,
		CadenceDays:       DefaultCadenceDays,
	}
}

// Apply folds one completed donation into the donor's progression state,
// mutating the progression fields in place. Level and level progress are
// always recomputed from the donation count, never incremented independently.
func (r Rules) Apply(user *models.User, donationDate time.Time) Outcome {
	var outcome Outcome

	// Streak: cadence maintained iff the previous donation is within
	// CadenceDays of this one. The bonus only applies to a continued streak.
	continued := user.LastDonationDate != nil &&
		!donationDate.After(user.LastDonationDate.AddDate(0, 0, r.CadenceDays))
	if continued {
		user.Streak++
		outcome.PointsAwarded = r.BasePoints + user.Streak*r.StreakBonusPoints
	} else {
		outcome.StreakReset = user.Streak > 1
		user.Streak = 1
		outcome.PointsAwarded = r.BasePoints
	}

	user.TotalDonations++
	user.RewardPoints += outcome.PointsAwarded
	user.Level, user.LevelProgress = LevelForCount(user.TotalDonations)

	last := donationDate
	next := donationDate.AddDate(0, 0, r.CadenceDays)
	user.LastDonationDate = &last
	user.NextEligibleDate = &next

	outcome.NewBadges = badgesDue(user.TotalDonations)
	return outcome
}

// LevelForCount returns the level and the 0-100 progress toward the next
// level for a cumulative completed-donation count.
func LevelForCount(n int) (string, float64) {
	switch {
	case n < 10:
		return models.LevelBronze, progress(n, 0, 10)
	case n < 25:
		return models.LevelSilver, progress(n, 10, 15)
	case n < 50:
		return models.LevelGold, progress(n, 25, 25)
	default:
		return models.LevelPlatinum, 100
	}
}

func progress(n, base, span int) float64 {
	p := float64(n-base) / float64(span)
	if p > 1 {
		p = 1
	}
	return p * 100
}

// badgesDue returns the badge keys a donor with n completed donations has
// earned. Awarding is idempotent downstream, so returning held badges is
// harmless.
func badgesDue(n int) []string {
	var due []string
	if n >= 1 {
		due = append(due, models.BadgeFirstDonation)
	}
	if n >= 5 {
		due = append(due, models.BadgeRegularDonor)
	}
	if n*3 >= 50 {
		due = append(due, models.BadgeLifeSaver)
	}
	return due
}
