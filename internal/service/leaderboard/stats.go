package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// UserStats represents comprehensive statistics for a donor.
type UserStats struct {
	UserID           uint             `json:"user_id"`
	Name             string           `json:"name"`
	BloodType        domain.BloodType `json:"blood_type"`
	TotalDonations   int              `json:"total_donations"`
	RewardPoints     int              `json:"reward_points"`
	Streak           int              `json:"streak"`
	Level            string           `json:"level"`
	LevelProgress    float64          `json:"level_progress"`
	LivesImpacted    int              `json:"lives_impacted"`
	LastDonationDate *time.Time       `json:"last_donation_date,omitempty"`
	NextEligibleDate *time.Time       `json:"next_eligible_date,omitempty"`
	Badges           []models.Badge   `json:"badges"`
	GlobalRank       int              `json:"global_rank"`
}

// GetUserStats returns comprehensive statistics for a donor.
func (s *Service) GetUserStats(ctx context.Context, userID uint) (*UserStats, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	stats := &UserStats{
		UserID:           user.ID,
		Name:             user.Name,
		BloodType:        user.BloodType,
		TotalDonations:   user.TotalDonations,
		RewardPoints:     user.RewardPoints,
		Streak:           user.Streak,
		Level:            user.Level,
		LevelProgress:    user.LevelProgress,
		LivesImpacted:    user.LivesImpacted(),
		LastDonationDate: user.LastDonationDate,
		NextEligibleDate: user.NextEligibleDate,
	}

	userBadges, err := s.userRepo.GetUserBadges(userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
	} else {
		for _, ub := range userBadges {
			if ub.Badge.ID != 0 {
				stats.Badges = append(stats.Badges, ub.Badge)
			}
		}
	}

	rank, err := s.GetUserRank(ctx, userID)
	if err != nil {
		s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to get global rank")
	} else {
		stats.GlobalRank = rank
	}

	return stats, nil
}
