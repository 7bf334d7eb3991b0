package rewards

import (
	"context"
	"fmt"
	"time"

	"github.com/lifedrop/donorhub/internal/config"
	prommetrics "github.com/lifedrop/donorhub/internal/metrics"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// UserRepository is the slice of the user store the rewards service needs.
type UserRepository interface {
	UpdateProgression(userID uint, apply func(*models.User) error) (*models.User, error)
	AwardBadge(userID uint, badgeKey string) error
	GetUserBadges(userID uint) ([]models.UserBadge, error)
}

// DonationRepository records the points granted for a donation.
type DonationRepository interface {
	SetPointsAwarded(donationID uint, points int) error
}

// Service applies reward progression when a donation completes.
type Service struct {
	userRepo     UserRepository
	donationRepo DonationRepository
	rules        Rules
	log          *logger.Logger
}

// NewService creates a rewards service from configuration.
func NewService(
	userRepo *repository.UserRepository,
	donationRepo *repository.DonationRepository,
	cfg *config.RewardsConfig,
	log *logger.Logger,
) *Service {
	rules := Rules{
		BasePoints:        cfg.BasePoints,
		StreakBonusPoints: cfg.StreakBonusPoints,
		CadenceDays:       cfg.EligibilityDays,
	}
	return &Service{userRepo: userRepo, donationRepo: donationRepo, rules: rules, log: log}
}

// NewServiceWithInterfaces creates a rewards service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, donationRepo DonationRepository, rules Rules, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, donationRepo: donationRepo, rules: rules, log: log}
}

// ApplyDonation folds a completed donation into the donor's progression and
// unlocks any badges now due. The progression write is a single atomic
// read-compute-write guarded by the user's version, so two concurrent
// completions for the same donor cannot lose updates.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) ApplyDonation(ctx context.Context, donorID, donationID uint, donationDate time.Time) (*models.User, *Outcome, error) {
	var outcome Outcome
	updated, err := s.userRepo.UpdateProgression(donorID, func(u *models.User) error {
		outcome = s.rules.Apply(u, donationDate)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to apply progression for donor %d: %w", donorID, err)
	}

	if err := s.donationRepo.SetPointsAwarded(donationID, outcome.PointsAwarded); err != nil {
		// Progression already committed; the per-donation record is advisory.
		s.log.Error().Err(err).
			Uint("donation_id", donationID).
			Msg("Failed to record points on donation")
	}

	newBadges := make([]string, 0, len(outcome.NewBadges))
	for _, key := range outcome.NewBadges {
		held, err := s.hasBadge(donorID, key)
		if err != nil {
			s.log.Error().Err(err).Str("badge", key).Msg("Failed to check badge")
			continue
		}
		if held {
			continue
		}
		if err := s.userRepo.AwardBadge(donorID, key); err != nil {
			s.log.Error().Err(err).
				Uint("donor_id", donorID).
				Str("badge", key).
				Msg("Failed to award badge")
			continue
		}
		newBadges = append(newBadges, key)
		prommetrics.RecordBadgeAwarded(key)
	}
	outcome.NewBadges = newBadges

	prommetrics.RecordRewardPoints(outcome.PointsAwarded)

	s.log.Info().
		Uint("donor_id", donorID).
		Uint("donation_id", donationID).
		Int("points", outcome.PointsAwarded).
		Int("streak", updated.Streak).
		Str("level", updated.Level).
		Int("total_donations", updated.TotalDonations).
		Msg("Donation applied to progression")

	return updated, &outcome, nil
}

func (s *Service) hasBadge(donorID uint, key string) (bool, error) {
	held, err := s.userRepo.GetUserBadges(donorID)
	if err != nil {
		return false, err
	}
	for _, ub := range held {
		if ub.Badge.Key == key {
			return true, nil
		}
	}
	return false, nil
}
