// Package aggregator provides daily batch aggregation of donation statistics.
package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// DonationRepository is the slice of the donation store the aggregator needs.
type DonationRepository interface {
	GetCompletedByDateRange(start, end time.Time) ([]models.Donation, error)
	UpsertDailyStats(stats *models.DailyDonationStats) error
}

// Service aggregates completed donations into per-day statistics.
type Service struct {
	donationRepo DonationRepository
	log          *logger.Logger
}

// NewService creates a new aggregator service.
func NewService(donationRepo *repository.DonationRepository, log *logger.Logger) *Service {
	return &Service{donationRepo: donationRepo, log: log}
}

// NewServiceWithInterfaces creates a new aggregator service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(donationRepo DonationRepository, log *logger.Logger) *Service {
	return &Service{donationRepo: donationRepo, log: log}
}

// statsKey groups donations by bank and blood type within one day.
type statsKey struct {
	bankID    uint
	bloodType domain.BloodType
}

// AggregateDaily aggregates completed donations for a specific date into one
// stats row per blood bank and blood type. Re-running the job for the same
// date replaces the previous rows.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) AggregateDaily(ctx context.Context, date time.Time) error {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	s.log.Info().
		Time("date", startOfDay).
		Msg("Starting daily donation aggregation")

	donations, err := s.donationRepo.GetCompletedByDateRange(startOfDay, endOfDay)
	if err != nil {
		return fmt.Errorf("failed to get completed donations: %w", err)
	}

	if len(donations) == 0 {
		s.log.Info().Msg("No completed donations found for date")
		return nil
	}

	grouped := make(map[statsKey]*models.DailyDonationStats)
	for _, donation := range donations {
		key := statsKey{bankID: donation.BloodBankID, bloodType: donation.BloodType}
		stats, ok := grouped[key]
		if !ok {
			stats = &models.DailyDonationStats{
				Date:        startOfDay,
				BloodBankID: donation.BloodBankID,
				BloodType:   donation.BloodType,
			}
			grouped[key] = stats
		}
		stats.Donations++
		stats.Units += donation.Units
	}

	written := 0
	for _, stats := range grouped {
		if err := s.donationRepo.UpsertDailyStats(stats); err != nil {
			s.log.Error().
				Err(err).
				Uint("blood_bank_id", stats.BloodBankID).
				Str("blood_type", string(stats.BloodType)).
				Msg("Failed to write daily stats row")
			continue
		}
		written++
	}

	s.log.Info().
		Time("date", startOfDay).
		Int("donations", len(donations)).
		Int("rows", written).
		Msg("Daily donation aggregation completed")

	return nil
}
