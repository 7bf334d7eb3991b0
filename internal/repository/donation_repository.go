package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// DonationRepository handles donation-related database operations.
type DonationRepository struct {
	db *DB
}

// NewDonationRepository creates a new donation repository.
func NewDonationRepository(db *DB) *DonationRepository {
	return &DonationRepository{db: db}
}

// Create creates a new donation together with its initial status-history row.
func (r *DonationRepository) Create(donation *models.Donation) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(donation).Error; err != nil {
			return fmt.Errorf("failed to create donation: %w", err)
		}
		change := &models.DonationStatusChange{
			DonationID: donation.ID,
			ToStatus:   donation.Status,
			ChangedBy:  donation.DonorID,
			ChangedAt:  time.Now(),
		}
		if err := tx.Create(change).Error; err != nil {
			return fmt.Errorf("failed to record donation status: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a donation with its status history. Transient storage
// faults are retried with a bounded backoff.
func (r *DonationRepository) GetByID(id uint) (*models.Donation, error) {
	var donation models.Donation
	err := readWithRetry(func() error {
		donation = models.Donation{}
		err := r.db.
			Preload("StatusHistory").
			First(&donation, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("donation %d: %w", id, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &donation, nil
}

// UpdateStatus transitions a donation to a new status and appends the change
// to the status history in the same transaction.
func (r *DonationRepository) UpdateStatus(donationID uint, fromStatus, toStatus string, changedBy uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Donation{}).
			Where("id = ? AND status = ?", donationID, fromStatus).
			Updates(map[string]interface{}{
				"status":     toStatus,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update donation %d status: %w", donationID, res.Error)
		}
		if res.RowsAffected == 0 {
			// Either the donation is gone or its status moved concurrently.
			return fmt.Errorf("donation %d not in status %s: %w", donationID, fromStatus, domain.ErrConflict)
		}

		change := &models.DonationStatusChange{
			DonationID: donationID,
			FromStatus: fromStatus,
			ToStatus:   toStatus,
			ChangedBy:  changedBy,
			ChangedAt:  time.Now(),
		}
		if err := tx.Create(change).Error; err != nil {
			return fmt.Errorf("failed to record donation status change: %w", err)
		}
		return nil
	})
}

// SetPointsAwarded records the reward points granted for a donation.
func (r *DonationRepository) SetPointsAwarded(donationID uint, points int) error {
	res := r.db.Model(&models.Donation{}).
		Where("id = ?", donationID).
		Update("points_awarded", points)
	if res.Error != nil {
		return fmt.Errorf("failed to set points for donation %d: %w", donationID, res.Error)
	}
	return nil
}

// SetFeedback stores donor feedback. Feedback is the only field editable on a
// completed donation.
func (r *DonationRepository) SetFeedback(donationID uint, feedback string) error {
	res := r.db.Model(&models.Donation{}).
		Where("id = ?", donationID).
		Update("feedback", feedback)
	if res.Error != nil {
		return fmt.Errorf("failed to set feedback for donation %d: %w", donationID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("donation %d: %w", donationID, domain.ErrNotFound)
	}
	return nil
}

// ListByDonor retrieves a donor's donations, newest first.
func (r *DonationRepository) ListByDonor(donorID uint) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.
		Where("donor_id = ?", donorID).
		Order("donation_date DESC").
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list donations for donor %d: %w", donorID, err)
	}
	return donations, nil
}

// HasAcceptedDonationInWindow reports whether the donor has an approved or
// completed donation dated inside [from, to).
func (r *DonationRepository) HasAcceptedDonationInWindow(donorID uint, from, to time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&models.Donation{}).
		Where("donor_id = ?", donorID).
		Where("status IN ?", []string{models.DonationStatusApproved, models.DonationStatusCompleted}).
		Where("donation_date >= ? AND donation_date < ?", from, to).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to count donations for donor %d: %w", donorID, err)
	}
	return count > 0, nil
}

// GetCompletedByDateRange retrieves completed donations in [start, end),
// used by the daily stats aggregation.
func (r *DonationRepository) GetCompletedByDateRange(start, end time.Time) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.
		Where("status = ?", models.DonationStatusCompleted).
		Where("donation_date >= ? AND donation_date < ?", start, end).
		Find(&donations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get completed donations: %w", err)
	}
	return donations, nil
}

// UpsertDailyStats writes a daily aggregate row, replacing an existing row
// for the same day, bank and blood type.
func (r *DonationRepository) UpsertDailyStats(stats *models.DailyDonationStats) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DailyDonationStats{}).
			Where("date = ? AND blood_bank_id = ? AND blood_type = ?",
				stats.Date, stats.BloodBankID, stats.BloodType).
			Updates(map[string]interface{}{
				"donations": stats.Donations,
				"units":     stats.Units,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update daily stats: %w", res.Error)
		}
		if res.RowsAffected > 0 {
			return nil
		}
		if err := tx.Create(stats).Error; err != nil {
			return fmt.Errorf("failed to create daily stats: %w", err)
		}
		return nil
	})
}
