package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// maxProgressionRetries bounds the optimistic-concurrency retry loop for
// progression updates.
const maxProgressionRetries = 3

// UserRepository handles user-related database operations.
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID. Transient storage faults are retried with
// a bounded backoff.
func (r *UserRepository) GetByID(id uint) (*models.User, error) {
	var user models.User
	err := readWithRetry(func() error {
		user = models.User{}
		err := r.db.First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by email.
func (r *UserRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %s: %w", email, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email %s: %w", email, err)
	}
	return &user, nil
}

// GetByFederatedIdentity retrieves a user by federated provider and subject ID.
func (r *UserRepository) GetByFederatedIdentity(provider, federatedID string) (*models.User, error) {
	var user models.User
	err := r.db.Where("federated_provider = ? AND federated_id = ?", provider, federatedID).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("federated user %s/%s: %w", provider, federatedID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get federated user: %w", err)
	}
	return &user, nil
}

// Update updates a user.
func (r *UserRepository) Update(user *models.User) error {
	if err := r.db.Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// Deactivate marks a user inactive. Users are never deleted.
func (r *UserRepository) Deactivate(id uint) error {
	res := r.db.Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		return fmt.Errorf("failed to deactivate user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ListActiveDonorsByBloodTypes retrieves active donors whose blood type is in
// the given set. Distance filtering happens in the matching service.
func (r *UserRepository) ListActiveDonorsByBloodTypes(bloodTypes []domain.BloodType) ([]models.User, error) {
	var donors []models.User
	err := r.db.
		Where("is_donor = ? AND is_active = ?", true, true).
		Where("blood_type IN ?", bloodTypes).
		Find(&donors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list donors: %w", err)
	}
	return donors, nil
}

// ListTopByRewardPoints returns active users ordered by reward points
// descending, optionally filtered by blood type.
func (r *UserRepository) ListTopByRewardPoints(bloodType domain.BloodType, limit int) ([]models.User, error) {
	query := r.db.Model(&models.User{}).
		Where("is_active = ?", true).
		Order("reward_points DESC")
	if bloodType != "" {
		query = query.Where("blood_type = ?", bloodType)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to list users by reward points: %w", err)
	}
	return users, nil
}

// UpdateProgression atomically applies a progression mutation to a user.
// The apply function receives the freshly-read user and mutates its
// progression fields. The write is guarded by the user's version column and
// retried on conflict; exhausted retries surface domain.ErrConflict so two
// concurrent donations for the same donor never both write from stale state.
func (r *UserRepository) UpdateProgression(userID uint, apply func(*models.User) error) (*models.User, error) {
	for attempt := 0; attempt < maxProgressionRetries; attempt++ {
		user, err := r.GetByID(userID)
		if err != nil {
			return nil, err
		}

		currentVersion := user.Version
		if err := apply(user); err != nil {
			return nil, err
		}

		res := r.db.Model(&models.User{}).
			Where("id = ? AND version = ?", userID, currentVersion).
			Updates(map[string]interface{}{
				"total_donations":    user.TotalDonations,
				"reward_points":      user.RewardPoints,
				"streak":             user.Streak,
				"level":              user.Level,
				"level_progress":     user.LevelProgress,
				"last_donation_date": user.LastDonationDate,
				"next_eligible_date": user.NextEligibleDate,
				"version":            currentVersion + 1,
				"updated_at":         time.Now(),
			})
		if res.Error != nil {
			return nil, fmt.Errorf("failed to update progression for user %d: %w", userID, res.Error)
		}
		if res.RowsAffected == 1 {
			user.Version = currentVersion + 1
			return user, nil
		}
		// Version moved underneath us; re-read and retry.
	}
	return nil, fmt.Errorf("progression update for user %d: %w", userID, domain.ErrConflict)
}

// AwardBadge awards a badge to a user by badge key. Awarding is idempotent:
// re-awarding a held badge is a no-op.
func (r *UserRepository) AwardBadge(userID uint, badgeKey string) error {
	var badge models.Badge
	if err := r.db.Where("key = ?", badgeKey).First(&badge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("badge %s: %w", badgeKey, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to get badge %s: %w", badgeKey, err)
	}

	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badge.ID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to check badge %s for user %d: %w", badgeKey, userID, err)
	}
	if count > 0 {
		return nil
	}

	userBadge := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badge.ID,
		EarnedAt: time.Now(),
	}
	if err := r.db.Create(userBadge).Error; err != nil {
		return fmt.Errorf("failed to award badge %s to user %d: %w", badgeKey, userID, err)
	}
	return nil
}

// GetUserBadges retrieves all badges earned by a user with badge details
// preloaded.
func (r *UserRepository) GetUserBadges(userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("earned_at DESC").
		Find(&userBadges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get badges for user %d: %w", userID, err)
	}
	return userBadges, nil
}

// GetUserBadgeCount returns the total number of badges a user has earned.
func (r *UserRepository) GetUserBadgeCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetBadgeCatalog retrieves all badges.
func (r *UserRepository) GetBadgeCatalog() ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.Order("created_at ASC").Find(&badges).Error
	return badges, err
}
