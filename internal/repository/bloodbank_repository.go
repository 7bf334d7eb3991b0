package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// BloodBankRepository handles blood-bank and inventory database operations.
type BloodBankRepository struct {
	db *DB
}

// NewBloodBankRepository creates a new blood bank repository.
func NewBloodBankRepository(db *DB) *BloodBankRepository {
	return &BloodBankRepository{db: db}
}

// Create creates a new blood bank.
func (r *BloodBankRepository) Create(bank *models.BloodBank) error {
	if err := r.db.Create(bank).Error; err != nil {
		return fmt.Errorf("failed to create blood bank: %w", err)
	}
	return nil
}

// GetByID retrieves a blood bank with its inventory.
func (r *BloodBankRepository) GetByID(id uint) (*models.BloodBank, error) {
	var bank models.BloodBank
	err := readWithRetry(func() error {
		bank = models.BloodBank{}
		err := r.db.
			Preload("Inventory").
			First(&bank, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("blood bank %d: %w", id, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

// Update updates a blood bank.
func (r *BloodBankRepository) Update(bank *models.BloodBank) error {
	if err := r.db.Save(bank).Error; err != nil {
		return fmt.Errorf("failed to update blood bank: %w", err)
	}
	return nil
}

// ListActive retrieves all active blood banks with inventory.
func (r *BloodBankRepository) ListActive() ([]models.BloodBank, error) {
	var banks []models.BloodBank
	err := r.db.
		Where("is_active = ?", true).
		Preload("Inventory").
		Find(&banks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list blood banks: %w", err)
	}
	return banks, nil
}

// ListActiveWithStock retrieves active blood banks holding at least one unit
// of any of the given blood types.
func (r *BloodBankRepository) ListActiveWithStock(bloodTypes []domain.BloodType) ([]models.BloodBank, error) {
	var banks []models.BloodBank
	err := r.db.
		Joins("JOIN blood_inventory ON blood_inventory.blood_bank_id = blood_banks.id").
		Where("blood_banks.is_active = ?", true).
		Where("blood_inventory.blood_type IN ?", bloodTypes).
		Where("blood_inventory.units > 0").
		Distinct().
		Preload("Inventory").
		Find(&banks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stocked blood banks: %w", err)
	}
	return banks, nil
}

// AdjustInventory changes a bank's unit count for one blood type by delta
// using an atomic increment. Negative deltas that would drive the count below
// zero are rejected with domain.ErrConflict, so concurrent completions and
// fulfillments for the same bank and type never lose updates.
func (r *BloodBankRepository) AdjustInventory(bankID uint, bloodType domain.BloodType, delta int) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if delta >= 0 {
			// Ensure the inventory row exists before incrementing.
			var count int64
			err := tx.Model(&models.BloodInventory{}).
				Where("blood_bank_id = ? AND blood_type = ?", bankID, bloodType).
				Count(&count).Error
			if err != nil {
				return fmt.Errorf("failed to check inventory row: %w", err)
			}
			if count == 0 {
				row := &models.BloodInventory{
					BloodBankID: bankID,
					BloodType:   bloodType,
					Units:       delta,
				}
				if err := tx.Create(row).Error; err != nil {
					return fmt.Errorf("failed to create inventory row: %w", err)
				}
				return nil
			}
		}

		query := tx.Model(&models.BloodInventory{}).
			Where("blood_bank_id = ? AND blood_type = ?", bankID, bloodType)
		if delta < 0 {
			// Guard the decrement so the count can never go negative.
			query = query.Where("units >= ?", -delta)
		}
		res := query.Updates(map[string]interface{}{
			"units":      gorm.Expr("units + ?", delta),
			"updated_at": time.Now(),
		})
		if res.Error != nil {
			return fmt.Errorf("failed to adjust inventory: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("inventory for bank %d type %s cannot absorb %d units: %w",
				bankID, bloodType, delta, domain.ErrConflict)
		}
		return nil
	})
}

// GetInventory retrieves a bank's inventory rows.
func (r *BloodBankRepository) GetInventory(bankID uint) ([]models.BloodInventory, error) {
	var rows []models.BloodInventory
	err := r.db.
		Where("blood_bank_id = ?", bankID).
		Order("blood_type ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory for bank %d: %w", bankID, err)
	}
	return rows, nil
}
