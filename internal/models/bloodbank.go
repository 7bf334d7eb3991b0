package models

import (
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
)

// BloodBank represents a registered blood bank and its location.
type BloodBank struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Name      string `gorm:"not null;size:255" json:"name"`
	LicenseID string `gorm:"uniqueIndex;not null;size:100" json:"license_id"`
	Address   string `gorm:"type:text" json:"address"`
	Phone     string `gorm:"size:50" json:"phone"`

	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	IsActive bool `gorm:"default:true;index" json:"is_active"`

	Inventory []BloodInventory `gorm:"foreignKey:BloodBankID" json:"inventory,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for BloodBank model.
func (BloodBank) TableName() string {
	return "blood_banks"
}

// BloodInventory tracks the unit count a blood bank holds for one blood type.
// Units are adjusted with atomic increments, never read-modify-write.
type BloodInventory struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	BloodBankID uint             `gorm:"not null;index;uniqueIndex:idx_bank_blood_type" json:"blood_bank_id"`
	BloodType   domain.BloodType `gorm:"size:5;not null;uniqueIndex:idx_bank_blood_type" json:"blood_type"`
	Units       int              `gorm:"not null;default:0" json:"units"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name for BloodInventory model.
func (BloodInventory) TableName() string {
	return "blood_inventory"
}

// DailyDonationStats is a per-day aggregate of completed donations for one
// blood bank and blood type, written by the scheduler's aggregation job.
type DailyDonationStats struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	Date        time.Time        `gorm:"type:date;not null;uniqueIndex:idx_stats_day" json:"date"`
	BloodBankID uint             `gorm:"not null;uniqueIndex:idx_stats_day" json:"blood_bank_id"`
	BloodType   domain.BloodType `gorm:"size:5;not null;uniqueIndex:idx_stats_day" json:"blood_type"`
	Donations   int              `gorm:"default:0" json:"donations"`
	Units       int              `gorm:"default:0" json:"units"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TableName specifies the table name for DailyDonationStats model.
func (DailyDonationStats) TableName() string {
	return "daily_donation_stats"
}
