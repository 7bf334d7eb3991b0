package models

import (
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
)

// Donation status constants. Completed, rejected and cancelled are terminal.
const (
	DonationStatusPending   = "pending"
	DonationStatusApproved  = "approved"
	DonationStatusCompleted = "completed"
	DonationStatusRejected  = "rejected"
	DonationStatusCancelled = "cancelled"
)

// Unit bounds for a single donation.
const (
	MinDonationUnits = 1
	MaxDonationUnits = 5
)

// Donation represents a single donation event by a donor at a blood bank.
type Donation struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	DonorID     uint             `gorm:"not null;index" json:"donor_id"`
	Donor       User             `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	BloodBankID uint             `gorm:"not null;index" json:"blood_bank_id"`
	BloodBank   BloodBank        `gorm:"foreignKey:BloodBankID" json:"blood_bank,omitempty"`
	BloodType   domain.BloodType `gorm:"size:5;not null" json:"blood_type"`
	Units       int              `gorm:"not null" json:"units"`

	DonationDate time.Time `gorm:"not null;index" json:"donation_date"`
	Status       string    `gorm:"size:20;not null;index;default:'pending'" json:"status"`

	// Health screening snapshot recorded at donation time.
	Hemoglobin    float64 `json:"hemoglobin,omitempty"`
	PulseRate     int     `json:"pulse_rate,omitempty"`
	BloodPressure string  `gorm:"size:20" json:"blood_pressure,omitempty"`
	WeightKg      float64 `json:"weight_kg,omitempty"`
	HealthNotes   string  `gorm:"type:text" json:"health_notes,omitempty"`

	PointsAwarded int    `gorm:"default:0" json:"points_awarded"`
	Feedback      string `gorm:"type:text" json:"feedback,omitempty"`

	StatusHistory []DonationStatusChange `gorm:"foreignKey:DonationID" json:"status_history,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Donation model.
func (Donation) TableName() string {
	return "donations"
}

// IsTerminal reports whether the donation can no longer change status.
func (d *Donation) IsTerminal() bool {
	switch d.Status {
	case DonationStatusCompleted, DonationStatusRejected, DonationStatusCancelled:
		return true
	}
	return false
}

// DonationStatusChange is an append-only record of a donation status
// transition.
type DonationStatusChange struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DonationID uint      `gorm:"not null;index" json:"donation_id"`
	FromStatus string    `gorm:"size:20" json:"from_status"`
	ToStatus   string    `gorm:"size:20;not null" json:"to_status"`
	ChangedBy  uint      `json:"changed_by"`
	ChangedAt  time.Time `gorm:"not null" json:"changed_at"`
}

// TableName specifies the table name for DonationStatusChange model.
func (DonationStatusChange) TableName() string {
	return "donation_status_changes"
}
