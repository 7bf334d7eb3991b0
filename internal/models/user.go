// Package models defines domain models for the blood donation platform.
package models

import (
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
)

// Donor levels, ordered Bronze < Silver < Gold < Platinum.
const (
	LevelBronze   = "bronze"
	LevelSilver   = "silver"
	LevelGold     = "gold"
	LevelPlatinum = "platinum"
)

// Federated identity providers supported for registration.
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// User represents a registered user: identity, role flags and the reward
// progression state mutated by the rewards engine.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"uniqueIndex;not null;size:255" json:"email"`
	PasswordHash string `gorm:"size:255" json:"-"` // empty iff federated identity is linked

	FederatedProvider string `gorm:"size:50" json:"federated_provider,omitempty"`
	FederatedID       string `gorm:"size:255;index" json:"-"`

	Name      string           `gorm:"not null;size:255" json:"name"`
	Phone     string           `gorm:"size:50" json:"phone"`
	BloodType domain.BloodType `gorm:"size:5;index" json:"blood_type"`
	IsDonor   bool             `gorm:"default:false;index" json:"is_donor"`
	IsAdmin   bool             `gorm:"default:false" json:"is_admin"`
	IsActive  bool             `gorm:"default:true" json:"is_active"`

	// Geo-location of the user, WGS84 degrees.
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	// Progression state. Mutated only through UserRepository.UpdateProgression.
	TotalDonations   int        `gorm:"default:0" json:"total_donations"`
	RewardPoints     int        `gorm:"default:0" json:"reward_points"`
	Streak           int        `gorm:"default:0" json:"streak"`
	Level            string     `gorm:"size:20;default:'bronze'" json:"level"`
	LevelProgress    float64    `gorm:"default:0" json:"level_progress"`
	LastDonationDate *time.Time `json:"last_donation_date,omitempty"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`

	// Version guards optimistic-concurrency updates of progression state.
	Version int64 `gorm:"default:0" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// LivesImpacted is derived from the donation count, three lives per donation.
func (u *User) LivesImpacted() int {
	return u.TotalDonations * 3
}

// HasFederatedIdentity reports whether the user registered through an
// external identity provider. A local credential is required iff this is false.
func (u *User) HasFederatedIdentity() bool {
	return u.FederatedProvider != "" && u.FederatedID != ""
}
