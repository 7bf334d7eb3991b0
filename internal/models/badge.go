package models

import (
	"time"
)

// Badge keys unlocked by the rewards engine.
const (
	BadgeFirstDonation = "first_donation"
	BadgeRegularDonor  = "regular_donor"
	BadgeLifeSaver     = "life_saver"
)

// Badge represents a badge that can be earned by donors.
type Badge struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"uniqueIndex;not null;size:100" json:"key"`
	Name        string    `gorm:"not null;size:100" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Icon        string    `gorm:"size:50" json:"icon"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge represents a badge earned by a user.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"not null;index;uniqueIndex:idx_user_badge" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	BadgeID  uint      `gorm:"not null;index;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}

// BadgeCatalog is the built-in badge set seeded at startup. Awarding is
// idempotent, so re-seeding an existing catalog is a no-op.
var BadgeCatalog = []Badge{
	{Key: BadgeFirstDonation, Name: "First Donation", Description: "Completed a first blood donation", Icon: "drop"},
	{Key: BadgeRegularDonor, Name: "Regular Donor", Description: "Completed five blood donations", Icon: "heart"},
	{Key: BadgeLifeSaver, Name: "Life Saver", Description: "Impacted fifty lives or more", Icon: "star"},
}
