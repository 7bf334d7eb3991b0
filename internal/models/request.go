package models

import (
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
)

// Blood request status constants. Fulfilled and cancelled are terminal.
const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in-progress"
	RequestStatusFulfilled  = "fulfilled"
	RequestStatusCancelled  = "cancelled"
)

// Urgency levels, a monotonic scale controlling the match radius.
const (
	UrgencyNormal   = "normal"
	UrgencyUrgent   = "urgent"
	UrgencyCritical = "critical"
)

// Donor response status constants for the per-donor sub-state machine.
const (
	ResponseStatusPending   = "pending"
	ResponseStatusAccepted  = "accepted"
	ResponseStatusCompleted = "completed"
	ResponseStatusCancelled = "cancelled"
)

// Unit bounds for a blood request.
const (
	MinRequestUnits = 1
	MaxRequestUnits = 10
)

// BloodRequest represents a request for blood on behalf of a patient.
type BloodRequest struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	RequesterID uint             `gorm:"not null;index" json:"requester_id"`
	Requester   User             `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	PatientName string           `gorm:"not null;size:255" json:"patient_name"`
	BloodType   domain.BloodType `gorm:"size:5;not null;index" json:"blood_type"`
	UnitsNeeded int              `gorm:"not null" json:"units_needed"`
	Urgency     string           `gorm:"size:20;not null;index;default:'normal'" json:"urgency"`
	Hospital    string           `gorm:"not null;size:255" json:"hospital"`
	RequiredBy  time.Time        `gorm:"not null" json:"required_by"`

	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`

	Status string `gorm:"size:20;not null;index;default:'pending'" json:"status"`

	// DonorsResponded is derived from the responses list and recomputed on
	// every change, never set directly.
	DonorsResponded int    `gorm:"default:0" json:"donors_responded"`
	Feedback        string `gorm:"type:text" json:"feedback,omitempty"`

	Responses []DonorResponse `gorm:"foreignKey:RequestID" json:"responses,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for BloodRequest model.
func (BloodRequest) TableName() string {
	return "blood_requests"
}

// IsTerminal reports whether the request can no longer change status.
func (r *BloodRequest) IsTerminal() bool {
	return r.Status == RequestStatusFulfilled || r.Status == RequestStatusCancelled
}

// DonorResponse is a donor's response to a blood request. A donor appears at
// most once per request.
type DonorResponse struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	RequestID   uint         `gorm:"not null;index;uniqueIndex:idx_request_donor" json:"request_id"`
	Request     BloodRequest `gorm:"foreignKey:RequestID" json:"request,omitempty"`
	DonorID     uint         `gorm:"not null;index;uniqueIndex:idx_request_donor" json:"donor_id"`
	Donor       User         `gorm:"foreignKey:DonorID" json:"donor,omitempty"`
	Status      string       `gorm:"size:20;not null;default:'pending'" json:"status"`
	RespondedAt time.Time    `gorm:"not null" json:"responded_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// TableName specifies the table name for DonorResponse model.
func (DonorResponse) TableName() string {
	return "donor_responses"
}
