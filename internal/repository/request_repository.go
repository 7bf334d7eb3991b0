package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
)

// RequestRepository handles blood-request database operations.
type RequestRepository struct {
	db *DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create creates a new blood request.
func (r *RequestRepository) Create(request *models.BloodRequest) error {
	if err := r.db.Create(request).Error; err != nil {
		return fmt.Errorf("failed to create blood request: %w", err)
	}
	return nil
}

// GetByID retrieves a blood request with its donor responses.
func (r *RequestRepository) GetByID(id uint) (*models.BloodRequest, error) {
	var request models.BloodRequest
	err := readWithRetry(func() error {
		request = models.BloodRequest{}
		err := r.db.
			Preload("Responses").
			First(&request, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("blood request %d: %w", id, domain.ErrNotFound)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// UpdateStatus transitions a request to a new status.
func (r *RequestRepository) UpdateStatus(requestID uint, fromStatus, toStatus string) error {
	res := r.db.Model(&models.BloodRequest{}).
		Where("id = ? AND status = ?", requestID, fromStatus).
		Updates(map[string]interface{}{
			"status":     toStatus,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update request %d status: %w", requestID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("request %d not in status %s: %w", requestID, fromStatus, domain.ErrConflict)
	}
	return nil
}

// SetFeedback stores requester feedback on a closed request.
func (r *RequestRepository) SetFeedback(requestID uint, feedback string) error {
	res := r.db.Model(&models.BloodRequest{}).
		Where("id = ?", requestID).
		Update("feedback", feedback)
	if res.Error != nil {
		return fmt.Errorf("failed to set feedback for request %d: %w", requestID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("request %d: %w", requestID, domain.ErrNotFound)
	}
	return nil
}

// AddResponse appends a donor response to a request and recomputes the
// derived donors_responded count in the same transaction. A donor may appear
// at most once per request; a duplicate join surfaces
// domain.ErrDuplicateResponse.
func (r *RequestRepository) AddResponse(requestID, donorID uint) (*models.DonorResponse, error) {
	var response *models.DonorResponse
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&models.DonorResponse{}).
			Where("request_id = ? AND donor_id = ?", requestID, donorID).
			Count(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check existing response: %w", err)
		}
		if count > 0 {
			return fmt.Errorf("donor %d on request %d: %w", donorID, requestID, domain.ErrDuplicateResponse)
		}

		response = &models.DonorResponse{
			RequestID:   requestID,
			DonorID:     donorID,
			Status:      models.ResponseStatusPending,
			RespondedAt: time.Now(),
		}
		if err := tx.Create(response).Error; err != nil {
			return fmt.Errorf("failed to create donor response: %w", err)
		}

		return recountResponses(tx, requestID)
	})
	if err != nil {
		return nil, err
	}
	return response, nil
}

// UpdateResponseStatus transitions a donor response sub-record.
func (r *RequestRepository) UpdateResponseStatus(requestID, donorID uint, fromStatus, toStatus string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.DonorResponse{}).
			Where("request_id = ? AND donor_id = ? AND status = ?", requestID, donorID, fromStatus).
			Updates(map[string]interface{}{
				"status":     toStatus,
				"updated_at": time.Now(),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update response status: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("response for donor %d on request %d not in status %s: %w",
				donorID, requestID, fromStatus, domain.ErrConflict)
		}
		return nil
	})
}

// GetResponse retrieves a donor's response to a request.
func (r *RequestRepository) GetResponse(requestID, donorID uint) (*models.DonorResponse, error) {
	var response models.DonorResponse
	err := r.db.
		Where("request_id = ? AND donor_id = ?", requestID, donorID).
		First(&response).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("response for donor %d on request %d: %w", donorID, requestID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get donor response: %w", err)
	}
	return &response, nil
}

// ListByRequester retrieves requests created by a user, newest first.
func (r *RequestRepository) ListByRequester(requesterID uint) ([]models.BloodRequest, error) {
	var requests []models.BloodRequest
	err := r.db.
		Where("requester_id = ?", requesterID).
		Preload("Responses").
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list requests for user %d: %w", requesterID, err)
	}
	return requests, nil
}

// ListOpen retrieves pending and in-progress requests, most urgent first.
func (r *RequestRepository) ListOpen() ([]models.BloodRequest, error) {
	var requests []models.BloodRequest
	err := r.db.
		Where("status IN ?", []string{models.RequestStatusPending, models.RequestStatusInProgress}).
		Order("required_by ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open requests: %w", err)
	}
	return requests, nil
}

// recountResponses recomputes donors_responded from the responses list.
// Derived state is always recomputed from its source rows to prevent drift.
func recountResponses(tx *gorm.DB, requestID uint) error {
	var count int64
	err := tx.Model(&models.DonorResponse{}).
		Where("request_id = ?", requestID).
		Count(&count).Error
	if err != nil {
		return fmt.Errorf("failed to count responses: %w", err)
	}
	res := tx.Model(&models.BloodRequest{}).
		Where("id = ?", requestID).
		Update("donors_responded", count)
	if res.Error != nil {
		return fmt.Errorf("failed to update donors_responded: %w", res.Error)
	}
	return nil
}
