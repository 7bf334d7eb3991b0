//nolint:noctx // Test file uses http.NewRequest for simplicity
package donations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/lifedrop/donorhub/internal/api/middleware"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/service/donations"
	"github.com/lifedrop/donorhub/internal/service/rewards"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// Mock Donation Service
type mockDonationService struct {
	donations        map[uint]*models.Donation
	nextEligibleDate time.Time
	ineligible       bool
	nextID           uint
}

func newMockDonationService() *mockDonationService {
	return &mockDonationService{donations: make(map[uint]*models.Donation), nextID: 1}
}

func (m *mockDonationService) Submit(ctx context.Context, donorID uint, input donations.SubmitInput) (*donations.SubmitResult, error) {
	if input.Units < models.MinDonationUnits || input.Units > models.MaxDonationUnits {
		return nil, fmt.Errorf("units out of range: %w", domain.ErrInvalidInput)
	}
	if m.ineligible {
		next := m.nextEligibleDate
		return &donations.SubmitResult{Accepted: false, NextEligibleDate: &next}, nil
	}
	donation := &models.Donation{
		ID:           m.nextID,
		DonorID:      donorID,
		BloodBankID:  input.BloodBankID,
		BloodType:    input.BloodType,
		Units:        input.Units,
		DonationDate: input.DonationDate,
		Status:       models.DonationStatusPending,
	}
	m.donations[m.nextID] = donation
	m.nextID++
	return &donations.SubmitResult{Accepted: true, Donation: donation}, nil
}

func (m *mockDonationService) Get(ctx context.Context, donationID uint) (*models.Donation, error) {
	donation, exists := m.donations[donationID]
	if !exists {
		return nil, fmt.Errorf("donation %d: %w", donationID, domain.ErrNotFound)
	}
	return donation, nil
}

func (m *mockDonationService) ListByDonor(ctx context.Context, donorID uint) ([]models.Donation, error) {
	var out []models.Donation
	for _, donation := range m.donations {
		if donation.DonorID == donorID {
			out = append(out, *donation)
		}
	}
	return out, nil
}

func (m *mockDonationService) Approve(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	return m.transition(donationID, models.DonationStatusApproved)
}

func (m *mockDonationService) Reject(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	return m.transition(donationID, models.DonationStatusRejected)
}

func (m *mockDonationService) Cancel(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	return m.transition(donationID, models.DonationStatusCancelled)
}

func (m *mockDonationService) Complete(ctx context.Context, actorID, donationID uint) (*models.Donation, *rewards.Outcome, error) {
	donation, exists := m.donations[donationID]
	if !exists {
		return nil, nil, fmt.Errorf("donation %d: %w", donationID, domain.ErrNotFound)
	}
	if donation.Status != models.DonationStatusApproved {
		return nil, nil, fmt.Errorf("donation %d is %s: %w", donationID, donation.Status, domain.ErrConflict)
	}
	donation.Status = models.DonationStatusCompleted
	return donation, &rewards.Outcome{PointsAwarded: 100}, nil
}

func (m *mockDonationService) SetFeedback(ctx context.Context, actorID, donationID uint, feedback string) error {
	donation, exists := m.donations[donationID]
	if !exists {
		return fmt.Errorf("donation %d: %w", donationID, domain.ErrNotFound)
	}
	donation.Feedback = feedback
	return nil
}

func (m *mockDonationService) transition(donationID uint, toStatus string) (*models.Donation, error) {
	donation, exists := m.donations[donationID]
	if !exists {
		return nil, fmt.Errorf("donation %d: %w", donationID, domain.ErrNotFound)
	}
	donation.Status = toStatus
	return donation, nil
}

// Test Setup
func setupTestHandler() (*Handler, *mockDonationService) {
	service := newMockDonationService()
	log := logger.New("debug", "text", "stdout")
	return NewHandler(service, log), service
}

func setupRouter(handler *Handler, callerID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, callerID)
	})
	router.POST("/donations", handler.Submit)
	router.GET("/donations/:id", handler.Get)
	router.GET("/me/donations", handler.ListMine)
	router.POST("/donations/:id/complete", handler.Complete)
	router.POST("/donations/:id/cancel", handler.Cancel)
	router.PUT("/donations/:id/feedback", handler.SetFeedback)
	return router
}

func submitBody(units int) []byte {
	body, _ := json.Marshal(donations.SubmitInput{
		BloodBankID:  1,
		BloodType:    domain.BloodOPos,
		Units:        units,
		DonationDate: time.Now().AddDate(0, 0, -1),
	})
	return body
}

func TestSubmitAccepted(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodPost, "/donations", bytes.NewReader(submitBody(1)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Accepted bool            `json:"accepted"`
		Donation models.Donation `json:"donation"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.True(t, response.Accepted)
	assert.EqualValues(t, 7, response.Donation.DonorID)
	assert.Equal(t, models.DonationStatusPending, response.Donation.Status)
}

func TestSubmitIneligible(t *testing.T) {
	handler, service := setupTestHandler()
	service.ineligible = true
	service.nextEligibleDate = time.Now().AddDate(0, 0, 30)
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodPost, "/donations", bytes.NewReader(submitBody(1)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var response map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, false, response["accepted"])
	assert.NotEmpty(t, response["next_eligible_date"])
}

func TestSubmitInvalidUnits(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodPost, "/donations", bytes.NewReader(submitBody(6)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitMalformedBody(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodPost, "/donations", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDonationNotFound(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodGet, "/donations/42", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetDonationInvalidID(t *testing.T) {
	handler, _ := setupTestHandler()
	router := setupRouter(handler, 7)

	req, _ := http.NewRequest(http.MethodGet, "/donations/abc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCompleteReturnsReward(t *testing.T) {
	handler, service := setupTestHandler()
	service.donations[1] = &models.Donation{ID: 1, DonorID: 7, Status: models.DonationStatusApproved}
	router := setupRouter(handler, 3)

	req, _ := http.NewRequest(http.MethodPost, "/donations/1/complete", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Donation models.Donation `json:"donation"`
		Reward   rewards.Outcome `json:"reward"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, models.DonationStatusCompleted, response.Donation.Status)
	assert.Equal(t, 100, response.Reward.PointsAwarded)
}

func TestCompletePendingConflicts(t *testing.T) {
	handler, service := setupTestHandler()
	service.donations[1] = &models.Donation{ID: 1, DonorID: 7, Status: models.DonationStatusPending}
	router := setupRouter(handler, 3)

	req, _ := http.NewRequest(http.MethodPost, "/donations/1/complete", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetFeedback(t *testing.T) {
	handler, service := setupTestHandler()
	service.donations[1] = &models.Donation{ID: 1, DonorID: 7, Status: models.DonationStatusCompleted}
	router := setupRouter(handler, 7)

	body, _ := json.Marshal(map[string]string{"feedback": "smooth process"})
	req, _ := http.NewRequest(http.MethodPut, "/donations/1/feedback", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "smooth process", service.donations[1].Feedback)
}
