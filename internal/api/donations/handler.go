// Package donations provides REST API handlers for the donation workflow.
package donations

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/api/middleware"
	"github.com/lifedrop/donorhub/internal/api/respond"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/service/donations"
	"github.com/lifedrop/donorhub/internal/service/rewards"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// DonationService interface for donation operations.
type DonationService interface {
	Submit(ctx context.Context, donorID uint, input donations.SubmitInput) (*donations.SubmitResult, error)
	Get(ctx context.Context, donationID uint) (*models.Donation, error)
	ListByDonor(ctx context.Context, donorID uint) ([]models.Donation, error)
	Approve(ctx context.Context, actorID, donationID uint) (*models.Donation, error)
	Reject(ctx context.Context, actorID, donationID uint) (*models.Donation, error)
	Cancel(ctx context.Context, actorID, donationID uint) (*models.Donation, error)
	Complete(ctx context.Context, actorID, donationID uint) (*models.Donation, *rewards.Outcome, error)
	SetFeedback(ctx context.Context, actorID, donationID uint, feedback string) error
}

// Handler handles donation API requests.
type Handler struct {
	donationService DonationService
	log             *logger.Logger
}

// NewHandler creates a new donation handler.
func NewHandler(donationService DonationService, log *logger.Logger) *Handler {
	return &Handler{donationService: donationService, log: log}
}

// Submit submits a new donation for the authenticated donor.
// POST /api/v1/donations.
func (h *Handler) Submit(c *gin.Context) {
	var input donations.SubmitInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.donationService.Submit(c.Request.Context(), middleware.CallerID(c), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	if !result.Accepted {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"accepted":           false,
			"next_eligible_date": result.NextEligibleDate,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"accepted": true,
		"donation": result.Donation,
	})
}

// Get returns a donation with its status history.
// GET /api/v1/donations/:id.
func (h *Handler) Get(c *gin.Context) {
	donationID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	donation, err := h.donationService.Get(c.Request.Context(), donationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": donation})
}

// ListMine returns the authenticated donor's donation history.
// GET /api/v1/me/donations.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.donationService.ListByDonor(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"donations":    list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// Approve moves a pending donation to approved.
// POST /api/v1/donations/:id/approve.
func (h *Handler) Approve(c *gin.Context) {
	h.transition(c, h.donationService.Approve)
}

// Reject moves a pending donation to rejected.
// POST /api/v1/donations/:id/reject.
func (h *Handler) Reject(c *gin.Context) {
	h.transition(c, h.donationService.Reject)
}

// Cancel moves a donation to cancelled.
// POST /api/v1/donations/:id/cancel.
func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.donationService.Cancel)
}

// Complete finalizes an approved donation and returns the reward outcome.
// POST /api/v1/donations/:id/complete.
func (h *Handler) Complete(c *gin.Context) {
	donationID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	donation, outcome, err := h.donationService.Complete(c.Request.Context(), middleware.CallerID(c), donationID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"donation": donation,
		"reward":   outcome,
	})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SetFeedback stores donor feedback on a donation.
// PUT /api/v1/donations/:id/feedback.
func (h *Handler) SetFeedback(c *gin.Context) {
	donationID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	if err := h.donationService.SetFeedback(c.Request.Context(), middleware.CallerID(c), donationID, req.Feedback); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation_id": donationID})
}

func (h *Handler) transition(c *gin.Context, op func(ctx context.Context, actorID, donationID uint) (*models.Donation, error)) {
	donationID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	donation, err := op(c.Request.Context(), middleware.CallerID(c), donationID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"donation": donation})
}

// parseID extracts and validates the donation ID from the URL parameter.
func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid donation ID: %s", idStr)
	}
	return uint(id), nil
}
