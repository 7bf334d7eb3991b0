// Package requests provides REST API handlers for the blood-request
// lifecycle.
package requests

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
	"github.com/lifedrop/donorhub/internal/service/requests"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// RequestService interface for blood-request operations.
type RequestService interface {
	Create(ctx context.Context, requesterID uint, input requests.CreateInput) (*requests.CreateResult, error)
	Get(ctx context.Context, requestID uint) (*models.BloodRequest, error)
	ListMine(ctx context.Context, requesterID uint) ([]models.BloodRequest, error)
	ListOpen(ctx context.Context) ([]models.BloodRequest, error)
	Transition(ctx context.Context, actorID, requestID uint, toStatus string) (*models.BloodRequest, error)
	Respond(ctx context.Context, donorID, requestID uint) (*models.BloodRequest, error)
	TransitionResponse(ctx context.Context, actorID, requestID, donorID uint, toStatus string) (*models.DonorResponse, error)
	SetFeedback(ctx context.Context, actorID, requestID uint, feedback string) error
}

// Handler handles blood-request API requests.
type Handler struct {
	requestService RequestService
	log            *logger.Logger
}

// NewHandler creates a new request handler.
func NewHandler(requestService RequestService, log *logger.Logger) *Handler {
	return &Handler{requestService: requestService, log: log}
}

// Create creates a blood request and returns the matched donor candidates.
// POST /api/v1/requests.
func (h *Handler) Create(c *gin.Context) {
	var input requests.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), middleware.CallerID(c), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"request":          result.Request,
		"candidate_donors": result.Candidates,
	})
}

// Get returns a blood request with its donor responses.
// GET /api/v1/requests/:id.
func (h *Handler) Get(c *gin.Context) {
	requestID, err := parseID(c, "id")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	request, err := h.requestService.Get(c.Request.Context(), requestID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": request})
}

// ListMine returns the caller's blood requests.
// GET /api/v1/me/requests.
func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.requestService.ListMine(c.Request.Context(), middleware.CallerID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests":     list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// ListOpen returns pending and in-progress requests.
// GET /api/v1/requests.
func (h *Handler) ListOpen(c *gin.Context) {
	list, err := h.requestService.ListOpen(c.Request.Context())
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"requests":     list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// Respond adds the authenticated donor to the request's response list.
// POST /api/v1/requests/:id/respond.
func (h *Handler) Respond(c *gin.Context) {
	requestID, err := parseID(c, "id")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	request, err := h.requestService.Respond(c.Request.Context(), middleware.CallerID(c), requestID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": request})
}

type statusRequest struct {
	Status string `json:"status"`
}

// Transition changes the top-level request status.
// PUT /api/v1/requests/:id/status.
func (h *Handler) Transition(c *gin.Context) {
	requestID, err := parseID(c, "id")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respond.BadRequest(c, "status is required")
		return
	}

	request, err := h.requestService.Transition(c.Request.Context(), middleware.CallerID(c), requestID, req.Status)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request": request})
}

// TransitionResponse changes a donor-response sub-record's status.
// PUT /api/v1/requests/:id/responses/:donorId/status.
func (h *Handler) TransitionResponse(c *gin.Context) {
	requestID, err := parseID(c, "id")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}
	donorID, err := parseID(c, "donorId")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		respond.BadRequest(c, "status is required")
		return
	}

	response, err := h.requestService.TransitionResponse(c.Request.Context(), middleware.CallerID(c), requestID, donorID, req.Status)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"response": response})
}

type feedbackRequest struct {
	Feedback string `json:"feedback"`
}

// SetFeedback stores requester feedback.
// PUT /api/v1/requests/:id/feedback.
func (h *Handler) SetFeedback(c *gin.Context) {
	requestID, err := parseID(c, "id")
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	if err := h.requestService.SetFeedback(c.Request.Context(), middleware.CallerID(c), requestID, req.Feedback); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"request_id": requestID})
}

// parseID extracts and validates a numeric URL parameter.
func parseID(c *gin.Context, name string) (uint, error) {
	idStr := c.Param(name)
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter: %s", name, idStr)
	}
	return uint(id), nil
}
