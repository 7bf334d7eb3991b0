// Package bloodbanks provides REST API handlers for blood-bank records and
// their inventory.
package bloodbanks

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/api/respond"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/service/matching"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// BankRepository interface for blood-bank storage operations.
type BankRepository interface {
	Create(bank *models.BloodBank) error
	GetByID(id uint) (*models.BloodBank, error)
	Update(bank *models.BloodBank) error
	ListActive() ([]models.BloodBank, error)
	AdjustInventory(bankID uint, bloodType domain.BloodType, delta int) error
	GetInventory(bankID uint) ([]models.BloodInventory, error)
}

// Matcher finds banks stocking compatible blood near a location.
type Matcher interface {
	FindBanks(ctx context.Context, bloodType domain.BloodType, lon, lat float64, urgency string) ([]matching.BankCandidate, error)
}

// Handler handles blood-bank API requests.
type Handler struct {
	bankRepo BankRepository
	matcher  Matcher
	log      *logger.Logger
}

// NewHandler creates a new blood-bank handler.
func NewHandler(bankRepo BankRepository, matcher Matcher, log *logger.Logger) *Handler {
	return &Handler{bankRepo: bankRepo, matcher: matcher, log: log}
}

type bankRequest struct {
	Name      string  `json:"name"`
	LicenseID string  `json:"license_id"`
	Address   string  `json:"address"`
	Phone     string  `json:"phone"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Create registers a blood bank. Admin only.
// POST /api/v1/bloodbanks.
func (h *Handler) Create(c *gin.Context) {
	var req bankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}
	if req.Name == "" || req.LicenseID == "" {
		respond.BadRequest(c, "name and license_id are required")
		return
	}
	if !matching.ValidCoordinates(req.Longitude, req.Latitude) {
		respond.BadRequest(c, "coordinates out of range")
		return
	}

	bank := &models.BloodBank{
		Name:      req.Name,
		LicenseID: req.LicenseID,
		Address:   req.Address,
		Phone:     req.Phone,
		Longitude: req.Longitude,
		Latitude:  req.Latitude,
		IsActive:  true,
	}
	if err := h.bankRepo.Create(bank); err != nil {
		respond.Error(c, err)
		return
	}

	h.log.Info().Uint("blood_bank_id", bank.ID).Str("name", bank.Name).Msg("Blood bank registered")
	c.JSON(http.StatusCreated, gin.H{"bank": bank})
}

// Get returns a blood bank.
// GET /api/v1/bloodbanks/:id.
func (h *Handler) Get(c *gin.Context) {
	bankID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	bank, err := h.bankRepo.GetByID(bankID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank": bank})
}

// List returns all active blood banks.
// GET /api/v1/bloodbanks.
func (h *Handler) List(c *gin.Context) {
	banks, err := h.bankRepo.ListActive()
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"banks":        banks,
		"total":        len(banks),
		"generated_at": time.Now().UTC(),
	})
}

// Update modifies a blood bank record. Admin only.
// PUT /api/v1/bloodbanks/:id.
func (h *Handler) Update(c *gin.Context) {
	bankID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	bank, err := h.bankRepo.GetByID(bankID)
	if err != nil {
		respond.Error(c, err)
		return
	}

	var req bankRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	if req.Name != "" {
		bank.Name = req.Name
	}
	if req.Address != "" {
		bank.Address = req.Address
	}
	if req.Phone != "" {
		bank.Phone = req.Phone
	}
	if req.Longitude != 0 || req.Latitude != 0 {
		if !matching.ValidCoordinates(req.Longitude, req.Latitude) {
			respond.BadRequest(c, "coordinates out of range")
			return
		}
		bank.Longitude = req.Longitude
		bank.Latitude = req.Latitude
	}

	if err := h.bankRepo.Update(bank); err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank": bank})
}

// GetInventory returns a bank's per-blood-type unit counts.
// GET /api/v1/bloodbanks/:id/inventory.
func (h *Handler) GetInventory(c *gin.Context) {
	bankID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	if _, err := h.bankRepo.GetByID(bankID); err != nil {
		respond.Error(c, err)
		return
	}
	inventory, err := h.bankRepo.GetInventory(bankID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blood_bank_id": bankID,
		"inventory":     inventory,
		"generated_at":  time.Now().UTC(),
	})
}

type inventoryAdjustment struct {
	BloodType domain.BloodType `json:"blood_type"`
	Delta     int              `json:"delta"`
}

// AdjustInventory applies a manual inventory correction. Admin only. The
// adjustment is atomic; a decrement below zero is refused.
// POST /api/v1/bloodbanks/:id/inventory.
func (h *Handler) AdjustInventory(c *gin.Context) {
	bankID, err := parseID(c)
	if err != nil {
		respond.BadRequest(c, err.Error())
		return
	}

	var req inventoryAdjustment
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}
	if !req.BloodType.IsValid() {
		respond.BadRequest(c, fmt.Sprintf("unknown blood type %q", req.BloodType))
		return
	}
	if req.Delta == 0 {
		respond.BadRequest(c, "delta must be non-zero")
		return
	}

	if err := h.bankRepo.AdjustInventory(bankID, req.BloodType, req.Delta); err != nil {
		respond.Error(c, err)
		return
	}

	h.log.Info().
		Uint("blood_bank_id", bankID).
		Str("blood_type", string(req.BloodType)).
		Int("delta", req.Delta).
		Msg("Inventory adjusted")

	inventory, err := h.bankRepo.GetInventory(bankID)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"blood_bank_id": bankID,
		"inventory":     inventory,
	})
}

// FindNearby returns banks stocking compatible blood near a location.
// GET /api/v1/bloodbanks/nearby?blood_type=A%2B&lon=..&lat=..&urgency=normal.
func (h *Handler) FindNearby(c *gin.Context) {
	bloodType := domain.BloodType(c.Query("blood_type"))
	urgency := c.DefaultQuery("urgency", models.UrgencyNormal)

	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		respond.BadRequest(c, "lon parameter is required")
		return
	}
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		respond.BadRequest(c, "lat parameter is required")
		return
	}

	candidates, err := h.matcher.FindBanks(c.Request.Context(), bloodType, lon, lat, urgency)
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"banks":        candidates,
		"total":        len(candidates),
		"generated_at": time.Now().UTC(),
	})
}

// parseID extracts and validates the bank ID from the URL parameter.
func parseID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid blood bank ID: %s", idStr)
	}
	return uint(id), nil
}
