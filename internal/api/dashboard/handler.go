// Package dashboard provides REST API handlers for the donor dashboard.
// It exposes endpoints for leaderboards, donor statistics and badges.
package dashboard

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/internal/service/leaderboard"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// BadgeRepository interface for badge operations.
type BadgeRepository interface {
	GetBadgeCatalog() ([]models.Badge, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetGlobalLeaderboard(ctx context.Context, limit int) ([]leaderboard.Entry, error)
	GetBloodTypeLeaderboard(ctx context.Context, bloodType domain.BloodType, limit int) ([]leaderboard.Entry, error)
	GetUserStats(ctx context.Context, userID uint) (*leaderboard.UserStats, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	badgeRepo          BadgeRepository
	leaderboardService LeaderboardService
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler.
func NewHandler(userRepo *repository.UserRepository, leaderboardService *leaderboard.Service, log *logger.Logger) *Handler {
	return &Handler{
		badgeRepo:          userRepo,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(badgeRepo BadgeRepository, leaderboardService LeaderboardService, log *logger.Logger) *Handler {
	return &Handler{
		badgeRepo:          badgeRepo,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// GetGlobalLeaderboard returns the global donor leaderboard.
// GET /api/v1/leaderboard?limit=10.
func (h *Handler) GetGlobalLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.GetGlobalLeaderboard(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get global leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	h.log.Info().
		Int("limit", limit).
		Int("entries", len(entries)).
		Msg("Retrieved global leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetBloodTypeLeaderboard returns the leaderboard for one blood type.
// GET /api/v1/leaderboard/:bloodType?limit=10.
func (h *Handler) GetBloodTypeLeaderboard(c *gin.Context) {
	bloodType := domain.BloodType(c.Param("bloodType"))
	if !bloodType.IsValid() {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("unknown blood type %q", bloodType))
		return
	}

	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.GetBloodTypeLeaderboard(c.Request.Context(), bloodType, limit)
	if err != nil {
		h.log.Error().Err(err).Str("blood_type", string(bloodType)).Msg("Failed to get blood type leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	h.log.Info().
		Str("blood_type", string(bloodType)).
		Int("limit", limit).
		Int("entries", len(entries)).
		Msg("Retrieved blood type leaderboard")

	c.JSON(http.StatusOK, gin.H{
		"blood_type":    bloodType,
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// GetUserStats returns statistics for a specific donor.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.leaderboardService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user stats")
		h.errorResponse(c, http.StatusNotFound, "User not found")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Msg("Retrieved user stats")

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserBadges returns badges earned by a specific donor.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userBadges, err := h.badgeRepo.GetUserBadges(userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges")
		return
	}

	h.log.Info().
		Uint("user_id", userID).
		Int("badge_count", len(userBadges)).
		Msg("Retrieved user badges")

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"badges":       userBadges,
		"total_badges": len(userBadges),
		"generated_at": time.Now().UTC(),
	})
}

// GetBadgeCatalog returns all available badges.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalogBadges, err := h.badgeRepo.GetBadgeCatalog()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalogBadges,
		"total_badges": len(catalogBadges),
		"generated_at": time.Now().UTC(),
	})
}

// Helper functions

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}

	return limit, nil
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
