// Package auth provides REST API handlers for registration and login.
package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/api/middleware"
	"github.com/lifedrop/donorhub/internal/api/respond"
	"github.com/lifedrop/donorhub/internal/models"
	authservice "github.com/lifedrop/donorhub/internal/service/auth"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// AuthService interface for identity operations.
type AuthService interface {
	Register(ctx context.Context, input authservice.RegisterInput) (*models.User, error)
	RegisterFederated(ctx context.Context, input authservice.RegisterInput) (*models.User, error)
	Login(ctx context.Context, email, password string) (*authservice.TokenPair, error)
	LoginFederated(ctx context.Context, provider, providerToken string) (*authservice.TokenPair, error)
}

// UserService interface for identity lookups.
type UserService interface {
	GetByID(id uint) (*models.User, error)
	Deactivate(id uint) error
}

// Handler handles auth API requests.
type Handler struct {
	authService AuthService
	userService UserService
	log         *logger.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(authService AuthService, userService UserService, log *logger.Logger) *Handler {
	return &Handler{
		authService: authService,
		userService: userService,
		log:         log,
	}
}

// Register creates a local identity.
// POST /api/v1/auth/register.
func (h *Handler) Register(c *gin.Context) {
	var input authservice.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.authService.Register(c.Request.Context(), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":         user,
		"generated_at": time.Now().UTC(),
	})
}

// RegisterFederated creates or resolves a provider-backed identity.
// POST /api/v1/auth/register/federated.
func (h *Handler) RegisterFederated(c *gin.Context) {
	var input authservice.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	user, err := h.authService.RegisterFederated(c.Request.Context(), input)
	if err != nil {
		respond.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":         user,
		"generated_at": time.Now().UTC(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a token.
// POST /api/v1/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	pair, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Always the same 401 regardless of which check failed.
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "invalid credentials",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      pair.Token,
		"expires_at": pair.ExpiresAt,
		"user":       pair.User,
	})
}

type federatedLoginRequest struct {
	Provider      string `json:"provider"`
	ProviderToken string `json:"provider_token"`
}

// LoginFederated verifies a provider token and issues a local token.
// POST /api/v1/auth/login/federated.
func (h *Handler) LoginFederated(c *gin.Context) {
	var req federatedLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.BadRequest(c, "invalid request body")
		return
	}

	pair, err := h.authService.LoginFederated(c.Request.Context(), req.Provider, req.ProviderToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":     "invalid credentials",
			"timestamp": time.Now().UTC(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      pair.Token,
		"expires_at": pair.ExpiresAt,
		"user":       pair.User,
	})
}

// Me returns the authenticated caller's identity record.
// GET /api/v1/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.userService.GetByID(middleware.CallerID(c))
	if err != nil {
		respond.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Deactivate disables the authenticated caller's account. Identity records are
// never deleted, only deactivated.
// DELETE /api/v1/me.
func (h *Handler) Deactivate(c *gin.Context) {
	userID := middleware.CallerID(c)
	if err := h.userService.Deactivate(userID); err != nil {
		respond.Error(c, err)
		return
	}

	h.log.Info().Uint("user_id", userID).Msg("Account deactivated")
	c.JSON(http.StatusOK, gin.H{
		"user_id":     userID,
		"deactivated": true,
	})
}
