// Package api assembles the HTTP routing surface: public auth routes,
// authenticated donor routes and admin-only routes.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	authapi "github.com/lifedrop/donorhub/internal/api/auth"
	bloodbanksapi "github.com/lifedrop/donorhub/internal/api/bloodbanks"
	dashboardapi "github.com/lifedrop/donorhub/internal/api/dashboard"
	donationsapi "github.com/lifedrop/donorhub/internal/api/donations"
	"github.com/lifedrop/donorhub/internal/api/middleware"
	requestsapi "github.com/lifedrop/donorhub/internal/api/requests"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// Handlers bundles the per-resource handlers the router mounts.
type Handlers struct {
	Auth       *authapi.Handler
	Donations  *donationsapi.Handler
	Requests   *requestsapi.Handler
	BloodBanks *bloodbanksapi.Handler
	Dashboard  *dashboardapi.Handler
}

// HealthChecker reports the liveness of a backing dependency.
type HealthChecker func() error

// NewRouter builds the gin engine with all routes mounted. The dependency
// health checks back the /health endpoint.
func NewRouter(environment string, verifier middleware.TokenVerifier, h Handlers, checks map[string]HealthChecker, log *logger.Logger) *gin.Engine {
	if environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	router.GET("/health", healthHandler(checks))

	v1 := router.Group("/api/v1")

	// Public identity routes.
	v1.POST("/auth/register", h.Auth.Register)
	v1.POST("/auth/register/federated", h.Auth.RegisterFederated)
	v1.POST("/auth/login", h.Auth.Login)
	v1.POST("/auth/login/federated", h.Auth.LoginFederated)

	authed := v1.Group("")
	authed.Use(middleware.Authenticate(verifier))
	{
		authed.GET("/me", h.Auth.Me)
		authed.DELETE("/me", h.Auth.Deactivate)
		authed.GET("/me/donations", h.Donations.ListMine)
		authed.GET("/me/requests", h.Requests.ListMine)

		authed.POST("/donations", h.Donations.Submit)
		authed.GET("/donations/:id", h.Donations.Get)
		authed.POST("/donations/:id/cancel", h.Donations.Cancel)
		authed.PUT("/donations/:id/feedback", h.Donations.SetFeedback)

		authed.POST("/requests", h.Requests.Create)
		authed.GET("/requests", h.Requests.ListOpen)
		authed.GET("/requests/:id", h.Requests.Get)
		authed.POST("/requests/:id/respond", h.Requests.Respond)
		authed.PUT("/requests/:id/status", h.Requests.Transition)
		authed.PUT("/requests/:id/responses/:donorId/status", h.Requests.TransitionResponse)
		authed.PUT("/requests/:id/feedback", h.Requests.SetFeedback)

		authed.GET("/bloodbanks", h.BloodBanks.List)
		authed.GET("/bloodbanks/nearby", h.BloodBanks.FindNearby)
		authed.GET("/bloodbanks/:id", h.BloodBanks.Get)
		authed.GET("/bloodbanks/:id/inventory", h.BloodBanks.GetInventory)

		authed.GET("/leaderboard", h.Dashboard.GetGlobalLeaderboard)
		authed.GET("/leaderboard/:bloodType", h.Dashboard.GetBloodTypeLeaderboard)
		authed.GET("/users/:id/stats", h.Dashboard.GetUserStats)
		authed.GET("/users/:id/badges", h.Dashboard.GetUserBadges)
		authed.GET("/badges", h.Dashboard.GetBadgeCatalog)
	}

	admin := authed.Group("")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/donations/:id/approve", h.Donations.Approve)
		admin.POST("/donations/:id/reject", h.Donations.Reject)
		admin.POST("/donations/:id/complete", h.Donations.Complete)

		admin.POST("/bloodbanks", h.BloodBanks.Create)
		admin.PUT("/bloodbanks/:id", h.BloodBanks.Update)
		admin.POST("/bloodbanks/:id/inventory", h.BloodBanks.AdjustInventory)
	}

	return router
}

// healthHandler runs every dependency check and reports 503 when any fails.
func healthHandler(checks map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		deps := gin.H{}
		for name, check := range checks {
			if err := check(); err != nil {
				status = http.StatusServiceUnavailable
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}
		c.JSON(status, gin.H{
			"status":       httpStatusWord(status),
			"dependencies": deps,
			"generated_at": time.Now().UTC(),
		})
	}
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}

// requestLogger logs one structured line per request.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}
