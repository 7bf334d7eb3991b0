// Package middleware provides gin middleware for authentication and role
// guards.
package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/service/auth"
)

// Context keys set by Authenticate.
const (
	ContextUserID  = "user_id"
	ContextIsAdmin = "is_admin"
)

// TokenVerifier validates a bearer token and returns its claims.
type TokenVerifier interface {
	VerifyToken(tokenString string) (*auth.Claims, error)
}

// Authenticate requires a valid bearer token and stores the caller's identity
// on the request context.
func Authenticate(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			abort(c, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := verifier.VerifyToken(token)
		if err != nil {
			abort(c, http.StatusUnauthorized, "invalid token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// Must run after Authenticate.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ContextIsAdmin) {
			abort(c, http.StatusForbidden, "admin role required")
			return
		}
		c.Next()
	}
}

// CallerID returns the authenticated user's ID from the request context.
func CallerID(c *gin.Context) uint {
	if v, ok := c.Get(ContextUserID); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
