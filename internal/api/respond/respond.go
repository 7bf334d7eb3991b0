// Package respond maps domain errors onto HTTP responses so every handler
// classifies failures the same way.
package respond

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lifedrop/donorhub/internal/domain"
)

// StatusFromError maps a domain error to an HTTP status code. Unclassified
// errors are treated as storage faults.
func StatusFromError(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateResponse), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrIneligibleDonor):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error sends a classified error response. Internal errors hide the cause
// from the client.
func Error(c *gin.Context, err error) {
	status := StatusFromError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	c.JSON(status, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

// BadRequest sends a 400 with a caller-supplied message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
