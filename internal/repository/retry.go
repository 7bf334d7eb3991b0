package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/lifedrop/donorhub/internal/domain"
)

// Bounded retry for point reads hitting transient storage faults.
const (
	readAttempts = 3
	readBackoff  = 50 * time.Millisecond
)

// readWithRetry runs a read operation up to readAttempts times with a short
// linear backoff. Domain outcomes (missing rows, guard conflicts) and nil
// results pass through on the first attempt; only residual storage errors are
// retried, and after exhaustion the last one is classified as
// ErrStorageFailure.
func readWithRetry(op func() error) error {
	var err error
	for attempt := 1; attempt <= readAttempts; attempt++ {
		err = op()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt < readAttempts {
			time.Sleep(time.Duration(attempt) * readBackoff)
		}
	}
	return fmt.Errorf("read failed after %d attempts: %v: %w", readAttempts, err, domain.ErrStorageFailure)
}

// retryable reports whether an error looks like a transient storage fault
// rather than a definitive domain answer.
func retryable(err error) bool {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrDuplicateResponse):
		return false
	}
	return true
}
