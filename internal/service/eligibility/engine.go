// Package eligibility implements the donation eligibility engine: whether a
// donor may donate on a proposed date, and when they become eligible next.
package eligibility

import (
	"context"
	"fmt"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// DonationRepository is the slice of the donation store the engine needs.
type DonationRepository interface {
	HasAcceptedDonationInWindow(donorID uint, from, to time.Time) (bool, error)
}

// Result is the outcome of an eligibility check. Ineligibility is an expected
// business outcome, not an error: the caller branches on Eligible.
type Result struct {
	Eligible         bool       `json:"eligible"`
	NextEligibleDate *time.Time `json:"next_eligible_date,omitempty"`
}

// Engine computes donation eligibility from donation history.
type Engine struct {
	donationRepo DonationRepository
	windowDays   int
	log          *logger.Logger
}

// NewEngine creates an eligibility engine with the given ineligibility window
// in days.
func NewEngine(donationRepo DonationRepository, windowDays int, log *logger.Logger) *Engine {
	return &Engine{
		donationRepo: donationRepo,
		windowDays:   windowDays,
		log:          log,
	}
}

// Check reports whether the donor may donate on proposedDate. A donor is
// eligible iff no accepted prior donation is dated within the windowDays
// preceding proposedDate, or this is their first donation. A proposedDate
// after now is invalid input, distinct from ineligibility.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (e *Engine) Check(ctx context.Context, donor *models.User, proposedDate, now time.Time) (Result, error) {
	if proposedDate.After(now) {
		return Result{}, fmt.Errorf("donation date %s is in the future: %w",
			proposedDate.Format(time.RFC3339), domain.ErrInvalidInput)
	}

	windowStart := proposedDate.AddDate(0, 0, -e.windowDays)
	inWindow, err := e.donationRepo.HasAcceptedDonationInWindow(donor.ID, windowStart, proposedDate)
	if err != nil {
		return Result{}, fmt.Errorf("eligibility lookup for donor %d: %w", donor.ID, err)
	}

	// The identity record's lastDonationDate is the authoritative source for
	// the next-eligible computation; the history query above catches accepted
	// donations not yet folded into progression state.
	if !inWindow && donor.LastDonationDate != nil {
		inWindow = dateInWindow(*donor.LastDonationDate, windowStart, proposedDate)
	}

	if !inWindow {
		return Result{Eligible: true, NextEligibleDate: donor.NextEligibleDate}, nil
	}

	next := NextEligibleDate(donor, proposedDate, e.windowDays)
	e.log.Debug().
		Uint("donor_id", donor.ID).
		Time("proposed_date", proposedDate).
		Time("next_eligible", next).
		Msg("Donor inside eligibility window")

	return Result{Eligible: false, NextEligibleDate: &next}, nil
}

// NextEligibleDate computes when the donor becomes eligible again. When the
// identity record carries a last donation date the result is that date plus
// the window; otherwise it falls back to the proposed date plus the window.
func NextEligibleDate(donor *models.User, proposedDate time.Time, windowDays int) time.Time {
	if donor.LastDonationDate != nil {
		return donor.LastDonationDate.AddDate(0, 0, windowDays)
	}
	return proposedDate.AddDate(0, 0, windowDays)
}

// dateInWindow reports whether d falls in [from, to).
func dateInWindow(d, from, to time.Time) bool {
	return !d.Before(from) && d.Before(to)
}
