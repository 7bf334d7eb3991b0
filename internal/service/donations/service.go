// Package donations orchestrates the donation workflow: submission through
// the eligibility gate, the approval state machine, and the completion side
// effects (reward progression, inventory credit).
package donations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	prommetrics "github.com/lifedrop/donorhub/internal/metrics"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/internal/service/eligibility"
	"github.com/lifedrop/donorhub/internal/service/rewards"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// UserRepository is the slice of the user store the service needs.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// DonationRepository is the slice of the donation store the service needs.
type DonationRepository interface {
	Create(donation *models.Donation) error
	GetByID(id uint) (*models.Donation, error)
	UpdateStatus(donationID uint, fromStatus, toStatus string, changedBy uint) error
	SetFeedback(donationID uint, feedback string) error
	ListByDonor(donorID uint) ([]models.Donation, error)
}

// BloodBankRepository is the slice of the blood-bank store the service needs.
type BloodBankRepository interface {
	GetByID(id uint) (*models.BloodBank, error)
	AdjustInventory(bankID uint, bloodType domain.BloodType, delta int) error
}

// EligibilityChecker gates donation submissions.
type EligibilityChecker interface {
	Check(ctx context.Context, donor *models.User, proposedDate, now time.Time) (eligibility.Result, error)
}

// Rewarder folds a completed donation into the donor's progression.
type Rewarder interface {
	ApplyDonation(ctx context.Context, donorID, donationID uint, donationDate time.Time) (*models.User, *rewards.Outcome, error)
}

// LeaderboardInvalidator drops cached rankings after reward points move.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context) error
}

// SubmitInput is the canonical validated input for a donation submission.
type SubmitInput struct {
	BloodBankID  uint             `json:"blood_bank_id"`
	BloodType    domain.BloodType `json:"blood_type"`
	Units        int              `json:"units"`
	DonationDate time.Time        `json:"donation_date"`

	Hemoglobin    float64 `json:"hemoglobin,omitempty"`
	PulseRate     int     `json:"pulse_rate,omitempty"`
	BloodPressure string  `json:"blood_pressure,omitempty"`
	WeightKg      float64 `json:"weight_kg,omitempty"`
	HealthNotes   string  `json:"health_notes,omitempty"`
}

// SubmitResult is the outcome of a donation submission. An ineligible donor
// is a normal business outcome: Accepted is false, NextEligibleDate says when
// they may try again, and no donation record is created.
type SubmitResult struct {
	Accepted         bool             `json:"accepted"`
	Donation         *models.Donation `json:"donation,omitempty"`
	NextEligibleDate *time.Time       `json:"next_eligible_date,omitempty"`
}

// donationTransitions is the approval state machine. Completed, rejected and
// cancelled are terminal.
var donationTransitions = map[string][]string{
	models.DonationStatusPending:  {models.DonationStatusApproved, models.DonationStatusRejected, models.DonationStatusCancelled},
	models.DonationStatusApproved: {models.DonationStatusCompleted, models.DonationStatusCancelled},
}

// Service orchestrates the donation workflow.
type Service struct {
	userRepo     UserRepository
	donationRepo DonationRepository
	bankRepo     BloodBankRepository
	checker      EligibilityChecker
	rewarder     Rewarder
	invalidator  LeaderboardInvalidator
	log          *logger.Logger
}

// NewService creates a donation service with concrete collaborators.
func NewService(
	userRepo *repository.UserRepository,
	donationRepo *repository.DonationRepository,
	bankRepo *repository.BloodBankRepository,
	checker *eligibility.Engine,
	rewarder *rewards.Service,
	invalidator LeaderboardInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:     userRepo,
		donationRepo: donationRepo,
		bankRepo:     bankRepo,
		checker:      checker,
		rewarder:     rewarder,
		invalidator:  invalidator,
		log:          log,
	}
}

// NewServiceWithInterfaces creates a donation service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	donationRepo DonationRepository,
	bankRepo BloodBankRepository,
	checker EligibilityChecker,
	rewarder Rewarder,
	invalidator LeaderboardInvalidator,
	log *logger.Logger,
) *Service {
	return &Service{
		userRepo:     userRepo,
		donationRepo: donationRepo,
		bankRepo:     bankRepo,
		checker:      checker,
		rewarder:     rewarder,
		invalidator:  invalidator,
		log:          log,
	}
}

// Submit runs a donation submission through validation and the eligibility
// gate. An eligible submission creates a pending donation record; an
// ineligible one returns Accepted=false with the computed next eligible date
// and writes nothing.
func (s *Service) Submit(ctx context.Context, donorID uint, input SubmitInput) (*SubmitResult, error) {
	if err := validateSubmitInput(input, time.Now()); err != nil {
		prommetrics.RecordDonationSubmitted("invalid")
		return nil, err
	}

	donor, err := s.userRepo.GetByID(donorID)
	if err != nil {
		return nil, err
	}
	if !donor.IsDonor || !donor.IsActive {
		return nil, fmt.Errorf("user %d is not an active donor: %w", donorID, domain.ErrUnauthorized)
	}

	bank, err := s.bankRepo.GetByID(input.BloodBankID)
	if err != nil {
		return nil, err
	}
	if !bank.IsActive {
		return nil, fmt.Errorf("blood bank %d is inactive: %w", bank.ID, domain.ErrInvalidInput)
	}

	check, err := s.checker.Check(ctx, donor, input.DonationDate, time.Now())
	if err != nil {
		return nil, err
	}
	if !check.Eligible {
		prommetrics.RecordDonationSubmitted("ineligible")
		s.log.Info().
			Uint("donor_id", donorID).
			Time("donation_date", input.DonationDate).
			Msg("Donation refused, donor inside eligibility window")
		return &SubmitResult{Accepted: false, NextEligibleDate: check.NextEligibleDate}, nil
	}

	donation := &models.Donation{
		DonorID:       donorID,
		BloodBankID:   input.BloodBankID,
		BloodType:     input.BloodType,
		Units:         input.Units,
		DonationDate:  input.DonationDate,
		Status:        models.DonationStatusPending,
		Hemoglobin:    input.Hemoglobin,
		PulseRate:     input.PulseRate,
		BloodPressure: input.BloodPressure,
		WeightKg:      input.WeightKg,
		HealthNotes:   strings.TrimSpace(input.HealthNotes),
	}
	if err := s.donationRepo.Create(donation); err != nil {
		return nil, err
	}
	prommetrics.RecordDonationSubmitted("accepted")

	s.log.Info().
		Uint("donation_id", donation.ID).
		Uint("donor_id", donorID).
		Str("blood_type", string(donation.BloodType)).
		Int("units", donation.Units).
		Msg("Donation submitted")

	return &SubmitResult{Accepted: true, Donation: donation}, nil
}

// Get retrieves a donation with its status history.
func (s *Service) Get(ctx context.Context, donationID uint) (*models.Donation, error) {
	return s.donationRepo.GetByID(donationID)
}

// ListByDonor retrieves a donor's donation history, newest first.
func (s *Service) ListByDonor(ctx context.Context, donorID uint) ([]models.Donation, error) {
	return s.donationRepo.ListByDonor(donorID)
}

// Approve moves a pending donation to approved. Admin only. The eligibility
// window is re-checked here: another donation by the same donor may have been
// accepted since this one was submitted.
func (s *Service) Approve(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, err
	}
	donor, err := s.userRepo.GetByID(donation.DonorID)
	if err != nil {
		return nil, err
	}
	check, err := s.checker.Check(ctx, donor, donation.DonationDate, time.Now())
	if err != nil {
		return nil, err
	}
	if !check.Eligible {
		return nil, fmt.Errorf("donor %d is inside the eligibility window: %w",
			donation.DonorID, domain.ErrIneligibleDonor)
	}
	return s.transition(ctx, actorID, donationID, models.DonationStatusApproved)
}

// Reject moves a pending donation to rejected. Admin only.
func (s *Service) Reject(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	return s.transition(ctx, actorID, donationID, models.DonationStatusRejected)
}

// Cancel moves a pending or approved donation to cancelled. The donor may
// cancel their own donation; admins may cancel any.
func (s *Service) Cancel(ctx context.Context, actorID, donationID uint) (*models.Donation, error) {
	return s.transition(ctx, actorID, donationID, models.DonationStatusCancelled)
}

// Complete finalizes an approved donation: the status flips to completed,
// the donor's progression is updated through the rewards engine and the
// blood bank's inventory is credited with the donated units.
func (s *Service) Complete(ctx context.Context, actorID, donationID uint) (*models.Donation, *rewards.Outcome, error) {
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin {
		return nil, nil, fmt.Errorf("user %d may not complete donations: %w", actorID, domain.ErrUnauthorized)
	}

	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, nil, err
	}
	if !legalTransition(donation.Status, models.DonationStatusCompleted) {
		return nil, nil, fmt.Errorf("donation %d cannot move from %s to completed: %w",
			donationID, donation.Status, domain.ErrConflict)
	}

	// The guarded status write is the linearization point: concurrent
	// completions race here and exactly one wins.
	if err := s.donationRepo.UpdateStatus(donationID, donation.Status, models.DonationStatusCompleted, actorID); err != nil {
		return nil, nil, err
	}
	prommetrics.RecordDonationCompleted(string(donation.BloodType))

	_, outcome, err := s.rewarder.ApplyDonation(ctx, donation.DonorID, donationID, donation.DonationDate)
	if err != nil {
		return nil, nil, fmt.Errorf("donation %d completed but progression failed: %w", donationID, err)
	}

	if err := s.bankRepo.AdjustInventory(donation.BloodBankID, donation.BloodType, donation.Units); err != nil {
		// The completed donation stands even when the inventory credit fails.
		s.log.Error().Err(err).
			Uint("donation_id", donationID).
			Uint("blood_bank_id", donation.BloodBankID).
			Msg("Failed to credit inventory for completed donation")
	}

	// Reward points just moved, so cached rankings are stale. A failed
	// invalidation only extends staleness until the TTL expires.
	if s.invalidator != nil {
		if err := s.invalidator.Invalidate(ctx); err != nil {
			s.log.Warn().Err(err).Uint("donation_id", donationID).Msg("Failed to invalidate leaderboard cache")
		}
	}

	s.log.Info().
		Uint("donation_id", donationID).
		Uint("donor_id", donation.DonorID).
		Int("points_awarded", outcome.PointsAwarded).
		Msg("Donation completed")

	updated, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, nil, err
	}
	return updated, outcome, nil
}

// SetFeedback stores donor feedback. Completed donations are immutable except
// for feedback.
func (s *Service) SetFeedback(ctx context.Context, actorID, donationID uint, feedback string) error {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return err
	}
	if actorID != donation.DonorID {
		actor, err := s.userRepo.GetByID(actorID)
		if err != nil {
			return err
		}
		if !actor.IsAdmin {
			return fmt.Errorf("user %d may not comment on donation %d: %w", actorID, donationID, domain.ErrUnauthorized)
		}
	}
	return s.donationRepo.SetFeedback(donationID, strings.TrimSpace(feedback))
}

func (s *Service) transition(ctx context.Context, actorID, donationID uint, toStatus string) (*models.Donation, error) {
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		return nil, err
	}

	// Donors may cancel their own records; everything else is admin work.
	if !(toStatus == models.DonationStatusCancelled && actorID == donation.DonorID) {
		actor, err := s.userRepo.GetByID(actorID)
		if err != nil {
			return nil, err
		}
		if !actor.IsAdmin {
			return nil, fmt.Errorf("user %d may not transition donation %d: %w", actorID, donationID, domain.ErrUnauthorized)
		}
	}

	if !legalTransition(donation.Status, toStatus) {
		return nil, fmt.Errorf("donation %d cannot move from %s to %s: %w",
			donationID, donation.Status, toStatus, domain.ErrConflict)
	}
	if err := s.donationRepo.UpdateStatus(donationID, donation.Status, toStatus, actorID); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("donation_id", donationID).
		Uint("actor_id", actorID).
		Str("from", donation.Status).
		Str("to", toStatus).
		Msg("Donation status changed")

	return s.donationRepo.GetByID(donationID)
}

func validateSubmitInput(input SubmitInput, now time.Time) error {
	if input.BloodBankID == 0 {
		return fmt.Errorf("blood bank is required: %w", domain.ErrInvalidInput)
	}
	if !input.BloodType.IsValid() {
		return fmt.Errorf("unknown blood type %q: %w", input.BloodType, domain.ErrInvalidInput)
	}
	if input.Units < models.MinDonationUnits || input.Units > models.MaxDonationUnits {
		return fmt.Errorf("units must be between %d and %d: %w",
			models.MinDonationUnits, models.MaxDonationUnits, domain.ErrInvalidInput)
	}
	if input.DonationDate.IsZero() {
		return fmt.Errorf("donation date is required: %w", domain.ErrInvalidInput)
	}
	if input.DonationDate.After(now) {
		return fmt.Errorf("donation date must not be in the future: %w", domain.ErrInvalidInput)
	}
	return nil
}

func legalTransition(from, to string) bool {
	for _, allowed := range donationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
