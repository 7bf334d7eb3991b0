// Package requests implements the blood-request lifecycle: creation with
// candidate matching, the top-level status state machine, and the per-donor
// response sub-records.
package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	prommetrics "github.com/lifedrop/donorhub/internal/metrics"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/internal/service/matching"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// RequestRepository is the slice of the request store the service needs.
type RequestRepository interface {
	Create(request *models.BloodRequest) error
	GetByID(id uint) (*models.BloodRequest, error)
	UpdateStatus(requestID uint, fromStatus, toStatus string) error
	SetFeedback(requestID uint, feedback string) error
	AddResponse(requestID, donorID uint) (*models.DonorResponse, error)
	UpdateResponseStatus(requestID, donorID uint, fromStatus, toStatus string) error
	GetResponse(requestID, donorID uint) (*models.DonorResponse, error)
	ListByRequester(requesterID uint) ([]models.BloodRequest, error)
	ListOpen() ([]models.BloodRequest, error)
}

// UserRepository is the slice of the user store the service needs.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
}

// Matcher finds candidate donors for a new request.
type Matcher interface {
	FindCandidates(ctx context.Context, bloodType domain.BloodType, lon, lat float64, urgency string) ([]matching.DonorCandidate, error)
}

// CreateInput is the canonical validated input for request creation.
type CreateInput struct {
	PatientName string           `json:"patient_name"`
	BloodType   domain.BloodType `json:"blood_type"`
	UnitsNeeded int              `json:"units_needed"`
	Urgency     string           `json:"urgency"`
	Hospital    string           `json:"hospital"`
	RequiredBy  time.Time        `json:"required_by"`
	Longitude   float64          `json:"longitude"`
	Latitude    float64          `json:"latitude"`
}

// CreateResult pairs the persisted request with its matched donor candidates.
type CreateResult struct {
	Request    *models.BloodRequest      `json:"request"`
	Candidates []matching.DonorCandidate `json:"candidate_donors"`
}

// requestTransitions is the top-level state machine. Fulfilled and cancelled
// are terminal.
var requestTransitions = map[string][]string{
	models.RequestStatusPending:    {models.RequestStatusInProgress, models.RequestStatusCancelled},
	models.RequestStatusInProgress: {models.RequestStatusFulfilled, models.RequestStatusCancelled},
}

// responseTransitions is the per-donor sub-state machine.
var responseTransitions = map[string][]string{
	models.ResponseStatusPending:  {models.ResponseStatusAccepted, models.ResponseStatusCancelled},
	models.ResponseStatusAccepted: {models.ResponseStatusCompleted, models.ResponseStatusCancelled},
}

// Service orchestrates blood-request operations.
type Service struct {
	requestRepo RequestRepository
	userRepo    UserRepository
	matcher     Matcher
	log         *logger.Logger
}

// NewService creates a request service with concrete repositories.
func NewService(
	requestRepo *repository.RequestRepository,
	userRepo *repository.UserRepository,
	matcher *matching.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		matcher:     matcher,
		log:         log,
	}
}

// NewServiceWithInterfaces creates a request service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(requestRepo RequestRepository, userRepo UserRepository, matcher Matcher, log *logger.Logger) *Service {
	return &Service{
		requestRepo: requestRepo,
		userRepo:    userRepo,
		matcher:     matcher,
		log:         log,
	}
}

// Create validates and persists a new blood request and returns it together
// with the matched donor candidates. Matching is read-only: a matching
// failure does not fail the creation.
func (s *Service) Create(ctx context.Context, requesterID uint, input CreateInput) (*CreateResult, error) {
	if err := validateCreateInput(input, time.Now()); err != nil {
		return nil, err
	}

	requester, err := s.userRepo.GetByID(requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.IsActive {
		return nil, fmt.Errorf("requester %d is deactivated: %w", requesterID, domain.ErrUnauthorized)
	}

	request := &models.BloodRequest{
		RequesterID: requesterID,
		PatientName: strings.TrimSpace(input.PatientName),
		BloodType:   input.BloodType,
		UnitsNeeded: input.UnitsNeeded,
		Urgency:     input.Urgency,
		Hospital:    strings.TrimSpace(input.Hospital),
		RequiredBy:  input.RequiredBy,
		Longitude:   input.Longitude,
		Latitude:    input.Latitude,
		Status:      models.RequestStatusPending,
	}
	if err := s.requestRepo.Create(request); err != nil {
		return nil, err
	}
	prommetrics.RecordRequestCreated(request.Urgency, string(request.BloodType))

	candidates, err := s.matcher.FindCandidates(ctx, input.BloodType, input.Longitude, input.Latitude, input.Urgency)
	if err != nil {
		s.log.Warn().Err(err).Uint("request_id", request.ID).Msg("Donor matching failed for new request")
		candidates = nil
	}

	s.log.Info().
		Uint("request_id", request.ID).
		Uint("requester_id", requesterID).
		Str("blood_type", string(request.BloodType)).
		Str("urgency", request.Urgency).
		Int("candidates", len(candidates)).
		Msg("Blood request created")

	return &CreateResult{Request: request, Candidates: candidates}, nil
}

// Get retrieves a request with its donor responses.
func (s *Service) Get(ctx context.Context, requestID uint) (*models.BloodRequest, error) {
	return s.requestRepo.GetByID(requestID)
}

// ListMine retrieves the requests created by a user, newest first.
func (s *Service) ListMine(ctx context.Context, requesterID uint) ([]models.BloodRequest, error) {
	return s.requestRepo.ListByRequester(requesterID)
}

// ListOpen retrieves pending and in-progress requests.
func (s *Service) ListOpen(ctx context.Context) ([]models.BloodRequest, error) {
	return s.requestRepo.ListOpen()
}

// Transition moves a request to a new top-level status. Only the requester or
// an admin may transition; illegal moves surface as a conflict.
func (s *Service) Transition(ctx context.Context, actorID, requestID uint, toStatus string) (*models.BloodRequest, error) {
	request, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRequester(actorID, request); err != nil {
		return nil, err
	}
	if !legalTransition(requestTransitions, request.Status, toStatus) {
		return nil, fmt.Errorf("request %d cannot move from %s to %s: %w",
			requestID, request.Status, toStatus, domain.ErrConflict)
	}

	if err := s.requestRepo.UpdateStatus(requestID, request.Status, toStatus); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("request_id", requestID).
		Uint("actor_id", actorID).
		Str("from", request.Status).
		Str("to", toStatus).
		Msg("Blood request status changed")

	return s.requestRepo.GetByID(requestID)
}

// Respond adds the donor to the request's response list. A donor joins at
// most once; a duplicate join is an error, not a silent success. The first
// response moves a pending request to in-progress.
func (s *Service) Respond(ctx context.Context, donorID, requestID uint) (*models.BloodRequest, error) {
	donor, err := s.userRepo.GetByID(donorID)
	if err != nil {
		return nil, err
	}
	if !donor.IsDonor || !donor.IsActive {
		return nil, fmt.Errorf("user %d is not an active donor: %w", donorID, domain.ErrUnauthorized)
	}

	request, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}
	if request.IsTerminal() {
		return nil, fmt.Errorf("request %d is %s: %w", requestID, request.Status, domain.ErrConflict)
	}

	if _, err := s.requestRepo.AddResponse(requestID, donorID); err != nil {
		if errors.Is(err, domain.ErrDuplicateResponse) {
			prommetrics.RecordDonorResponse("duplicate")
		}
		return nil, err
	}
	prommetrics.RecordDonorResponse("joined")

	if request.Status == models.RequestStatusPending {
		// Lost race with another status change is fine; the response row is in.
		if err := s.requestRepo.UpdateStatus(requestID, models.RequestStatusPending, models.RequestStatusInProgress); err != nil {
			s.log.Debug().Err(err).Uint("request_id", requestID).Msg("Request already moved past pending")
		}
	}

	s.log.Info().
		Uint("request_id", requestID).
		Uint("donor_id", donorID).
		Msg("Donor responded to blood request")

	return s.requestRepo.GetByID(requestID)
}

// TransitionResponse moves a donor's response sub-record through its
// sub-state machine. Only the responding donor, the requester or an admin may
// act on the sub-record.
func (s *Service) TransitionResponse(ctx context.Context, actorID, requestID, donorID uint, toStatus string) (*models.DonorResponse, error) {
	request, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return nil, err
	}

	if actorID != donorID {
		if err := s.authorizeRequester(actorID, request); err != nil {
			return nil, err
		}
	}

	response, err := s.requestRepo.GetResponse(requestID, donorID)
	if err != nil {
		return nil, err
	}
	if !legalTransition(responseTransitions, response.Status, toStatus) {
		return nil, fmt.Errorf("response for donor %d cannot move from %s to %s: %w",
			donorID, response.Status, toStatus, domain.ErrConflict)
	}

	if err := s.requestRepo.UpdateResponseStatus(requestID, donorID, response.Status, toStatus); err != nil {
		return nil, err
	}

	s.log.Info().
		Uint("request_id", requestID).
		Uint("donor_id", donorID).
		Str("from", response.Status).
		Str("to", toStatus).
		Msg("Donor response status changed")

	return s.requestRepo.GetResponse(requestID, donorID)
}

// SetFeedback stores requester feedback. Closed requests are immutable except
// for feedback, so this is the one write allowed after fulfilment.
func (s *Service) SetFeedback(ctx context.Context, actorID, requestID uint, feedback string) error {
	request, err := s.requestRepo.GetByID(requestID)
	if err != nil {
		return err
	}
	if err := s.authorizeRequester(actorID, request); err != nil {
		return err
	}
	return s.requestRepo.SetFeedback(requestID, strings.TrimSpace(feedback))
}

// authorizeRequester permits the request's creator and admins.
func (s *Service) authorizeRequester(actorID uint, request *models.BloodRequest) error {
	if actorID == request.RequesterID {
		return nil
	}
	actor, err := s.userRepo.GetByID(actorID)
	if err != nil {
		return err
	}
	if !actor.IsAdmin {
		return fmt.Errorf("user %d may not modify request %d: %w", actorID, request.ID, domain.ErrUnauthorized)
	}
	return nil
}

func validateCreateInput(input CreateInput, now time.Time) error {
	if strings.TrimSpace(input.PatientName) == "" {
		return fmt.Errorf("patient name is required: %w", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(input.Hospital) == "" {
		return fmt.Errorf("hospital is required: %w", domain.ErrInvalidInput)
	}
	if !input.BloodType.IsValid() {
		return fmt.Errorf("unknown blood type %q: %w", input.BloodType, domain.ErrInvalidInput)
	}
	if input.UnitsNeeded < models.MinRequestUnits || input.UnitsNeeded > models.MaxRequestUnits {
		return fmt.Errorf("units needed must be between %d and %d: %w",
			models.MinRequestUnits, models.MaxRequestUnits, domain.ErrInvalidInput)
	}
	if !validUrgency(input.Urgency) {
		return fmt.Errorf("unknown urgency %q: %w", input.Urgency, domain.ErrInvalidInput)
	}
	if !input.RequiredBy.After(now) {
		return fmt.Errorf("required-by date must be in the future: %w", domain.ErrInvalidInput)
	}
	if !matching.ValidCoordinates(input.Longitude, input.Latitude) {
		return fmt.Errorf("coordinates (%f, %f) out of range: %w",
			input.Longitude, input.Latitude, domain.ErrInvalidInput)
	}
	return nil
}

func validUrgency(urgency string) bool {
	switch urgency {
	case models.UrgencyNormal, models.UrgencyUrgent, models.UrgencyCritical:
		return true
	}
	return false
}

func legalTransition(machine map[string][]string, from, to string) bool {
	for _, allowed := range machine[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
