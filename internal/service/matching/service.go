// Package matching implements the geo-matching engine: selecting candidate
// donors and blood banks for a blood request by blood-type compatibility and
// urgency-scaled distance.
package matching

import (
	"context"
	"fmt"
	"sort"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/domain"
	prommetrics "github.com/lifedrop/donorhub/internal/metrics"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// Default search radii in meters by urgency.
const (
	DefaultCriticalRadiusMeters = 100000
	DefaultRadiusMeters         = 50000
)

// UserRepository is the slice of the user store the matcher needs.
type UserRepository interface {
	ListActiveDonorsByBloodTypes(bloodTypes []domain.BloodType) ([]models.User, error)
}

// BloodBankRepository is the slice of the blood-bank store the matcher needs.
type BloodBankRepository interface {
	ListActiveWithStock(bloodTypes []domain.BloodType) ([]models.BloodBank, error)
}

// DonorCandidate is a matched donor with its distance from the request.
type DonorCandidate struct {
	Donor          models.User `json:"donor"`
	DistanceMeters float64     `json:"distance_meters"`
}

// BankCandidate is a matched blood bank with its distance from the request.
type BankCandidate struct {
	Bank           models.BloodBank `json:"bank"`
	DistanceMeters float64          `json:"distance_meters"`
}

// Service selects candidate donors and blood banks for blood requests. It is
// a read-only query engine: it mutates no records.
type Service struct {
	userRepo       UserRepository
	bankRepo       BloodBankRepository
	strict         bool
	criticalRadius float64
	defaultRadius  float64
	maxCandidates  int
	log            *logger.Logger
}

// NewService creates a matching service from configuration.
func NewService(
	userRepo *repository.UserRepository,
	bankRepo *repository.BloodBankRepository,
	cfg *config.MatchingConfig,
	log *logger.Logger,
) *Service {
	return newService(userRepo, bankRepo, cfg, log)
}

// NewServiceWithInterfaces creates a matching service with interface
// dependencies (useful for testing).
func NewServiceWithInterfaces(
	userRepo UserRepository,
	bankRepo BloodBankRepository,
	cfg *config.MatchingConfig,
	log *logger.Logger,
) *Service {
	return newService(userRepo, bankRepo, cfg, log)
}

func newService(userRepo UserRepository, bankRepo BloodBankRepository, cfg *config.MatchingConfig, log *logger.Logger) *Service {
	s := &Service{
		userRepo:       userRepo,
		bankRepo:       bankRepo,
		strict:         cfg.Strict,
		criticalRadius: cfg.CriticalRadiusMeters,
		defaultRadius:  cfg.DefaultRadiusMeters,
		maxCandidates:  cfg.MaxCandidates,
		log:            log,
	}
	if s.criticalRadius <= 0 {
		s.criticalRadius = DefaultCriticalRadiusMeters
	}
	if s.defaultRadius <= 0 {
		s.defaultRadius = DefaultRadiusMeters
	}
	return s
}

// RadiusForUrgency returns the search radius in meters for an urgency level.
// Critical requests search twice as far as everything else.
func (s *Service) RadiusForUrgency(urgency string) float64 {
	if urgency == models.UrgencyCritical {
		return s.criticalRadius
	}
	return s.defaultRadius
}

// FindCandidates returns donors that can serve a request for the given blood
// type at (lon, lat), nearest first. A donor exactly at the radius boundary
// is included.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) FindCandidates(ctx context.Context, bloodType domain.BloodType, lon, lat float64, urgency string) ([]DonorCandidate, error) {
	if !bloodType.IsValid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", bloodType, domain.ErrInvalidInput)
	}
	if !ValidCoordinates(lon, lat) {
		return nil, fmt.Errorf("coordinates (%f, %f) out of range: %w", lon, lat, domain.ErrInvalidInput)
	}

	donors, err := s.userRepo.ListActiveDonorsByBloodTypes(s.acceptableTypes(bloodType))
	if err != nil {
		return nil, fmt.Errorf("failed to load donor candidates: %w", err)
	}

	radius := s.RadiusForUrgency(urgency)
	candidates := make([]DonorCandidate, 0, len(donors))
	for _, donor := range donors {
		dist := HaversineMeters(lat, lon, donor.Latitude, donor.Longitude)
		if dist <= radius {
			candidates = append(candidates, DonorCandidate{Donor: donor, DistanceMeters: dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})
	if s.maxCandidates > 0 && len(candidates) > s.maxCandidates {
		candidates = candidates[:s.maxCandidates]
	}

	nearest := 0.0
	if len(candidates) > 0 {
		nearest = candidates[0].DistanceMeters
	}
	prommetrics.RecordMatchResult(urgency, len(candidates), nearest)

	s.log.Debug().
		Str("blood_type", string(bloodType)).
		Str("urgency", urgency).
		Float64("radius_m", radius).
		Int("candidates", len(candidates)).
		Msg("Donor matching complete")

	return candidates, nil
}

// FindBanks returns active blood banks stocking compatible blood within the
// urgency radius, nearest first.
//
//nolint:revive // ctx reserved for future context-aware storage calls
func (s *Service) FindBanks(ctx context.Context, bloodType domain.BloodType, lon, lat float64, urgency string) ([]BankCandidate, error) {
	if !bloodType.IsValid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", bloodType, domain.ErrInvalidInput)
	}
	if !ValidCoordinates(lon, lat) {
		return nil, fmt.Errorf("coordinates (%f, %f) out of range: %w", lon, lat, domain.ErrInvalidInput)
	}

	banks, err := s.bankRepo.ListActiveWithStock(s.acceptableTypes(bloodType))
	if err != nil {
		return nil, fmt.Errorf("failed to load bank candidates: %w", err)
	}

	radius := s.RadiusForUrgency(urgency)
	candidates := make([]BankCandidate, 0, len(banks))
	for _, bank := range banks {
		dist := HaversineMeters(lat, lon, bank.Latitude, bank.Longitude)
		if dist <= radius {
			candidates = append(candidates, BankCandidate{Bank: bank, DistanceMeters: dist})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].DistanceMeters < candidates[j].DistanceMeters
	})

	return candidates, nil
}

// acceptableTypes expands the requested group to all compatible donor groups
// unless strict matching is configured.
func (s *Service) acceptableTypes(requested domain.BloodType) []domain.BloodType {
	if s.strict {
		return []domain.BloodType{requested}
	}
	return domain.CompatibleDonorTypes(requested)
}
