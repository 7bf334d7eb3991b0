package matching

import (
	"context"
	"math"
	"testing"

	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// Mock repositories for testing
type mockUserRepository struct {
	donors []models.User
}

func (m *mockUserRepository) ListActiveDonorsByBloodTypes(bloodTypes []domain.BloodType) ([]models.User, error) {
	allowed := make(map[domain.BloodType]bool)
	for _, bt := range bloodTypes {
		allowed[bt] = true
	}
	var out []models.User
	for _, d := range m.donors {
		if allowed[d.BloodType] {
			out = append(out, d)
		}
	}
	return out, nil
}

type mockBankRepository struct {
	banks []models.BloodBank
}

func (m *mockBankRepository) ListActiveWithStock(bloodTypes []domain.BloodType) ([]models.BloodBank, error) {
	return m.banks, nil
}

// donorAtDistance places a donor due north of the origin at the given
// distance in meters. One degree of latitude is ~111.195 km on the sphere
// used by the haversine computation.
func donorAtDistance(id uint, bloodType domain.BloodType, meters float64) models.User {
	degrees := meters / (earthRadiusMeters * math.Pi / 180)
	return models.User{
		ID:        id,
		BloodType: bloodType,
		IsDonor:   true,
		IsActive:  true,
		Latitude:  degrees,
		Longitude: 0,
	}
}

func setupService(donors []models.User, banks []models.BloodBank, strict bool) *Service {
	cfg := &config.MatchingConfig{
		Strict:               strict,
		CriticalRadiusMeters: 100000,
		DefaultRadiusMeters:  50000,
		MaxCandidates:        50,
	}
	log := logger.New("debug", "json", "stdout")
	return NewServiceWithInterfaces(&mockUserRepository{donors: donors}, &mockBankRepository{banks: banks}, cfg, log)
}

func TestHaversineKnownDistance(t *testing.T) {
	// Paris to London is roughly 344 km.
	dist := HaversineMeters(48.8566, 2.3522, 51.5074, -0.1278)
	if dist < 330000 || dist > 355000 {
		t.Errorf("Expected ~344km Paris-London, got %.0fm", dist)
	}

	// Same point is zero.
	if d := HaversineMeters(10, 20, 10, 20); d != 0 {
		t.Errorf("Expected 0 distance for identical points, got %f", d)
	}
}

func TestRadiusForUrgency(t *testing.T) {
	svc := setupService(nil, nil, false)

	tests := []struct {
		urgency string
		want    float64
	}{
		{models.UrgencyCritical, 100000},
		{models.UrgencyUrgent, 50000},
		{models.UrgencyNormal, 50000},
		{"", 50000},
	}

	for _, tt := range tests {
		if got := svc.RadiusForUrgency(tt.urgency); got != tt.want {
			t.Errorf("urgency %q: expected %f, got %f", tt.urgency, tt.want, got)
		}
	}
}

func TestFindCandidatesRadiusBoundary(t *testing.T) {
	tests := []struct {
		name    string
		urgency string
		meters  float64
		found   bool
	}{
		{"critical at 99km", models.UrgencyCritical, 99000, true},
		{"critical at boundary", models.UrgencyCritical, 100000, true},
		{"critical at 101km", models.UrgencyCritical, 101000, false},
		{"normal at 49km", models.UrgencyNormal, 49000, true},
		{"normal at boundary", models.UrgencyNormal, 50000, true},
		{"normal 1m beyond boundary", models.UrgencyNormal, 50001, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			donors := []models.User{donorAtDistance(1, domain.BloodOPos, tt.meters)}
			svc := setupService(donors, nil, false)

			candidates, err := svc.FindCandidates(context.Background(), domain.BloodOPos, 0, 0, tt.urgency)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if tt.found && len(candidates) != 1 {
				t.Errorf("Expected donor at %.0fm to be included", tt.meters)
			}
			if !tt.found && len(candidates) != 0 {
				t.Errorf("Expected donor at %.0fm to be excluded", tt.meters)
			}
		})
	}
}

func TestFindCandidatesOrderedNearestFirst(t *testing.T) {
	donors := []models.User{
		donorAtDistance(1, domain.BloodOPos, 30000),
		donorAtDistance(2, domain.BloodOPos, 5000),
		donorAtDistance(3, domain.BloodOPos, 15000),
	}
	svc := setupService(donors, nil, false)

	candidates, err := svc.FindCandidates(context.Background(), domain.BloodOPos, 0, 0, models.UrgencyNormal)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(candidates) != 3 {
		t.Fatalf("Expected 3 candidates, got %d", len(candidates))
	}

	wantOrder := []uint{2, 3, 1}
	for i, want := range wantOrder {
		if candidates[i].Donor.ID != want {
			t.Errorf("Position %d: expected donor %d, got %d", i, want, candidates[i].Donor.ID)
		}
	}
	for i := 1; i < len(candidates); i++ {
		if candidates[i].DistanceMeters < candidates[i-1].DistanceMeters {
			t.Error("Candidates not ordered nearest first")
		}
	}
}

func TestFindCandidatesCompatibilityExpansion(t *testing.T) {
	donors := []models.User{
		donorAtDistance(1, domain.BloodAPos, 1000),
		donorAtDistance(2, domain.BloodONeg, 2000), // universal donor
		donorAtDistance(3, domain.BloodBPos, 3000), // incompatible with A+
	}

	t.Run("compatibility expansion", func(t *testing.T) {
		svc := setupService(donors, nil, false)
		candidates, err := svc.FindCandidates(context.Background(), domain.BloodAPos, 0, 0, models.UrgencyNormal)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(candidates) != 2 {
			t.Fatalf("Expected A+ and O- donors, got %d candidates", len(candidates))
		}
		if candidates[0].Donor.ID != 1 || candidates[1].Donor.ID != 2 {
			t.Errorf("Unexpected candidate set: %v, %v", candidates[0].Donor.ID, candidates[1].Donor.ID)
		}
	})

	t.Run("strict matching", func(t *testing.T) {
		svc := setupService(donors, nil, true)
		candidates, err := svc.FindCandidates(context.Background(), domain.BloodAPos, 0, 0, models.UrgencyNormal)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(candidates) != 1 || candidates[0].Donor.ID != 1 {
			t.Errorf("Expected only the exact A+ donor, got %d candidates", len(candidates))
		}
	})
}

func TestFindCandidatesInvalidInput(t *testing.T) {
	svc := setupService(nil, nil, false)

	if _, err := svc.FindCandidates(context.Background(), "X+", 0, 0, models.UrgencyNormal); err == nil {
		t.Error("Expected error for unknown blood type")
	}
	if _, err := svc.FindCandidates(context.Background(), domain.BloodOPos, 200, 0, models.UrgencyNormal); err == nil {
		t.Error("Expected error for longitude out of range")
	}
	if _, err := svc.FindCandidates(context.Background(), domain.BloodOPos, 0, -95, models.UrgencyNormal); err == nil {
		t.Error("Expected error for latitude out of range")
	}
}

func TestValidCoordinates(t *testing.T) {
	tests := []struct {
		lon, lat float64
		want     bool
	}{
		{0, 0, true},
		{-180, -90, true},
		{180, 90, true},
		{180.1, 0, false},
		{0, 90.1, false},
		{-181, 0, false},
	}

	for _, tt := range tests {
		if got := ValidCoordinates(tt.lon, tt.lat); got != tt.want {
			t.Errorf("ValidCoordinates(%f, %f): expected %v, got %v", tt.lon, tt.lat, tt.want, got)
		}
	}
}
