package eligibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// Mock donation repository for testing
type mockDonationRepository struct {
	donationDates []time.Time
}

func (m *mockDonationRepository) HasAcceptedDonationInWindow(donorID uint, from, to time.Time) (bool, error) {
	for _, d := range m.donationDates {
		if !d.Before(from) && d.Before(to) {
			return true, nil
		}
	}
	return false, nil
}

func setupEngine(donationDates ...time.Time) *Engine {
	repo := &mockDonationRepository{donationDates: donationDates}
	log := logger.New("debug", "json", "stdout")
	return NewEngine(repo, 90, log)
}

func TestCheckFirstDonationIsEligible(t *testing.T) {
	engine := setupEngine()
	donor := &models.User{ID: 1}
	now := time.Now()

	result, err := engine.Check(context.Background(), donor, now, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Eligible {
		t.Error("Expected first-time donor to be eligible")
	}
}

func TestCheckFutureDateIsInvalidInput(t *testing.T) {
	engine := setupEngine()
	donor := &models.User{ID: 1}
	now := time.Now()

	_, err := engine.Check(context.Background(), donor, now.Add(24*time.Hour), now)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for future date, got %v", err)
	}
}

func TestCheckWindowBoundaries(t *testing.T) {
	now := time.Now().Truncate(time.Hour)

	tests := []struct {
		name         string
		daysAgo      int
		wantEligible bool
	}{
		{"donation 1 day ago", 1, false},
		{"donation 45 days ago", 45, false},
		{"donation 89 days ago", 89, false},
		{"donation exactly 90 days ago", 90, false},
		{"donation 91 days ago", 91, true},
		{"donation 100 days ago", 100, true},
		{"donation 365 days ago", 365, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			last := now.AddDate(0, 0, -tt.daysAgo)
			engine := setupEngine(last)
			donor := &models.User{ID: 1, LastDonationDate: &last}

			result, err := engine.Check(context.Background(), donor, now, now)
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if result.Eligible != tt.wantEligible {
				t.Errorf("Expected eligible=%v, got %v", tt.wantEligible, result.Eligible)
			}
			if !tt.wantEligible {
				if result.NextEligibleDate == nil {
					t.Fatal("Expected next eligible date for ineligible donor")
				}
				expected := last.AddDate(0, 0, 90)
				if !result.NextEligibleDate.Equal(expected) {
					t.Errorf("Expected next eligible %v, got %v", expected, *result.NextEligibleDate)
				}
			}
		})
	}
}

func TestCheckUsesHistoryWhenProgressionIsStale(t *testing.T) {
	// An accepted donation exists in the window even though the identity
	// record has no lastDonationDate yet.
	now := time.Now()
	engine := setupEngine(now.AddDate(0, 0, -10))
	donor := &models.User{ID: 1}

	result, err := engine.Check(context.Background(), donor, now, now)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if result.Eligible {
		t.Error("Expected donor with recent accepted donation to be ineligible")
	}
}

func TestNextEligibleDate(t *testing.T) {
	now := time.Now()
	last := now.AddDate(0, 0, -30)

	t.Run("with last donation date", func(t *testing.T) {
		donor := &models.User{LastDonationDate: &last}
		next := NextEligibleDate(donor, now, 90)
		expected := last.AddDate(0, 0, 90)
		if !next.Equal(expected) {
			t.Errorf("Expected %v, got %v", expected, next)
		}
	})

	t.Run("without last donation date", func(t *testing.T) {
		donor := &models.User{}
		next := NextEligibleDate(donor, now, 90)
		expected := now.AddDate(0, 0, 90)
		if !next.Equal(expected) {
			t.Errorf("Expected %v, got %v", expected, next)
		}
	})
}
