// Package scheduler runs the daily donation-stats aggregation and refreshes
// the inventory and open-request gauges.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lifedrop/donorhub/internal/config"
	prommetrics "github.com/lifedrop/donorhub/internal/metrics"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/internal/service/aggregator"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// RequestRepository is the slice of the request store the scheduler needs.
type RequestRepository interface {
	ListOpen() ([]models.BloodRequest, error)
}

// BloodBankRepository is the slice of the blood-bank store the scheduler needs.
type BloodBankRepository interface {
	ListActive() ([]models.BloodBank, error)
	GetInventory(bankID uint) ([]models.BloodInventory, error)
}

// Aggregator folds a day's completed donations into stats rows.
type Aggregator interface {
	AggregateDaily(ctx context.Context, date time.Time) error
}

// Service handles the daily aggregation schedule.
type Service struct {
	config      *config.Config
	aggregator  Aggregator
	requestRepo RequestRepository
	bankRepo    BloodBankRepository
	log         *logger.Logger
	cron        *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	agg *aggregator.Service,
	requestRepo *repository.RequestRepository,
	bankRepo *repository.BloodBankRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		config:      cfg,
		aggregator:  agg,
		requestRepo: requestRepo,
		bankRepo:    bankRepo,
		log:         log,
	}
}

// NewServiceWithInterfaces creates a new scheduler service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	cfg *config.Config,
	agg Aggregator,
	requestRepo RequestRepository,
	bankRepo BloodBankRepository,
	log *logger.Logger,
) *Service {
	return &Service{
		config:      cfg,
		aggregator:  agg,
		requestRepo: requestRepo,
		bankRepo:    bankRepo,
		log:         log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	cronExpr, err := s.buildCronExpression()
	if err != nil {
		return fmt.Errorf("failed to build cron expression: %w", err)
	}

	_, err = s.cron.AddFunc(cronExpr, func() {
		s.RunDailyJob(context.Background())
	})
	if err != nil {
		return fmt.Errorf("failed to register daily aggregation job: %w", err)
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("schedule", cronExpr).
		Str("timezone", s.config.Scheduler.Timezone).
		Str("time", s.config.Scheduler.Time).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// buildCronExpression generates a cron expression from config.
func (s *Service) buildCronExpression() (string, error) {
	// Parse time string (format: "HH:MM")
	parts := strings.Split(s.config.Scheduler.Time, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", s.config.Scheduler.Time)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// RunDailyJob aggregates the previous day's donations and refreshes the
// platform gauges. Exported so an operator endpoint can trigger it on demand.
func (s *Service) RunDailyJob(ctx context.Context) {
	start := time.Now()
	defer func() {
		prommetrics.SchedulerJobDurationSeconds.Observe(time.Since(start).Seconds())
		prommetrics.SchedulerLastRunTimestamp.Set(float64(time.Now().Unix()))
	}()

	s.log.Info().Msg("Running daily aggregation job")

	yesterday := time.Now().AddDate(0, 0, -1)
	if err := s.aggregator.AggregateDaily(ctx, yesterday); err != nil {
		s.log.Error().Err(err).Msg("Daily aggregation failed")
		prommetrics.RecordSchedulerRun("error")
		return
	}

	s.refreshGauges()
	prommetrics.RecordSchedulerRun("success")

	s.log.Info().
		Dur("duration", time.Since(start)).
		Msg("Daily aggregation job completed")
}

// refreshGauges recomputes the open-request and inventory gauges from the
// database.
func (s *Service) refreshGauges() {
	requests, err := s.requestRepo.ListOpen()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list open requests for gauge refresh")
	} else {
		counts := map[string]int{
			models.UrgencyNormal:   0,
			models.UrgencyUrgent:   0,
			models.UrgencyCritical: 0,
		}
		for _, request := range requests {
			counts[request.Urgency]++
		}
		for urgency, count := range counts {
			prommetrics.SetOpenRequests(urgency, count)
		}
	}

	banks, err := s.bankRepo.ListActive()
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list blood banks for gauge refresh")
		return
	}
	for _, bank := range banks {
		inventory, err := s.bankRepo.GetInventory(bank.ID)
		if err != nil {
			s.log.Warn().Err(err).Uint("blood_bank_id", bank.ID).Msg("Failed to read inventory")
			continue
		}
		for _, item := range inventory {
			prommetrics.SetInventoryUnits(bank.Name, string(item.BloodType), item.Units)
		}
	}
}
