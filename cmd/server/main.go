// Command server runs the donorhub HTTP API, the Prometheus exporter and the
// daily aggregation scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lifedrop/donorhub/internal/api"
	authapi "github.com/lifedrop/donorhub/internal/api/auth"
	bloodbanksapi "github.com/lifedrop/donorhub/internal/api/bloodbanks"
	dashboardapi "github.com/lifedrop/donorhub/internal/api/dashboard"
	donationsapi "github.com/lifedrop/donorhub/internal/api/donations"
	requestsapi "github.com/lifedrop/donorhub/internal/api/requests"
	"github.com/lifedrop/donorhub/internal/cache"
	"github.com/lifedrop/donorhub/internal/config"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/internal/service/aggregator"
	"github.com/lifedrop/donorhub/internal/service/auth"
	"github.com/lifedrop/donorhub/internal/service/donations"
	"github.com/lifedrop/donorhub/internal/service/eligibility"
	"github.com/lifedrop/donorhub/internal/service/leaderboard"
	"github.com/lifedrop/donorhub/internal/service/matching"
	"github.com/lifedrop/donorhub/internal/service/requests"
	"github.com/lifedrop/donorhub/internal/service/rewards"
	"github.com/lifedrop/donorhub/internal/service/scheduler"
	"github.com/lifedrop/donorhub/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer db.Close()

	if cfg.Database.Postgres.RunMigrations {
		if err := db.Migrate(log); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
	}
	if err := db.SeedBadges(); err != nil {
		return fmt.Errorf("badge seeding failed: %w", err)
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	defer redisCache.Close()

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	donationRepo := repository.NewDonationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	bankRepo := repository.NewBloodBankRepository(db)

	// Services.
	authService := auth.NewService(userRepo, &cfg.Auth, log)
	eligibilityEngine := eligibility.NewEngine(donationRepo, cfg.Rewards.EligibilityDays, log)
	rewardsService := rewards.NewService(userRepo, donationRepo, &cfg.Rewards, log)
	matchingService := matching.NewService(userRepo, bankRepo, &cfg.Matching, log)
	leaderboardService := leaderboard.NewService(userRepo, redisCache, log)
	donationService := donations.NewService(userRepo, donationRepo, bankRepo, eligibilityEngine, rewardsService, leaderboardService, log)
	requestService := requests.NewService(requestRepo, userRepo, matchingService, log)
	aggregatorService := aggregator.NewService(donationRepo, log)
	schedulerService := scheduler.NewService(cfg, aggregatorService, requestRepo, bankRepo, log)

	// Handlers.
	handlers := api.Handlers{
		Auth:       authapi.NewHandler(authService, userRepo, log),
		Donations:  donationsapi.NewHandler(donationService, log),
		Requests:   requestsapi.NewHandler(requestService, log),
		BloodBanks: bloodbanksapi.NewHandler(bankRepo, matchingService, log),
		Dashboard:  dashboardapi.NewHandler(userRepo, leaderboardService, log),
	}

	checks := map[string]api.HealthChecker{
		"postgres": db.Health,
		"redis": func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisCache.Health(ctx)
		},
	}

	router := api.NewRouter(cfg.Server.Environment, authService, handlers, checks, log)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info().Int("port", cfg.Metrics.Port).Str("path", cfg.Metrics.Path).Msg("Metrics server listening")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	if err := schedulerService.Start(); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("environment", cfg.Server.Environment).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		log.Info().Msg("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	schedulerService.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}

	log.Info().Msg("Server stopped")
	return nil
}
