// Package leaderboard provides donor leaderboard and ranking services.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lifedrop/donorhub/internal/cache"
	"github.com/lifedrop/donorhub/internal/domain"
	"github.com/lifedrop/donorhub/internal/models"
	"github.com/lifedrop/donorhub/internal/repository"
	"github.com/lifedrop/donorhub/pkg/logger"
)

// cacheTTL bounds how stale a cached leaderboard may get.
const cacheTTL = time.Minute

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(id uint) (*models.User, error)
	ListTopByRewardPoints(bloodType domain.BloodType, limit int) ([]models.User, error)
	GetUserBadgeCount(userID uint) (int64, error)
	GetUserBadges(userID uint) ([]models.UserBadge, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID         uint             `json:"user_id"`
	Name           string           `json:"name"`
	BloodType      domain.BloodType `json:"blood_type"`
	Level          string           `json:"level"`
	TotalDonations int              `json:"total_donations"`
	RewardPoints   int              `json:"reward_points"`
	Streak         int              `json:"streak"`
	BadgeCount     int              `json:"badge_count"`
	LivesImpacted  int              `json:"lives_impacted"`
	Rank           int              `json:"rank"`
}

// Service handles leaderboard generation and donor statistics.
type Service struct {
	userRepo UserRepository
	cache    cache.Cache
	log      *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(userRepo *repository.UserRepository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, cache: c, log: log}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(userRepo UserRepository, c cache.Cache, log *logger.Logger) *Service {
	return &Service{userRepo: userRepo, cache: c, log: log}
}

// GetGlobalLeaderboard returns the leaderboard across all blood types.
func (s *Service) GetGlobalLeaderboard(ctx context.Context, limit int) ([]Entry, error) {
	return s.getLeaderboard(ctx, "", limit)
}

// GetBloodTypeLeaderboard returns the leaderboard for one blood type.
func (s *Service) GetBloodTypeLeaderboard(ctx context.Context, bloodType domain.BloodType, limit int) ([]Entry, error) {
	if !bloodType.IsValid() {
		return nil, fmt.Errorf("unknown blood type %q: %w", bloodType, domain.ErrInvalidInput)
	}
	return s.getLeaderboard(ctx, bloodType, limit)
}

// getLeaderboard builds a leaderboard, serving from the cache when a fresh
// snapshot exists. The cache always holds the full board under one key per
// blood type; the requested limit is applied on the way out, so invalidation
// never has to guess which page sizes callers asked for.
func (s *Service) getLeaderboard(ctx context.Context, bloodType domain.BloodType, limit int) ([]Entry, error) {
	key := cacheKey(bloodType)

	if cached, err := s.cache.Get(ctx, key); err == nil && cached != "" {
		var entries []Entry
		if err := json.Unmarshal([]byte(cached), &entries); err == nil {
			return applyLimit(entries, limit), nil
		}
		s.log.Warn().Str("key", key).Msg("Discarding unreadable cached leaderboard")
	}

	users, err := s.userRepo.ListTopByRewardPoints(bloodType, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard users: %w", err)
	}

	entries := make([]Entry, 0, len(users))
	for i, user := range users {
		badgeCount, err := s.userRepo.GetUserBadgeCount(user.ID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", user.ID).Msg("Failed to get badge count")
			badgeCount = 0
		}

		entries = append(entries, Entry{
			UserID:         user.ID,
			Name:           user.Name,
			BloodType:      user.BloodType,
			Level:          user.Level,
			TotalDonations: user.TotalDonations,
			RewardPoints:   user.RewardPoints,
			Streak:         user.Streak,
			BadgeCount:     int(badgeCount),
			LivesImpacted:  user.LivesImpacted(),
			Rank:           i + 1,
		})
	}

	if payload, err := json.Marshal(entries); err == nil {
		if err := s.cache.Set(ctx, key, string(payload), cacheTTL); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("Failed to cache leaderboard")
		}
	}

	return applyLimit(entries, limit), nil
}

// GetUserRank returns the global rank of a user by reward points. A user
// absent from the board has rank 0.
func (s *Service) GetUserRank(ctx context.Context, userID uint) (int, error) {
	leaderboard, err := s.getLeaderboard(ctx, "", 0)
	if err != nil {
		return 0, err
	}
	for _, entry := range leaderboard {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// Invalidate drops every cached snapshot so the next read rebuilds them.
// Called after donation completions move reward points.
func (s *Service) Invalidate(ctx context.Context) error {
	keys := []string{cacheKey("")}
	for _, bt := range domain.AllBloodTypes {
		keys = append(keys, cacheKey(bt))
	}
	return s.cache.Del(ctx, keys...)
}

func applyLimit(entries []Entry, limit int) []Entry {
	if limit > 0 && limit < len(entries) {
		return entries[:limit]
	}
	return entries
}

func cacheKey(bloodType domain.BloodType) string {
	if bloodType == "" {
		return "leaderboard:global"
	}
	return fmt.Sprintf("leaderboard:%s", bloodType)
}
