package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wholefood-engine/internal/model"
	"wholefood-engine/internal/progression"
	"wholefood-engine/internal/repository"
)

// UserStats is a user's progression overview.
type UserStats struct {
	UserID                 uuid.UUID `json:"user_id"`
	XPPoints               int64     `json:"xp_points"`
	Level                  int       `json:"level"`
	LevelTitle             string    `json:"level_title"`
	XPToNextLevel          int64     `json:"xp_to_next_level"`
	CurrentStreak          int       `json:"current_streak"`
	LongestStreak          int       `json:"longest_streak"`
	NutritionStreak        int       `json:"nutrition_streak"`
	LongestNutritionStreak int       `json:"longest_nutrition_streak"`
	AchievementsUnlocked   int       `json:"achievements_unlocked"`
	AchievementsTotal      int       `json:"achievements_total"`
	WeeklyXP               int64     `json:"weekly_xp"`
	MealsLogged            int64     `json:"meals_logged"`
}

// StatsService handles stats and leaderboard operations.
type StatsService struct {
	store           *repository.Store
	clock           *Clock
	leaderboardSize int
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(store *repository.Store, clock *Clock, leaderboardSize int) *StatsService {
	if leaderboardSize <= 0 {
		leaderboardSize = 20
	}
	return &StatsService{
		store:           store,
		clock:           clock,
		leaderboardSize: leaderboardSize,
	}
}

// GetStats returns a user's level, streaks and achievement progress.
// A user the engine has not seen yet gets zeroed stats.
func (s *StatsService) GetStats(ctx context.Context, userID uuid.UUID) (*UserStats, error) {
	stats := &UserStats{UserID: userID}

	user, err := s.store.Users.GetByID(ctx, userID)
	switch {
	case err == nil:
		stats.XPPoints = user.XPPoints
		stats.CurrentStreak = user.CurrentStreak
		stats.LongestStreak = user.LongestStreak
	case !errors.Is(err, repository.ErrUserNotFound):
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.Level = progression.Level(stats.XPPoints)
	stats.LevelTitle = progression.Title(stats.Level)
	stats.XPToNextLevel = progression.XPToNextLevel(stats.XPPoints)

	ns, err := s.store.Streaks.Get(ctx, userID)
	switch {
	case err == nil:
		stats.NutritionStreak = ns.CurrentStreak
		stats.LongestNutritionStreak = ns.LongestStreak
	case !errors.Is(err, repository.ErrStreakNotFound):
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	unlocked, err := s.store.Achievements.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	stats.AchievementsUnlocked = len(unlocked)

	stats.AchievementsTotal, err = s.store.Achievements.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	stats.WeeklyXP, err = s.WeeklyXP(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats.MealsLogged, err = s.store.Nutrition.CountFoodLogs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

// Leaderboard returns the top users by XP. A limit of zero or less uses the
// configured size.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.leaderboardSize
	}

	users, err := s.store.Users.GetTopUsers(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(users))
	for i, u := range users {
		level := progression.Level(u.XPPoints)
		entries = append(entries, model.LeaderboardEntry{
			Rank:       i + 1,
			UserID:     u.ID,
			Name:       u.Name,
			XPPoints:   u.XPPoints,
			Level:      level,
			LevelTitle: progression.Title(level),
			Streak:     u.CurrentStreak,
		})
	}
	return entries, nil
}

// WeeklyXP sums the XP a user earned over the last seven days, today included.
func (s *StatsService) WeeklyXP(ctx context.Context, userID uuid.UUID) (int64, error) {
	since := s.clock.StartOf(s.clock.Today().AddDate(0, 0, -6))
	sum, err := s.store.XP.SumSince(ctx, userID, since)
	if err != nil {
		return 0, fmt.Errorf("failed to get weekly xp: %w", err)
	}
	return sum, nil
}
