package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/nutrition"
	"wholefood-engine/internal/repository"
	"wholefood-engine/internal/streak"
)

// NutritionStreakState is the result of a nutrition streak update.
// Tier and TierAward are set only when the day qualified for a tier.
type NutritionStreakState struct {
	CurrentStreak      int            `json:"current_streak"`
	LongestStreak      int            `json:"longest_streak"`
	LastQualifyingDate *time.Time     `json:"last_qualifying_date"`
	Threshold          float64        `json:"threshold"`
	Qualified          bool           `json:"qualified"`
	Outcome            string         `json:"outcome"`
	Tier               nutrition.Tier `json:"tier"`
	TierAward          *AwardResult   `json:"tier_award,omitempty"`
}

// ActivityStreakState is the result of an activity streak update.
type ActivityStreakState struct {
	CurrentStreak  int          `json:"current_streak"`
	LongestStreak  int          `json:"longest_streak"`
	LastActiveDate *time.Time   `json:"last_active_date"`
	Outcome        string       `json:"outcome"`
	Bonus          *AwardResult `json:"bonus,omitempty"`
}

// StreakService handles the activity and nutrition-quality streaks.
type StreakService struct {
	store         *repository.Store
	metrics       *metrics.Metrics
	clock         *Clock
	threshold     float64
	dailyStreakXP int64
}

// NewStreakService creates a new StreakService instance.
func NewStreakService(
	store *repository.Store,
	m *metrics.Metrics,
	clock *Clock,
	threshold float64,
	dailyStreakXP int64,
) *StreakService {
	return &StreakService{
		store:         store,
		metrics:       m,
		clock:         clock,
		threshold:     threshold,
		dailyStreakXP: dailyStreakXP,
	}
}

// UpdateNutritionStreak applies a day's score to the nutrition streak and pays
// the day's tier bonus once.
func (s *StreakService) UpdateNutritionStreak(ctx context.Context, userID uuid.UUID, score float64, date time.Time) (*NutritionStreakState, error) {
	day := s.clock.Day(date)
	j := newJournal(userID)
	var state *NutritionStreakState
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		state, err = s.updateNutrition(ctx, tx, j, userID, score, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update nutrition streak: %w", err)
	}

	j.publish(s.metrics)
	return state, nil
}

// RecordActivity counts day as an active day and pays the daily streak bonus
// the first time the streak moves on that day.
func (s *StreakService) RecordActivity(ctx context.Context, userID uuid.UUID, date time.Time) (*ActivityStreakState, error) {
	day := s.clock.Day(date)
	j := newJournal(userID)
	var state *ActivityStreakState
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		state, err = s.recordActivity(ctx, tx, j, userID, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record activity: %w", err)
	}

	j.publish(s.metrics)
	return state, nil
}

// GetNutritionStreak returns a user's nutrition streak, zero when none exists.
func (s *StreakService) GetNutritionStreak(ctx context.Context, userID uuid.UUID) (*NutritionStreakState, error) {
	row, err := s.store.Streaks.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrStreakNotFound) {
			return &NutritionStreakState{Threshold: s.threshold, Outcome: streak.Unchanged.String(), Tier: nutrition.TierNone}, nil
		}
		return nil, err
	}
	return &NutritionStreakState{
		CurrentStreak:      row.CurrentStreak,
		LongestStreak:      row.LongestStreak,
		LastQualifyingDate: row.LastQualifyingDate,
		Threshold:          row.Threshold,
		Outcome:            streak.Unchanged.String(),
		Tier:               nutrition.TierNone,
	}, nil
}

func (s *StreakService) updateNutrition(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, score float64, day time.Time) (*NutritionStreakState, error) {
	// Users row before streak row, same order as every other writer.
	if _, err := tx.Users.GetForUpdate(ctx, userID); err != nil {
		return nil, err
	}
	row, err := tx.Streaks.EnsureForUpdate(ctx, userID, s.threshold)
	if err != nil {
		return nil, err
	}

	qualifies := score >= row.Threshold
	next, outcome := streak.Advance(streak.State{
		Current:  row.CurrentStreak,
		Longest:  row.LongestStreak,
		LastDate: row.LastQualifyingDate,
	}, day, qualifies)

	if outcome != streak.Unchanged {
		row, err = tx.Streaks.Save(ctx, userID, next.Current, next.Longest, next.LastDate)
		if err != nil {
			return nil, err
		}
	}

	state := &NutritionStreakState{
		CurrentStreak:      row.CurrentStreak,
		LongestStreak:      row.LongestStreak,
		LastQualifyingDate: row.LastQualifyingDate,
		Threshold:          row.Threshold,
		Qualified:          qualifies,
		Outcome:            outcome.String(),
		Tier:               nutrition.TierNone,
	}
	if !qualifies {
		return state, nil
	}

	tier := nutrition.TierFor(score)
	if tier == nutrition.TierNone {
		return state, nil
	}
	state.Tier = tier

	result, awarded, err := awardDaily(ctx, tx, j, userID, tier.XP(), model.Reason(model.ReasonNutritionTier, string(tier)), day)
	if err != nil {
		return nil, err
	}
	if awarded {
		state.TierAward = result
	}
	return state, nil
}

func (s *StreakService) recordActivity(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, day time.Time) (*ActivityStreakState, error) {
	user, err := tx.Users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	next, outcome := streak.Advance(streak.State{
		Current:  user.CurrentStreak,
		Longest:  user.LongestStreak,
		LastDate: user.LastActiveDate,
	}, day, true)

	state := &ActivityStreakState{
		CurrentStreak:  user.CurrentStreak,
		LongestStreak:  user.LongestStreak,
		LastActiveDate: user.LastActiveDate,
		Outcome:        outcome.String(),
	}
	if outcome == streak.Unchanged {
		return state, nil
	}

	user, err = tx.Users.UpdateActivityStreak(ctx, userID, next.Current, next.Longest, next.LastDate)
	if err != nil {
		return nil, err
	}
	state.CurrentStreak = user.CurrentStreak
	state.LongestStreak = user.LongestStreak
	state.LastActiveDate = user.LastActiveDate

	if s.dailyStreakXP <= 0 {
		return state, nil
	}
	result, awarded, err := awardDaily(ctx, tx, j, userID, s.dailyStreakXP, model.ReasonDailyStreak, day)
	if err != nil {
		return nil, err
	}
	if awarded {
		state.Bonus = result
	}
	return state, nil
}
