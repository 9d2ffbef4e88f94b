package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/nutrition"
	"wholefood-engine/internal/repository"
)

// DailyScore is the scored rollup of one user-day.
type DailyScore struct {
	Date       time.Time                       `json:"date"`
	Totals     map[string]float64              `json:"totals"`
	Comparison map[string]nutrition.Comparison `json:"comparison"`
	MacroScore float64                         `json:"macro_score"`
	MicroScore float64                         `json:"micro_score"`
	Score      float64                         `json:"daily_score"`
	Tier       nutrition.Tier                  `json:"tier"`
	LogCount   int                             `json:"log_count"`
}

// FoodLogInput is a food entry as submitted by the food-log collaborator.
// Nutrition holds per-serving values; it is scaled by servings and quantity.
type FoodLogInput struct {
	UserID     uuid.UUID
	Date       time.Time
	MealType   string
	SourceType string
	SourceID   *string
	Title      string
	Servings   float64
	Quantity   float64
	Nutrition  nutrition.Snapshot
}

// NutritionService handles targets, food logs and daily scoring.
type NutritionService struct {
	store    *repository.Store
	metrics  *metrics.Metrics
	clock    *Clock
	gapLimit int
}

// NewNutritionService creates a new NutritionService instance.
func NewNutritionService(store *repository.Store, m *metrics.Metrics, clock *Clock, gapLimit int) *NutritionService {
	if gapLimit <= 0 {
		gapLimit = 4
	}
	return &NutritionService{
		store:    store,
		metrics:  m,
		clock:    clock,
		gapLimit: gapLimit,
	}
}

// ComputeDailyScore recomputes and stores the score of one user-day from its
// food logs. Calling it twice over an unchanged log set stores the same result.
func (s *NutritionService) ComputeDailyScore(ctx context.Context, userID uuid.UUID, date time.Time) (*DailyScore, error) {
	day := s.clock.Day(date)
	j := newJournal(userID)
	var score *DailyScore
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		score, err = s.computeDailyScore(ctx, tx, j, userID, day)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compute daily score: %w", err)
	}

	j.publish(s.metrics)
	return score, nil
}

// GetTargets returns a user's targets, or the defaults.
func (s *NutritionService) GetTargets(ctx context.Context, userID uuid.UUID) (nutrition.Targets, error) {
	return s.store.Nutrition.GetTargets(ctx, userID)
}

// UpdateTargets stores a user's targets. Custom micronutrients are merged over
// the essential defaults; macros of zero or less keep their default.
func (s *NutritionService) UpdateTargets(ctx context.Context, userID uuid.UUID, t nutrition.Targets) (nutrition.Targets, error) {
	defaults := nutrition.DefaultTargets()
	t.Calories = orDefault(t.Calories, defaults.Calories)
	t.Protein = orDefault(t.Protein, defaults.Protein)
	t.Carbs = orDefault(t.Carbs, defaults.Carbs)
	t.Fat = orDefault(t.Fat, defaults.Fat)
	t.Fiber = orDefault(t.Fiber, defaults.Fiber)
	t.Micros = nutrition.MergeMicros(t.Micros)

	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		return tx.Nutrition.UpsertTargets(ctx, userID, t)
	})
	if err != nil {
		return nutrition.Targets{}, fmt.Errorf("failed to update targets: %w", err)
	}
	return t, nil
}

// LogFood stores a food entry without running the rest of the pipeline.
// EngineService.OnFoodLogged is the full event.
func (s *NutritionService) LogFood(ctx context.Context, in FoodLogInput) (*model.FoodLog, error) {
	var entry *model.FoodLog
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, in.UserID); err != nil {
			return err
		}
		var err error
		entry, err = s.logFood(ctx, tx, in)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSource) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to log food: %w", err)
	}
	return entry, nil
}

// DeleteFoodLog removes a food entry and rescores its day.
func (s *NutritionService) DeleteFoodLog(ctx context.Context, userID, logID uuid.UUID) (*DailyScore, error) {
	j := newJournal(userID)
	var score *DailyScore
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		day, err := tx.Nutrition.DeleteFoodLog(ctx, userID, logID)
		if err != nil {
			return err
		}
		score, err = s.computeDailyScore(ctx, tx, j, userID, day)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrFoodLogNotFound) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("failed to delete food log: %w", err)
	}

	j.publish(s.metrics)
	return score, nil
}

// ListFoodLogs returns the food entries of one user-day.
func (s *NutritionService) ListFoodLogs(ctx context.Context, userID uuid.UUID, date time.Time) ([]*model.FoodLog, error) {
	return s.store.Nutrition.ListFoodLogs(ctx, userID, s.clock.Day(date))
}

// Gaps returns the nutrients furthest below target on a day, worst first.
// A day without a stored summary is scored first.
func (s *NutritionService) Gaps(ctx context.Context, userID uuid.UUID, date time.Time) ([]nutrition.Gap, error) {
	day := s.clock.Day(date)
	summary, err := s.store.Nutrition.GetSummary(ctx, userID, day)
	if err == nil {
		return nutrition.Gaps(summary.Comparison, s.gapLimit), nil
	}
	if !errors.Is(err, repository.ErrSummaryNotFound) {
		return nil, fmt.Errorf("failed to get gaps: %w", err)
	}

	score, err := s.ComputeDailyScore(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return nutrition.Gaps(score.Comparison, s.gapLimit), nil
}

// ScoreHistory returns the stored scores of the last days days, oldest first.
func (s *NutritionService) ScoreHistory(ctx context.Context, userID uuid.UUID, days int) ([]*model.DailyNutritionSummary, error) {
	if days <= 0 {
		days = 7
	}
	today := s.clock.Today()
	return s.store.Nutrition.ListSummaries(ctx, userID, today.AddDate(0, 0, -(days-1)), today)
}

func (s *NutritionService) computeDailyScore(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, day time.Time) (*DailyScore, error) {
	targets, err := tx.Nutrition.GetTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	logs, err := tx.Nutrition.ListFoodLogs(ctx, userID, day)
	if err != nil {
		return nil, err
	}

	snaps := make([]nutrition.Snapshot, 0, len(logs))
	for _, entry := range logs {
		snaps = append(snaps, entry.Snapshot)
	}
	result := nutrition.Compute(snaps, targets)

	if _, err := tx.Nutrition.UpsertSummary(ctx, &model.DailyNutritionSummary{
		UserID:     userID,
		Date:       day,
		Totals:     result.Totals,
		Comparison: result.Comparison,
		DailyScore: result.Score,
	}); err != nil {
		return nil, err
	}

	j.scores = append(j.scores, result.Score)
	return &DailyScore{
		Date:       day,
		Totals:     result.Totals,
		Comparison: result.Comparison,
		MacroScore: result.MacroScore,
		MicroScore: result.MicroScore,
		Score:      result.Score,
		Tier:       nutrition.TierFor(result.Score),
		LogCount:   len(logs),
	}, nil
}

func (s *NutritionService) logFood(ctx context.Context, tx *repository.Store, in FoodLogInput) (*model.FoodLog, error) {
	source := strings.ToLower(strings.TrimSpace(in.SourceType))
	if source == "" {
		source = model.SourceManual
	}
	if !model.IsValidSource(source) {
		return nil, ErrInvalidSource
	}

	mealType := strings.ToLower(strings.TrimSpace(in.MealType))
	if mealType == "" {
		mealType = "meal"
	}
	servings, quantity := orDefault(in.Servings, 1), orDefault(in.Quantity, 1)

	factor := nutrition.ServingFactor(servings, quantity)
	return tx.Nutrition.CreateFoodLog(ctx, &model.FoodLog{
		UserID:     in.UserID,
		Date:       s.clock.Day(in.Date),
		MealType:   mealType,
		SourceType: source,
		SourceID:   in.SourceID,
		Title:      in.Title,
		Servings:   servings,
		Quantity:   quantity,
		Snapshot:   nutrition.Scale(in.Nutrition, factor),
	})
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}
