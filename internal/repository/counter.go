package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/model"
)

// CounterRepository reads the activity counters owned by other features.
// Every count is a cheap, idempotent read.
type CounterRepository struct {
	db DBTX
}

// NewCounterRepository creates a new CounterRepository instance.
func NewCounterRepository(db DBTX) *CounterRepository {
	return &CounterRepository{db: db}
}

var counterQueries = map[achievement.Counter]string{
	achievement.CounterMealPlan:    `SELECT COUNT(*) FROM meal_plans WHERE user_id = $1`,
	achievement.CounterGrocery:     `SELECT COUNT(*) FROM grocery_lists WHERE user_id = $1`,
	achievement.CounterSavedRecipe: `SELECT COUNT(*) FROM saved_recipes WHERE user_id = $1`,
	achievement.CounterCuisines:    `SELECT COUNT(DISTINCT LOWER(cuisine)) FROM cuisine_views WHERE user_id = $1`,
	achievement.CounterFoodLog:     `SELECT COUNT(*) FROM food_logs WHERE user_id = $1`,
	// Healthify actions are not stored anywhere else; the XP they earned is.
	achievement.CounterHealthify: `SELECT COUNT(*) FROM xp_transactions WHERE user_id = $1 AND reason LIKE '` + model.ReasonHealthify + `%'`,
}

// Count returns the value of one counter. Unknown counters are zero.
func (r *CounterRepository) Count(ctx context.Context, userID uuid.UUID, counter achievement.Counter) (int64, error) {
	query, ok := counterQueries[counter]
	if !ok {
		return 0, nil
	}

	var count int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", counter, err)
	}
	return count, nil
}

// CountAll resolves every listed counter.
func (r *CounterRepository) CountAll(ctx context.Context, userID uuid.UUID, counters []achievement.Counter) (achievement.Counts, error) {
	counts := make(achievement.Counts, len(counters))
	for _, counter := range counters {
		n, err := r.Count(ctx, userID, counter)
		if err != nil {
			return nil, err
		}
		counts[counter] = n
	}
	return counts, nil
}
