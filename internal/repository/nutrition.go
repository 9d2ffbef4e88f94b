package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wholefood-engine/internal/model"
	"wholefood-engine/internal/nutrition"
)

const foodLogColumns = `id, user_id, log_date, meal_type, source_type, source_id, title, servings, quantity, nutrition_snapshot, created_at`

// NutritionRepository handles nutrition targets, food logs and daily summaries.
type NutritionRepository struct {
	db DBTX
}

// NewNutritionRepository creates a new NutritionRepository instance.
func NewNutritionRepository(db DBTX) *NutritionRepository {
	return &NutritionRepository{db: db}
}

// ========== Targets ==========

// GetTargets returns a user's targets. A user without a row gets the defaults,
// and a NULL micronutrient column means the essential defaults.
func (r *NutritionRepository) GetTargets(ctx context.Context, userID uuid.UUID) (nutrition.Targets, error) {
	const query = `
		SELECT calories_target, protein_g_target, carbs_g_target, fat_g_target, fiber_g_target, micronutrient_targets
		FROM nutrition_targets
		WHERE user_id = $1
	`

	var t nutrition.Targets
	var micros []byte
	err := r.db.QueryRow(ctx, query, userID).Scan(&t.Calories, &t.Protein, &t.Carbs, &t.Fat, &t.Fiber, &micros)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nutrition.DefaultTargets(), nil
		}
		return nutrition.Targets{}, fmt.Errorf("failed to get nutrition targets: %w", err)
	}

	if micros == nil {
		t.Micros = nutrition.DefaultMicros()
		return t, nil
	}
	t.Micros = make(map[string]float64)
	if err := json.Unmarshal(micros, &t.Micros); err != nil || t.Micros == nil {
		t.Micros = nutrition.DefaultMicros()
	}
	return t, nil
}

// UpsertTargets stores a user's targets. A nil Micros map is stored as NULL.
func (r *NutritionRepository) UpsertTargets(ctx context.Context, userID uuid.UUID, t nutrition.Targets) error {
	const query = `
		INSERT INTO nutrition_targets (user_id, calories_target, protein_g_target, carbs_g_target, fat_g_target, fiber_g_target, micronutrient_targets, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			calories_target = EXCLUDED.calories_target,
			protein_g_target = EXCLUDED.protein_g_target,
			carbs_g_target = EXCLUDED.carbs_g_target,
			fat_g_target = EXCLUDED.fat_g_target,
			fiber_g_target = EXCLUDED.fiber_g_target,
			micronutrient_targets = EXCLUDED.micronutrient_targets,
			updated_at = NOW()
	`

	var micros any
	if t.Micros != nil {
		encoded, err := json.Marshal(t.Micros)
		if err != nil {
			return fmt.Errorf("failed to encode micronutrient targets: %w", err)
		}
		micros = encoded
	}

	if _, err := r.db.Exec(ctx, query, userID, t.Calories, t.Protein, t.Carbs, t.Fat, t.Fiber, micros); err != nil {
		return fmt.Errorf("failed to upsert nutrition targets: %w", err)
	}
	return nil
}

// ========== Food logs ==========

func scanFoodLog(row rowScanner) (*model.FoodLog, error) {
	var log model.FoodLog
	var snapshot []byte
	err := row.Scan(
		&log.ID,
		&log.UserID,
		&log.Date,
		&log.MealType,
		&log.SourceType,
		&log.SourceID,
		&log.Title,
		&log.Servings,
		&log.Quantity,
		&snapshot,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// Malformed snapshots score as empty.
	if err := json.Unmarshal(snapshot, &log.Snapshot); err != nil || log.Snapshot == nil {
		log.Snapshot = nutrition.Snapshot{}
	}
	return &log, nil
}

// CreateFoodLog stores a food log entry. ID is generated when zero.
func (r *NutritionRepository) CreateFoodLog(ctx context.Context, entry *model.FoodLog) (*model.FoodLog, error) {
	query := `
		INSERT INTO food_logs (id, user_id, log_date, meal_type, source_type, source_id, title, servings, quantity, nutrition_snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
		RETURNING ` + foodLogColumns

	id := entry.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	snapshot, err := json.Marshal(entry.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode nutrition snapshot: %w", err)
	}

	created, err := scanFoodLog(r.db.QueryRow(ctx, query,
		id, entry.UserID, entry.Date, entry.MealType, entry.SourceType, entry.SourceID,
		entry.Title, entry.Servings, entry.Quantity, snapshot,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create food log: %w", err)
	}
	return created, nil
}

// ListFoodLogs returns a user's food logs of one day in insertion order.
func (r *NutritionRepository) ListFoodLogs(ctx context.Context, userID uuid.UUID, day time.Time) ([]*model.FoodLog, error) {
	query := `
		SELECT ` + foodLogColumns + `
		FROM food_logs
		WHERE user_id = $1 AND log_date = $2
		ORDER BY created_at, id
	`

	rows, err := r.db.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list food logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.FoodLog
	for rows.Next() {
		entry, err := scanFoodLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food log: %w", err)
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating food logs: %w", err)
	}

	return logs, nil
}

// DeleteFoodLog removes a user's food log and returns the day it belonged to.
func (r *NutritionRepository) DeleteFoodLog(ctx context.Context, userID, logID uuid.UUID) (time.Time, error) {
	const query = `DELETE FROM food_logs WHERE id = $1 AND user_id = $2 RETURNING log_date`

	var day time.Time
	if err := r.db.QueryRow(ctx, query, logID, userID).Scan(&day); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, ErrFoodLogNotFound
		}
		return time.Time{}, fmt.Errorf("failed to delete food log: %w", err)
	}
	return day, nil
}

// CountFoodLogs counts every food log of a user.
func (r *NutritionRepository) CountFoodLogs(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM food_logs WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count food logs: %w", err)
	}
	return count, nil
}

// CountWholeFoodLogs counts food logs between from and to (inclusive) whose
// source is a recipe, cook mode or a meal plan.
func (r *NutritionRepository) CountWholeFoodLogs(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	const query = `
		SELECT COUNT(*) FROM food_logs
		WHERE user_id = $1 AND log_date BETWEEN $2 AND $3 AND source_type = ANY($4)
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, from, to, model.WholeFoodSources()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count whole-food logs: %w", err)
	}
	return count, nil
}

// ========== Daily summaries ==========

// UpsertSummary stores the rollup of one user-day, replacing any previous one.
func (r *NutritionRepository) UpsertSummary(ctx context.Context, s *model.DailyNutritionSummary) (*model.DailyNutritionSummary, error) {
	const query = `
		INSERT INTO daily_nutrition_summary (user_id, summary_date, totals, comparison, daily_score, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, summary_date) DO UPDATE SET
			totals = EXCLUDED.totals,
			comparison = EXCLUDED.comparison,
			daily_score = EXCLUDED.daily_score,
			updated_at = NOW()
		RETURNING user_id, summary_date, totals, comparison, daily_score, updated_at
	`

	totals, err := json.Marshal(s.Totals)
	if err != nil {
		return nil, fmt.Errorf("failed to encode totals: %w", err)
	}
	comparison, err := json.Marshal(s.Comparison)
	if err != nil {
		return nil, fmt.Errorf("failed to encode comparison: %w", err)
	}

	stored, err := scanSummary(r.db.QueryRow(ctx, query, s.UserID, s.Date, totals, comparison, s.DailyScore))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert nutrition summary: %w", err)
	}
	return stored, nil
}

func scanSummary(row rowScanner) (*model.DailyNutritionSummary, error) {
	var s model.DailyNutritionSummary
	var totals, comparison []byte
	if err := row.Scan(&s.UserID, &s.Date, &totals, &comparison, &s.DailyScore, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(totals, &s.Totals); err != nil {
		return nil, fmt.Errorf("failed to decode totals: %w", err)
	}
	if err := json.Unmarshal(comparison, &s.Comparison); err != nil {
		return nil, fmt.Errorf("failed to decode comparison: %w", err)
	}
	return &s, nil
}

// GetSummary returns the stored rollup of one user-day.
func (r *NutritionRepository) GetSummary(ctx context.Context, userID uuid.UUID, day time.Time) (*model.DailyNutritionSummary, error) {
	const query = `
		SELECT user_id, summary_date, totals, comparison, daily_score, updated_at
		FROM daily_nutrition_summary
		WHERE user_id = $1 AND summary_date = $2
	`

	s, err := scanSummary(r.db.QueryRow(ctx, query, userID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to get nutrition summary: %w", err)
	}
	return s, nil
}

// ListSummaries returns the rollups between from and to (inclusive), oldest first.
func (r *NutritionRepository) ListSummaries(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]*model.DailyNutritionSummary, error) {
	const query = `
		SELECT user_id, summary_date, totals, comparison, daily_score, updated_at
		FROM daily_nutrition_summary
		WHERE user_id = $1 AND summary_date BETWEEN $2 AND $3
		ORDER BY summary_date
	`

	rows, err := r.db.Query(ctx, query, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list nutrition summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*model.DailyNutritionSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan nutrition summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating nutrition summaries: %w", err)
	}

	return summaries, nil
}

// CountDaysAtOrAbove counts the days whose score reached floor.
func (r *NutritionRepository) CountDaysAtOrAbove(ctx context.Context, userID uuid.UUID, floor float64) (int, error) {
	const query = `
		SELECT COUNT(*) FROM daily_nutrition_summary
		WHERE user_id = $1 AND daily_score >= $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, userID, floor).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scored days: %w", err)
	}
	return count, nil
}
