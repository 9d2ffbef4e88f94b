package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wholefood-engine/internal/model"
)

const nutritionStreakColumns = `user_id, current_streak, longest_streak, last_qualifying_date, threshold, updated_at`

// NutritionStreakRepository handles the nutrition-quality streak rows.
type NutritionStreakRepository struct {
	db DBTX
}

// NewNutritionStreakRepository creates a new NutritionStreakRepository instance.
func NewNutritionStreakRepository(db DBTX) *NutritionStreakRepository {
	return &NutritionStreakRepository{db: db}
}

func scanNutritionStreak(row rowScanner) (*model.NutritionStreak, error) {
	var s model.NutritionStreak
	err := row.Scan(
		&s.UserID,
		&s.CurrentStreak,
		&s.LongestStreak,
		&s.LastQualifyingDate,
		&s.Threshold,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get returns a user's nutrition streak.
// Returns ErrStreakNotFound if no qualifying event has been recorded yet.
func (r *NutritionStreakRepository) Get(ctx context.Context, userID uuid.UUID) (*model.NutritionStreak, error) {
	query := `SELECT ` + nutritionStreakColumns + ` FROM nutrition_streaks WHERE user_id = $1`

	s, err := scanNutritionStreak(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to get nutrition streak: %w", err)
	}
	return s, nil
}

// EnsureForUpdate creates the streak row if missing and returns it locked
// until the surrounding transaction ends.
func (r *NutritionStreakRepository) EnsureForUpdate(ctx context.Context, userID uuid.UUID, threshold float64) (*model.NutritionStreak, error) {
	const insert = `
		INSERT INTO nutrition_streaks (user_id, threshold, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, insert, userID, threshold); err != nil {
		return nil, fmt.Errorf("failed to create nutrition streak: %w", err)
	}

	query := `SELECT ` + nutritionStreakColumns + ` FROM nutrition_streaks WHERE user_id = $1 FOR UPDATE`
	s, err := scanNutritionStreak(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock nutrition streak: %w", err)
	}
	return s, nil
}

// Save stores the streak counters.
func (r *NutritionStreakRepository) Save(ctx context.Context, userID uuid.UUID, current, longest int, lastQualifying *time.Time) (*model.NutritionStreak, error) {
	query := `
		UPDATE nutrition_streaks
		SET current_streak = $2, longest_streak = $3, last_qualifying_date = $4, updated_at = NOW()
		WHERE user_id = $1
		RETURNING ` + nutritionStreakColumns

	s, err := scanNutritionStreak(r.db.QueryRow(ctx, query, userID, current, longest, lastQualifying))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStreakNotFound
		}
		return nil, fmt.Errorf("failed to save nutrition streak: %w", err)
	}
	return s, nil
}
