package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/model"
)

// AchievementRepository handles the achievement catalog and unlock records.
type AchievementRepository struct {
	db DBTX
}

// NewAchievementRepository creates a new AchievementRepository instance.
func NewAchievementRepository(db DBTX) *AchievementRepository {
	return &AchievementRepository{db: db}
}

// SeedMissing inserts every definition whose name is not stored yet and
// returns how many were inserted. Existing rows are left untouched.
func (r *AchievementRepository) SeedMissing(ctx context.Context, defs []achievement.Def) (int, error) {
	const query = `
		INSERT INTO achievements (id, name, description, icon, xp_reward, category, criteria, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (name) DO NOTHING
	`

	inserted := 0
	for _, def := range defs {
		criteria, err := achievement.MarshalCriterion(def.Criterion)
		if err != nil {
			return inserted, fmt.Errorf("failed to encode criterion of %q: %w", def.Name, err)
		}

		id := def.ID
		if id == uuid.Nil {
			id = uuid.New()
		}

		result, err := r.db.Exec(ctx, query, id, def.Name, def.Description, def.Icon, def.XPReward, def.Category, criteria)
		if err != nil {
			return inserted, fmt.Errorf("failed to seed achievement %q: %w", def.Name, err)
		}
		inserted += int(result.RowsAffected())
	}
	return inserted, nil
}

// List returns the stored catalog ordered by category and reward.
func (r *AchievementRepository) List(ctx context.Context) ([]achievement.Def, error) {
	const query = `
		SELECT id, name, description, icon, xp_reward, category, criteria
		FROM achievements
		ORDER BY category, xp_reward, name
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	defer rows.Close()

	var defs []achievement.Def
	for rows.Next() {
		var def achievement.Def
		var criteria []byte
		err := rows.Scan(
			&def.ID,
			&def.Name,
			&def.Description,
			&def.Icon,
			&def.XPReward,
			&def.Category,
			&criteria,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}

		def.Criterion, err = achievement.ParseCriterion(criteria)
		if err != nil {
			// A corrupt row must not block the rest of the catalog.
			def.Criterion = achievement.Unknown{Type: "malformed"}
		}
		defs = append(defs, def)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	return defs, nil
}

// Count returns the number of stored achievements.
func (r *AchievementRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM achievements`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count achievements: %w", err)
	}
	return count, nil
}

// UnlockedIDs returns the set of achievement ids a user has unlocked.
func (r *AchievementRepository) UnlockedIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	const query = `SELECT achievement_id FROM user_achievements WHERE user_id = $1`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan unlocked achievement: %w", err)
		}
		unlocked[id] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unlocked achievements: %w", err)
	}

	return unlocked, nil
}

// Unlock records that a user unlocked an achievement. It returns false,
// without error, when the user already holds it.
func (r *AchievementRepository) Unlock(ctx context.Context, userID, achievementID uuid.UUID) (*model.UnlockRecord, bool, error) {
	const query = `
		INSERT INTO user_achievements (id, user_id, achievement_id, unlocked_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, achievement_id) DO NOTHING
		RETURNING unlocked_at
	`

	record := model.UnlockRecord{ID: uuid.New(), UserID: userID, AchievementID: achievementID}
	err := r.db.QueryRow(ctx, query, record.ID, userID, achievementID).Scan(&record.UnlockedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || IsUniqueViolation(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to unlock achievement: %w", err)
	}
	return &record, true, nil
}

// ListUnlocked returns a user's unlock records, newest first.
func (r *AchievementRepository) ListUnlocked(ctx context.Context, userID uuid.UUID) ([]*model.UnlockRecord, error) {
	const query = `
		SELECT id, user_id, achievement_id, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY unlocked_at DESC
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unlock records: %w", err)
	}
	defer rows.Close()

	var records []*model.UnlockRecord
	for rows.Next() {
		var rec model.UnlockRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.AchievementID, &rec.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan unlock record: %w", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating unlock records: %w", err)
	}

	return records, nil
}
