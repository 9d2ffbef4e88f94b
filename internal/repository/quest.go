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
)

const questColumns = `id, user_id, quest_date, quest_type, title, description, target_value, current_value, xp_reward, completed, completed_at, metadata, created_at`

// QuestRepository handles daily quest persistence.
type QuestRepository struct {
	db DBTX
}

// NewQuestRepository creates a new QuestRepository instance.
func NewQuestRepository(db DBTX) *QuestRepository {
	return &QuestRepository{db: db}
}

func scanQuest(row rowScanner) (*model.DailyQuest, error) {
	var q model.DailyQuest
	var metadata []byte
	err := row.Scan(
		&q.ID,
		&q.UserID,
		&q.Date,
		&q.QuestType,
		&q.Title,
		&q.Description,
		&q.TargetValue,
		&q.CurrentValue,
		&q.XPReward,
		&q.Completed,
		&q.CompletedAt,
		&metadata,
		&q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &q.Metadata); err != nil || q.Metadata == nil {
		q.Metadata = map[string]any{}
	}
	return &q, nil
}

// ListByUserDate returns a user's quests of one day in pool order
// (general, logging, quality).
func (r *QuestRepository) ListByUserDate(ctx context.Context, userID uuid.UUID, day time.Time) ([]*model.DailyQuest, error) {
	query := `
		SELECT ` + questColumns + `
		FROM daily_quests
		WHERE user_id = $1 AND quest_date = $2
		ORDER BY array_position(ARRAY['general', 'logging', 'quality']::text[], quest_type::text), quest_type
	`

	rows, err := r.db.Query(ctx, query, userID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var quests []*model.DailyQuest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating quests: %w", err)
	}

	return quests, nil
}

// InsertIfAbsent stores a quest unless one of the same type already exists
// for that user-day. It reports whether the row was inserted.
func (r *QuestRepository) InsertIfAbsent(ctx context.Context, q *model.DailyQuest) (bool, error) {
	const query = `
		INSERT INTO daily_quests (id, user_id, quest_date, quest_type, title, description, target_value, current_value, xp_reward, completed, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8, FALSE, $9, NOW())
		ON CONFLICT (user_id, quest_date, quest_type) DO NOTHING
	`

	id := q.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	metadata, err := json.Marshal(q.Metadata)
	if err != nil {
		return false, fmt.Errorf("failed to encode quest metadata: %w", err)
	}

	result, err := r.db.Exec(ctx, query, id, q.UserID, q.Date, q.QuestType, q.Title, q.Description, q.TargetValue, q.XPReward, metadata)
	if err != nil {
		return false, fmt.Errorf("failed to insert quest: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

// GetForUpdate returns a quest locked until the surrounding transaction ends.
func (r *QuestRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.DailyQuest, error) {
	query := `SELECT ` + questColumns + ` FROM daily_quests WHERE id = $1 FOR UPDATE`

	q, err := scanQuest(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to lock quest: %w", err)
	}
	return q, nil
}

// SaveProgress stores a quest's progress. completed_at is stamped only on the
// transition to completed.
func (r *QuestRepository) SaveProgress(ctx context.Context, id uuid.UUID, current float64, completed bool) (*model.DailyQuest, error) {
	query := `
		UPDATE daily_quests
		SET current_value = $2,
			completed = $3,
			completed_at = CASE WHEN $3 AND NOT completed THEN NOW() ELSE completed_at END
		WHERE id = $1
		RETURNING ` + questColumns

	q, err := scanQuest(r.db.QueryRow(ctx, query, id, current, completed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to save quest progress: %w", err)
	}
	return q, nil
}
