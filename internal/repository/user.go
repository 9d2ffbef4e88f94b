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

const userColumns = `id, name, xp_points, current_streak, longest_streak, last_active_date, created_at, updated_at`

// UserRepository handles user progression persistence.
type UserRepository struct {
	db DBTX
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.XPPoints,
		&user.CurrentStreak,
		&user.LongestStreak,
		&user.LastActiveDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// create inserts a user with zero XP. When the id already exists it returns
// (nil, false, nil).
func (r *UserRepository) create(ctx context.Context, id uuid.UUID, name string) (*model.User, bool, error) {
	query := `
		INSERT INTO users (id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO NOTHING
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	return user, true, nil
}

// GetByID retrieves a user by id.
// Returns ErrUserNotFound if the user does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetForUpdate retrieves a user and locks the row until the surrounding
// transaction ends. Only meaningful inside Store.InTx.
func (r *UserRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`

	user, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}
	return user, nil
}

// EnsureUser retrieves a user by id, creating one if it doesn't exist.
// The boolean reports whether the user was created by this call.
func (r *UserRepository) EnsureUser(ctx context.Context, id uuid.UUID, name string) (*model.User, bool, error) {
	user, err := r.GetByID(ctx, id)
	if err == nil {
		return user, false, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, false, err
	}

	user, created, err := r.create(ctx, id, name)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// Another request created the user first
		user, err = r.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
	}
	return user, created, nil
}

// AddXP adds amount to the cached XP total and returns the updated user.
// The ledger entry is written separately by XPRepository.
func (r *UserRepository) AddXP(ctx context.Context, id uuid.UUID, amount int64) (*model.User, error) {
	query := `
		UPDATE users
		SET xp_points = xp_points + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, amount))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to add xp: %w", err)
	}
	return user, nil
}

// SetXP overwrites the cached XP total. Used by ledger reconciliation.
func (r *UserRepository) SetXP(ctx context.Context, id uuid.UUID, xp int64) error {
	const query = `UPDATE users SET xp_points = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, xp)
	if err != nil {
		return fmt.Errorf("failed to set xp: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateActivityStreak stores the activity streak state.
func (r *UserRepository) UpdateActivityStreak(ctx context.Context, id uuid.UUID, current, longest int, lastActive *time.Time) (*model.User, error) {
	query := `
		UPDATE users
		SET current_streak = $2, longest_streak = $3, last_active_date = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(ctx, query, id, current, longest, lastActive))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update activity streak: %w", err)
	}
	return user, nil
}

// GetTopUsers retrieves the top N users by XP.
func (r *UserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY xp_points DESC, created_at ASC
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}
