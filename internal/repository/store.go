// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Common errors for repository operations.
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrAchievementNotFound = errors.New("achievement not found")
	ErrFoodLogNotFound     = errors.New("food log not found")
	ErrQuestNotFound       = errors.New("quest not found")
	ErrStreakNotFound      = errors.New("nutrition streak not found")
	ErrSummaryNotFound     = errors.New("nutrition summary not found")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// runs unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// rowScanner is the common Scan method of pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// Store bundles the repositories over one connection handle.
type Store struct {
	pool *pgxpool.Pool
	tx   pgx.Tx

	Users        *UserRepository
	XP           *XPRepository
	Achievements *AchievementRepository
	Nutrition    *NutritionRepository
	Streaks      *NutritionStreakRepository
	Quests       *QuestRepository
	Counters     *CounterRepository
}

// NewStore creates a Store backed by the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return newStore(pool, pool, nil)
}

func newStore(pool *pgxpool.Pool, db DBTX, tx pgx.Tx) *Store {
	return &Store{
		pool:         pool,
		tx:           tx,
		Users:        NewUserRepository(db),
		XP:           NewXPRepository(db),
		Achievements: NewAchievementRepository(db),
		Nutrition:    NewNutritionRepository(db),
		Streaks:      NewNutritionStreakRepository(db),
		Quests:       NewQuestRepository(db),
		Counters:     NewCounterRepository(db),
	}
}

// InTx runs fn with a Store bound to a single transaction, committing when fn
// returns nil and rolling back otherwise. Calling InTx on a Store that is
// already transactional reuses the open transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx *Store) error) error {
	if s.tx != nil {
		return fn(s)
	}
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(newStore(s.pool, tx, tx))
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
