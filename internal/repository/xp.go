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

const xpColumns = `id, user_id, amount, reason, reason_kind, award_date, created_at`

// XPRepository handles the append-only XP ledger.
type XPRepository struct {
	db DBTX
}

// NewXPRepository creates a new XPRepository instance.
func NewXPRepository(db DBTX) *XPRepository {
	return &XPRepository{db: db}
}

func scanXP(row rowScanner) (*model.XPTransaction, error) {
	var tx model.XPTransaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Amount,
		&tx.Reason,
		&tx.ReasonKind,
		&tx.AwardDate,
		&tx.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a ledger entry.
func (r *XPRepository) Create(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*model.XPTransaction, error) {
	query := `
		INSERT INTO xp_transactions (user_id, amount, reason, reason_kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING ` + xpColumns

	tx, err := scanXP(r.db.QueryRow(ctx, query, userID, amount, reason, model.ReasonKind(reason)))
	if err != nil {
		return nil, fmt.Errorf("failed to create xp transaction: %w", err)
	}
	return tx, nil
}

// CreateDaily appends a ledger entry that may exist at most once per user,
// reason kind and day. When one already exists it returns (nil, false, nil).
func (r *XPRepository) CreateDaily(ctx context.Context, userID uuid.UUID, amount int64, reason string, day time.Time) (*model.XPTransaction, bool, error) {
	query := `
		INSERT INTO xp_transactions (user_id, amount, reason, reason_kind, award_date, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (user_id, reason_kind, award_date) WHERE award_date IS NOT NULL DO NOTHING
		RETURNING ` + xpColumns

	tx, err := scanXP(r.db.QueryRow(ctx, query, userID, amount, reason, model.ReasonKind(reason), day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to create daily xp transaction: %w", err)
	}
	return tx, true, nil
}

// CountByReasonPrefix counts ledger entries whose reason starts with prefix.
func (r *XPRepository) CountByReasonPrefix(ctx context.Context, userID uuid.UUID, prefix string) (int64, error) {
	const query = `
		SELECT COUNT(*) FROM xp_transactions
		WHERE user_id = $1 AND reason LIKE $2 || '%'
	`

	var count int64
	if err := r.db.QueryRow(ctx, query, userID, escapeLike(prefix)).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count xp transactions: %w", err)
	}
	return count, nil
}

// SumByUser sums every ledger entry of a user.
func (r *XPRepository) SumByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM xp_transactions WHERE user_id = $1`

	var sum int64
	if err := r.db.QueryRow(ctx, query, userID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum xp: %w", err)
	}
	return sum, nil
}

// SumSince sums the ledger entries of a user created at or after since.
func (r *XPRepository) SumSince(ctx context.Context, userID uuid.UUID, since time.Time) (int64, error) {
	const query = `
		SELECT COALESCE(SUM(amount), 0) FROM xp_transactions
		WHERE user_id = $1 AND created_at >= $2
	`

	var sum int64
	if err := r.db.QueryRow(ctx, query, userID, since).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum xp: %w", err)
	}
	return sum, nil
}

// DriftedUsers returns users whose cached XP differs from their ledger sum.
func (r *XPRepository) DriftedUsers(ctx context.Context, limit int) ([]uuid.UUID, error) {
	const query = `
		SELECT u.id
		FROM users u
		LEFT JOIN (
			SELECT user_id, SUM(amount) AS total
			FROM xp_transactions
			GROUP BY user_id
		) l ON l.user_id = u.id
		WHERE u.xp_points <> COALESCE(l.total, 0)
		ORDER BY u.id
		LIMIT $1
	`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find drifted users: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetByUserID retrieves a user's ledger entries, newest first.
func (r *XPRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*model.XPTransaction, error) {
	query := `
		SELECT ` + xpColumns + `
		FROM xp_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get xp transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.XPTransaction
	for rows.Next() {
		tx, err := scanXP(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan xp transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating xp transactions: %w", err)
	}

	return transactions, nil
}

// escapeLike escapes LIKE wildcards in a literal prefix.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '%' || r == '_' || r == '\\' {
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
