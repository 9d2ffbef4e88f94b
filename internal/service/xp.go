package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/progression"
	"wholefood-engine/internal/repository"
)

// AwardResult describes one XP award. NewLevel and LevelTitle are set only
// when the award crossed a level boundary.
type AwardResult struct {
	XPGained   int64  `json:"xp_gained"`
	TotalXP    int64  `json:"total_xp"`
	Level      int    `json:"level"`
	NewLevel   int    `json:"new_level,omitempty"`
	LevelTitle string `json:"level_title,omitempty"`
	Reason     string `json:"reason"`
	ReasonKind string `json:"-"`
}

// ReconcileResult compares a user's cached XP with the ledger sum.
type ReconcileResult struct {
	Cached   int64 `json:"cached"`
	Ledger   int64 `json:"ledger"`
	Repaired bool  `json:"repaired"`
}

// XPService handles the XP ledger and leveling.
type XPService struct {
	store   *repository.Store
	metrics *metrics.Metrics
	clock   *Clock
}

// NewXPService creates a new XPService instance.
func NewXPService(store *repository.Store, m *metrics.Metrics, clock *Clock) *XPService {
	return &XPService{
		store:   store,
		metrics: m,
		clock:   clock,
	}
}

// AwardXP appends a ledger entry and adds amount to the user's total.
// Amounts of zero or less are rejected with ErrInvalidAmount.
func (s *XPService) AwardXP(ctx context.Context, userID uuid.UUID, amount int64, reason string) (*AwardResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if strings.TrimSpace(reason) == "" {
		return nil, ErrInvalidReason
	}

	j := newJournal(userID)
	var result *AwardResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		result, err = award(ctx, tx, j, userID, amount, reason)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award xp: %w", err)
	}

	j.publish(s.metrics)
	return result, nil
}

// AwardDaily awards XP at most once per user, reason kind and calendar day.
// The boolean is false when the day's award was already paid; the result
// then reports zero XP gained.
func (s *XPService) AwardDaily(ctx context.Context, userID uuid.UUID, amount int64, reason string, date time.Time) (*AwardResult, bool, error) {
	if amount <= 0 {
		return nil, false, ErrInvalidAmount
	}
	if strings.TrimSpace(reason) == "" {
		return nil, false, ErrInvalidReason
	}

	day := s.clock.Day(date)
	j := newJournal(userID)
	var result *AwardResult
	var awarded bool
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		result, awarded, err = awardDaily(ctx, tx, j, userID, amount, reason, day)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to award daily xp: %w", err)
	}

	j.publish(s.metrics)
	return result, awarded, nil
}

// Reconcile compares the cached total with the ledger sum and repairs the
// cache when they differ. The ledger is the source of truth.
func (s *XPService) Reconcile(ctx context.Context, userID uuid.UUID) (*ReconcileResult, error) {
	var result ReconcileResult
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		user, err := tx.Users.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		sum, err := tx.XP.SumByUser(ctx, userID)
		if err != nil {
			return err
		}

		result.Cached = user.XPPoints
		result.Ledger = sum
		if sum == user.XPPoints {
			return nil
		}
		if err := tx.Users.SetXP(ctx, userID, sum); err != nil {
			return err
		}
		result.Repaired = true
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to reconcile xp: %w", err)
	}

	if result.Repaired {
		log.Warn().
			Str("user_id", userID.String()).
			Int64("cached", result.Cached).
			Int64("ledger", result.Ledger).
			Msg("XP cache drifted from ledger, repaired")
	}
	return &result, nil
}

// ReconcileAll repairs up to batch users whose cached XP drifted from the
// ledger and returns how many were repaired.
func (s *XPService) ReconcileAll(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = 500
	}
	ids, err := s.store.XP.DriftedUsers(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("failed to reconcile xp: %w", err)
	}

	repaired := 0
	for _, id := range ids {
		res, err := s.Reconcile(ctx, id)
		if err != nil {
			return repaired, err
		}
		if res.Repaired {
			repaired++
		}
	}
	return repaired, nil
}

// GetHistory returns a user's most recent ledger entries.
func (s *XPService) GetHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*model.XPTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.store.XP.GetByUserID(ctx, userID, limit)
}

// award writes the ledger entry and the cached total inside tx.
func award(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, amount int64, reason string) (*AwardResult, error) {
	if _, err := tx.XP.Create(ctx, userID, amount, reason); err != nil {
		return nil, err
	}
	user, err := tx.Users.AddXP(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	result := newAwardResult(user.XPPoints-amount, user.XPPoints, reason)
	j.awards = append(j.awards, result)
	return result, nil
}

// awardDaily is award keyed by (reason kind, day). A second award of the same
// kind on the same day is a no-op reporting zero XP.
func awardDaily(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, amount int64, reason string, day time.Time) (*AwardResult, bool, error) {
	_, created, err := tx.XP.CreateDaily(ctx, userID, amount, reason, day)
	if err != nil {
		return nil, false, err
	}
	if !created {
		user, err := tx.Users.GetByID(ctx, userID)
		if err != nil {
			return nil, false, err
		}
		j.duplicates = append(j.duplicates, model.ReasonKind(reason))
		result := newAwardResult(user.XPPoints, user.XPPoints, reason)
		return result, false, nil
	}

	user, err := tx.Users.AddXP(ctx, userID, amount)
	if err != nil {
		return nil, false, err
	}
	result := newAwardResult(user.XPPoints-amount, user.XPPoints, reason)
	j.awards = append(j.awards, result)
	return result, true, nil
}

func newAwardResult(before, after int64, reason string) *AwardResult {
	result := &AwardResult{
		XPGained:   after - before,
		TotalXP:    after,
		Level:      progression.Level(after),
		Reason:     reason,
		ReasonKind: model.ReasonKind(reason),
	}
	if level, up := progression.LevelUp(before, after); up {
		result.NewLevel = level
		result.LevelTitle = progression.Title(level)
	}
	return result
}
