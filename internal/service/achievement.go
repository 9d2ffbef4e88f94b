package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/nutrition"
	"wholefood-engine/internal/repository"
)

// UnlockedAchievement is an achievement newly unlocked by an evaluation pass.
type UnlockedAchievement struct {
	ID          uuid.UUID    `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Category    string       `json:"category"`
	XPReward    int64        `json:"xp_reward"`
	UnlockedAt  time.Time    `json:"unlocked_at"`
	Award       *AwardResult `json:"award,omitempty"`
}

// AchievementStatus is a catalog entry together with the user's progress on it.
type AchievementStatus struct {
	achievement.Def
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

// AchievementService seeds the catalog and unlocks achievements.
type AchievementService struct {
	store   *repository.Store
	metrics *metrics.Metrics
	clock   *Clock
}

// NewAchievementService creates a new AchievementService instance.
func NewAchievementService(store *repository.Store, m *metrics.Metrics, clock *Clock) *AchievementService {
	return &AchievementService{
		store:   store,
		metrics: m,
		clock:   clock,
	}
}

// SeedCatalog inserts the catalog entries missing by name and returns how
// many were inserted. Running it again inserts nothing.
func (s *AchievementService) SeedCatalog(ctx context.Context) (int, error) {
	var inserted int
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		inserted, err = tx.Achievements.SeedMissing(ctx, achievement.Catalog())
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to seed achievements: %w", err)
	}

	log.Info().Int("inserted", inserted).Msg("Achievement catalog seeded")
	return inserted, nil
}

// EvaluateAndUnlock unlocks every pending achievement whose criterion is met
// and pays its XP, all in one transaction. counts may pre-supply collaborator
// counters; the rest are read from storage. An achievement unlocked by a
// concurrent pass is dropped from the result, not reported as an error.
func (s *AchievementService) EvaluateAndUnlock(ctx context.Context, userID uuid.UUID, counts achievement.Counts) ([]UnlockedAchievement, error) {
	j := newJournal(userID)
	var unlocked []UnlockedAchievement
	err := s.store.InTx(ctx, func(tx *repository.Store) error {
		if err := ensureUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		unlocked, err = s.evaluate(ctx, tx, j, userID, counts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate achievements: %w", err)
	}

	j.publish(s.metrics)
	return unlocked, nil
}

// ListWithStatus returns the whole catalog with the user's unlock state.
func (s *AchievementService) ListWithStatus(ctx context.Context, userID uuid.UUID) ([]AchievementStatus, error) {
	defs, err := s.store.Achievements.List(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.store.Achievements.ListUnlocked(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlockedAt := make(map[uuid.UUID]time.Time, len(records))
	for _, rec := range records {
		unlockedAt[rec.AchievementID] = rec.UnlockedAt
	}

	statuses := make([]AchievementStatus, 0, len(defs))
	for _, def := range defs {
		status := AchievementStatus{Def: def}
		if at, ok := unlockedAt[def.ID]; ok {
			status.Unlocked = true
			status.UnlockedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (s *AchievementService) evaluate(ctx context.Context, tx *repository.Store, j *journal, userID uuid.UUID, counts achievement.Counts) ([]UnlockedAchievement, error) {
	// Serialises concurrent passes for the same user.
	user, err := tx.Users.GetForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}

	defs, err := tx.Achievements.List(ctx)
	if err != nil {
		return nil, err
	}
	unlockedIDs, err := tx.Achievements.UnlockedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	pending := achievement.Pending(defs, unlockedIDs)
	if len(pending) == 0 {
		return nil, nil
	}

	snap, err := s.snapshot(ctx, tx, user, achievement.Require(pending), counts)
	if err != nil {
		return nil, err
	}

	met, unknown := achievement.Evaluate(pending, unlockedIDs, snap)
	j.unknown = append(j.unknown, unknown...)

	var unlocked []UnlockedAchievement
	for _, def := range met {
		rec, created, err := tx.Achievements.Unlock(ctx, userID, def.ID)
		if err != nil {
			return nil, err
		}
		if !created {
			j.conflicts++
			continue
		}

		u := UnlockedAchievement{
			ID:          def.ID,
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Category:    def.Category,
			XPReward:    def.XPReward,
			UnlockedAt:  rec.UnlockedAt,
		}
		if def.XPReward > 0 {
			u.Award, err = award(ctx, tx, j, userID, def.XPReward, model.Reason(model.ReasonAchievement, def.Name))
			if err != nil {
				return nil, err
			}
		}
		unlocked = append(unlocked, u)
	}

	j.unlocks = append(j.unlocks, unlocked...)
	return unlocked, nil
}

// snapshot loads what the pending achievements need. Supplied counts win over
// stored ones; anything absent is zero.
func (s *AchievementService) snapshot(ctx context.Context, tx *repository.Store, user *model.User, needs achievement.Needs, supplied achievement.Counts) (achievement.Snapshot, error) {
	snap := achievement.Snapshot{
		XP:             user.XPPoints,
		ActivityStreak: user.CurrentStreak,
		Counts:         make(achievement.Counts, len(needs.Counters)),
	}

	var missing []achievement.Counter
	for _, counter := range needs.Counters {
		if v, ok := supplied[counter]; ok {
			snap.Counts[counter] = v
			continue
		}
		missing = append(missing, counter)
	}
	if len(missing) > 0 {
		resolved, err := tx.Counters.CountAll(ctx, user.ID, missing)
		if err != nil {
			return snap, err
		}
		for counter, v := range resolved {
			snap.Counts[counter] = v
		}
	}

	streakRow, err := tx.Streaks.Get(ctx, user.ID)
	switch {
	case err == nil:
		snap.NutritionStreak = streakRow.CurrentStreak
	case !errors.Is(err, repository.ErrStreakNotFound):
		return snap, err
	}

	if len(needs.Tiers) > 0 {
		snap.TierDays = make(map[nutrition.Tier]int, len(needs.Tiers))
		for _, tier := range needs.Tiers {
			days, err := tx.Nutrition.CountDaysAtOrAbove(ctx, user.ID, tier.Floor())
			if err != nil {
				return snap, err
			}
			snap.TierDays[tier] = days
		}
	}

	today := s.clock.Today()
	weekStart := today.AddDate(0, 0, -(achievement.WeekDays - 1))

	if needs.Week {
		summaries, err := tx.Nutrition.ListSummaries(ctx, user.ID, weekStart, today)
		if err != nil {
			return snap, err
		}
		for _, summary := range summaries {
			snap.Week = append(snap.Week, achievement.DayComparison{
				Date:       summary.Date,
				Comparison: summary.Comparison,
			})
		}
	}

	if needs.WholeFood {
		meals, err := tx.Nutrition.CountWholeFoodLogs(ctx, user.ID, weekStart, today)
		if err != nil {
			return snap, err
		}
		snap.WholeFoodMeals = meals
	}

	return snap, nil
}
