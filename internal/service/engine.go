package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/pkg/lock"
	"wholefood-engine/internal/repository"
)

// DefaultLockTimeout bounds how long an event waits for the same user's
// previous event to finish.
const DefaultLockTimeout = 5 * time.Second

// FoodLoggedEvent is a food-log submission together with any counters the
// caller already knows.
type FoodLoggedEvent struct {
	FoodLogInput
	Counts achievement.Counts
}

// FoodLoggedResult reports every state change a food-log submission caused.
type FoodLoggedResult struct {
	Log             *model.FoodLog        `json:"log"`
	Score           *DailyScore           `json:"score"`
	MealXP          *AwardResult          `json:"meal_xp,omitempty"`
	ActivityStreak  *ActivityStreakState  `json:"activity_streak"`
	NutritionStreak *NutritionStreakState `json:"nutrition_streak"`
	Unlocked        []UnlockedAchievement `json:"unlocked"`
}

// ActivityResult reports the state changes of a non-food activity event.
type ActivityResult struct {
	ActivityStreak *ActivityStreakState  `json:"activity_streak"`
	Unlocked       []UnlockedAchievement `json:"unlocked"`
}

// EngineService runs the full event pipelines. Events of one user are
// serialised in process; the database constraints hold across processes.
type EngineService struct {
	store        *repository.Store
	metrics      *metrics.Metrics
	locks        *lock.UserLock
	lockTimeout  time.Duration
	mealLogXP    int64
	nutrition    *NutritionService
	streaks      *StreakService
	achievements *AchievementService
}

// NewEngineService creates a new EngineService instance.
func NewEngineService(
	store *repository.Store,
	m *metrics.Metrics,
	locks *lock.UserLock,
	mealLogXP int64,
	nutritionSvc *NutritionService,
	streakSvc *StreakService,
	achievementSvc *AchievementService,
) *EngineService {
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &EngineService{
		store:        store,
		metrics:      m,
		locks:        locks,
		lockTimeout:  DefaultLockTimeout,
		mealLogXP:    mealLogXP,
		nutrition:    nutritionSvc,
		streaks:      streakSvc,
		achievements: achievementSvc,
	}
}

// OnFoodLogged stores a food entry and runs, in order and in one transaction:
// the day's score, the meal XP, the activity streak, the nutrition streak
// (with its tier bonus) and the achievement pass. Each stage reads what the
// previous one wrote.
func (e *EngineService) OnFoodLogged(ctx context.Context, ev FoodLoggedEvent) (*FoodLoggedResult, error) {
	j := newJournal(ev.UserID)
	var result FoodLoggedResult

	err := e.locks.WithLockContext(ctx, ev.UserID, e.lockTimeout, func() error {
		return e.store.InTx(ctx, func(tx *repository.Store) error {
			if err := ensureUser(ctx, tx, ev.UserID); err != nil {
				return err
			}

			entry, err := e.nutrition.logFood(ctx, tx, ev.FoodLogInput)
			if err != nil {
				return err
			}
			result.Log = entry
			day := entry.Date

			result.Score, err = e.nutrition.computeDailyScore(ctx, tx, j, ev.UserID, day)
			if err != nil {
				return err
			}

			if e.mealLogXP > 0 {
				result.MealXP, err = award(ctx, tx, j, ev.UserID, e.mealLogXP, model.ReasonMealLog)
				if err != nil {
					return err
				}
			}

			result.ActivityStreak, err = e.streaks.recordActivity(ctx, tx, j, ev.UserID, day)
			if err != nil {
				return err
			}

			result.NutritionStreak, err = e.streaks.updateNutrition(ctx, tx, j, ev.UserID, result.Score.Score, day)
			if err != nil {
				return err
			}

			result.Unlocked, err = e.achievements.evaluate(ctx, tx, j, ev.UserID, ev.Counts)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, ErrInvalidSource) || errors.Is(err, lock.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to process food log: %w", err)
	}

	j.publish(e.metrics)
	return &result, nil
}

// OnActivity records a non-food activity (a saved recipe, a generated plan)
// for the activity streak and runs the achievement pass.
func (e *EngineService) OnActivity(ctx context.Context, userID uuid.UUID, date time.Time, counts achievement.Counts) (*ActivityResult, error) {
	j := newJournal(userID)
	var result ActivityResult

	err := e.locks.WithLockContext(ctx, userID, e.lockTimeout, func() error {
		return e.store.InTx(ctx, func(tx *repository.Store) error {
			if err := ensureUser(ctx, tx, userID); err != nil {
				return err
			}

			var err error
			result.ActivityStreak, err = e.streaks.recordActivity(ctx, tx, j, userID, e.streaks.clock.Day(date))
			if err != nil {
				return err
			}

			result.Unlocked, err = e.achievements.evaluate(ctx, tx, j, userID, counts)
			return err
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to process activity: %w", err)
	}

	j.publish(e.metrics)
	return &result, nil
}
