package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/model"
	"wholefood-engine/internal/nutrition"
	"wholefood-engine/internal/pkg/testdb"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newUser(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, created, err := NewUserRepository(pool).EnsureUser(context.Background(), id, "tester")
	require.NoError(t, err)
	require.True(t, created)
	return id
}

// ============================================================================
// UserRepository Tests
// ============================================================================

func TestUserRepository_EnsureUser(t *testing.T) {
	pool := testdb.New(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	id := uuid.New()

	user, created, err := repo.EnsureUser(ctx, id, "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int64(0), user.XPPoints)
	assert.Nil(t, user.LastActiveDate)

	again, created, err := repo.EnsureUser(ctx, id, "ignored")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "alice", again.Name)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserRepository_AddXPAndTopUsers(t *testing.T) {
	pool := testdb.New(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()

	low := newUser(t, pool)
	high := newUser(t, pool)

	_, err := repo.AddXP(ctx, low, 100)
	require.NoError(t, err)
	user, err := repo.AddXP(ctx, high, 950)
	require.NoError(t, err)
	assert.Equal(t, int64(950), user.XPPoints)

	top, err := repo.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, high, top[0].ID)
	assert.Equal(t, low, top[1].ID)
}

func TestUserRepository_UpdateActivityStreak(t *testing.T) {
	pool := testdb.New(t)
	repo := NewUserRepository(pool)
	ctx := context.Background()
	id := newUser(t, pool)

	last := day("2024-01-06")
	user, err := repo.UpdateActivityStreak(ctx, id, 4, 9, &last)
	require.NoError(t, err)
	assert.Equal(t, 4, user.CurrentStreak)
	assert.Equal(t, 9, user.LongestStreak)
	require.NotNil(t, user.LastActiveDate)
	assert.True(t, last.Equal(*user.LastActiveDate))
}

// ============================================================================
// XPRepository Tests
// ============================================================================

func TestXPRepository_CreateDailyOncePerDay(t *testing.T) {
	pool := testdb.New(t)
	repo := NewXPRepository(pool)
	ctx := context.Background()
	id := newUser(t, pool)
	today := day("2024-03-10")

	tx, created, err := repo.CreateDaily(ctx, id, 50, model.Reason(model.ReasonNutritionTier, "bronze"), today)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, model.ReasonNutritionTier, tx.ReasonKind)

	// Same kind, same day, different tier: still only one.
	tx, created, err = repo.CreateDaily(ctx, id, 200, model.Reason(model.ReasonNutritionTier, "gold"), today)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, tx)

	_, created, err = repo.CreateDaily(ctx, id, 50, model.Reason(model.ReasonNutritionTier, "bronze"), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.True(t, created)

	count, err := repo.CountByReasonPrefix(ctx, id, model.ReasonNutritionTier+":")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	sum, err := repo.SumByUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(100), sum)
}

func TestXPRepository_UndatedEntriesNeverConflict(t *testing.T) {
	pool := testdb.New(t)
	repo := NewXPRepository(pool)
	ctx := context.Background()
	id := newUser(t, pool)

	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, id, 50, model.ReasonMealLog)
		require.NoError(t, err)
	}

	count, err := repo.CountByReasonPrefix(ctx, id, model.ReasonMealLog)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	history, err := repo.GetByUserID(ctx, id, 2)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `quest:50\% off`, escapeLike("quest:50% off"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
}

// ============================================================================
// AchievementRepository Tests
// ============================================================================

func TestAchievementRepository_SeedMissingIsIdempotent(t *testing.T) {
	pool := testdb.New(t)
	repo := NewAchievementRepository(pool)
	ctx := context.Background()
	catalog := achievement.Catalog()

	inserted, err := repo.SeedMissing(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, len(catalog), inserted)

	inserted, err = repo.SeedMissing(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	defs, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, defs, len(catalog))
	for _, def := range defs {
		_, unknown := def.Criterion.(achievement.Unknown)
		assert.False(t, unknown, def.Name)
	}
}

func TestAchievementRepository_MalformedCriteria(t *testing.T) {
	pool := testdb.New(t)
	repo := NewAchievementRepository(pool)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO achievements (id, name, criteria) VALUES
			($1, 'Broken', '{"type": 5}'),
			($2, 'Future', '{"type": "moon_landing", "target": 1}')
	`, uuid.New(), uuid.New())
	require.NoError(t, err)

	defs, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)

	kinds := map[string]achievement.Criterion{}
	for _, def := range defs {
		kinds[def.Name] = def.Criterion
	}
	assert.Equal(t, achievement.Unknown{Type: "malformed"}, kinds["Broken"])
	assert.Equal(t, achievement.Unknown{Type: "moon_landing"}, kinds["Future"])
}

func TestAchievementRepository_UnlockAtMostOnce(t *testing.T) {
	pool := testdb.New(t)
	repo := NewAchievementRepository(pool)
	ctx := context.Background()
	userID := newUser(t, pool)

	_, err := repo.SeedMissing(ctx, achievement.Catalog()[:1])
	require.NoError(t, err)
	defs, err := repo.List(ctx)
	require.NoError(t, err)
	achID := defs[0].ID

	rec, created, err := repo.Unlock(ctx, userID, achID)
	require.NoError(t, err)
	require.True(t, created)
	assert.False(t, rec.UnlockedAt.IsZero())

	rec, created, err = repo.Unlock(ctx, userID, achID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, rec)

	var count int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM user_achievements WHERE user_id = $1 AND achievement_id = $2`, userID, achID).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ids, err := repo.UnlockedIDs(ctx, userID)
	require.NoError(t, err)
	assert.True(t, ids[achID])
}

// ============================================================================
// NutritionRepository Tests
// ============================================================================

func TestNutritionRepository_TargetsDefaults(t *testing.T) {
	pool := testdb.New(t)
	repo := NewNutritionRepository(pool)
	ctx := context.Background()
	userID := newUser(t, pool)

	targets, err := repo.GetTargets(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, nutrition.DefaultTargets(), targets)

	// NULL micronutrients fall back to the essential defaults.
	custom := nutrition.Targets{Calories: 2000, Protein: 150, Carbs: 200, Fat: 70, Fiber: 35}
	require.NoError(t, repo.UpsertTargets(ctx, userID, custom))
	targets, err = repo.GetTargets(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 150.0, targets.Protein)
	assert.Equal(t, nutrition.DefaultMicros(), targets.Micros)

	// An explicit empty object means no micronutrient targets.
	custom.Micros = map[string]float64{}
	require.NoError(t, repo.UpsertTargets(ctx, userID, custom))
	targets, err = repo.GetTargets(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, targets.Micros)
}

func TestNutritionRepository_FoodLogsAndSummaries(t *testing.T) {
	pool := testdb.New(t)
	repo := NewNutritionRepository(pool)
	ctx := context.Background()
	userID := newUser(t, pool)
	today := day("2024-05-01")

	for _, source := range []string{model.SourceManual, model.SourceRecipe, model.SourceMealPlan} {
		_, err := repo.CreateFoodLog(ctx, &model.FoodLog{
			UserID:     userID,
			Date:       today,
			MealType:   "lunch",
			SourceType: source,
			Title:      source,
			Servings:   1,
			Quantity:   1,
			Snapshot:   nutrition.Snapshot{"protein_g": 20.0},
		})
		require.NoError(t, err)
	}

	logs, err := repo.ListFoodLogs(ctx, userID, today)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, 20.0, nutrition.MacroValue(logs[0].Snapshot, nutrition.Protein))

	whole, err := repo.CountWholeFoodLogs(ctx, userID, today.AddDate(0, 0, -6), today)
	require.NoError(t, err)
	assert.Equal(t, 2, whole)

	logDay, err := repo.DeleteFoodLog(ctx, userID, logs[0].ID)
	require.NoError(t, err)
	assert.True(t, today.Equal(logDay))
	_, err = repo.DeleteFoodLog(ctx, userID, logs[0].ID)
	assert.ErrorIs(t, err, ErrFoodLogNotFound)

	for i, score := range []float64{59.9, 60, 91} {
		_, err := repo.UpsertSummary(ctx, &model.DailyNutritionSummary{
			UserID:     userID,
			Date:       today.AddDate(0, 0, -i),
			Totals:     map[string]float64{"protein": 10},
			Comparison: map[string]nutrition.Comparison{"protein": {Consumed: 10, Target: 100, Pct: 10}},
			DailyScore: score,
		})
		require.NoError(t, err)
	}

	bronze, err := repo.CountDaysAtOrAbove(ctx, userID, nutrition.TierBronze.Floor())
	require.NoError(t, err)
	assert.Equal(t, 2, bronze)

	summaries, err := repo.ListSummaries(ctx, userID, today.AddDate(0, 0, -6), today)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Equal(t, 91.0, summaries[0].DailyScore)
	assert.Equal(t, 10.0, summaries[2].Comparison["protein"].Pct)

	_, err = repo.GetSummary(ctx, userID, today.AddDate(0, 0, -10))
	assert.ErrorIs(t, err, ErrSummaryNotFound)
}

// ============================================================================
// NutritionStreakRepository Tests
// ============================================================================

func TestNutritionStreakRepository_EnsureAndSave(t *testing.T) {
	pool := testdb.New(t)
	repo := NewNutritionStreakRepository(pool)
	ctx := context.Background()
	userID := newUser(t, pool)

	_, err := repo.Get(ctx, userID)
	assert.ErrorIs(t, err, ErrStreakNotFound)

	s, err := repo.EnsureForUpdate(ctx, userID, 60)
	require.NoError(t, err)
	assert.Equal(t, 0, s.CurrentStreak)
	assert.Equal(t, 60.0, s.Threshold)

	last := day("2024-02-02")
	s, err = repo.Save(ctx, userID, 3, 5, &last)
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 5, s.LongestStreak)

	// A second ensure keeps the stored row.
	s, err = repo.EnsureForUpdate(ctx, userID, 80)
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, 60.0, s.Threshold)
}

// ============================================================================
// QuestRepository Tests
// ============================================================================

func TestQuestRepository_InsertIfAbsentAndProgress(t *testing.T) {
	pool := testdb.New(t)
	repo := NewQuestRepository(pool)
	ctx := context.Background()
	userID := newUser(t, pool)
	today := day("2024-07-04")

	q := &model.DailyQuest{
		UserID:      userID,
		Date:        today,
		QuestType:   "logging",
		Title:       "Log 3 meals today",
		TargetValue: 3,
		XPReward:    75,
		Metadata:    map[string]any{"metric": "meals_logged"},
	}
	inserted, err := repo.InsertIfAbsent(ctx, q)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.InsertIfAbsent(ctx, q)
	require.NoError(t, err)
	assert.False(t, inserted)

	quests, err := repo.ListByUserDate(ctx, userID, today)
	require.NoError(t, err)
	require.Len(t, quests, 1)
	assert.Equal(t, "meals_logged", quests[0].Metric())

	saved, err := repo.SaveProgress(ctx, quests[0].ID, 2, false)
	require.NoError(t, err)
	assert.Nil(t, saved.CompletedAt)

	saved, err = repo.SaveProgress(ctx, quests[0].ID, 3, true)
	require.NoError(t, err)
	assert.True(t, saved.Completed)
	require.NotNil(t, saved.CompletedAt)

	_, err = repo.GetForUpdate(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrQuestNotFound)
}

// ============================================================================
// CounterRepository Tests
// ============================================================================

func TestCounterRepository_CountAll(t *testing.T) {
	pool := testdb.New(t)
	ctx := context.Background()
	userID := newUser(t, pool)

	_, err := pool.Exec(ctx, `INSERT INTO cuisine_views (user_id, cuisine) VALUES ($1, 'Thai'), ($1, 'thai'), ($1, 'Greek')`, userID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `INSERT INTO saved_recipes (user_id) VALUES ($1)`, userID)
	require.NoError(t, err)
	_, err = NewXPRepository(pool).Create(ctx, userID, 10, model.Reason(model.ReasonHealthify, "pasta"))
	require.NoError(t, err)

	counts, err := NewCounterRepository(pool).CountAll(ctx, userID, []achievement.Counter{
		achievement.CounterCuisines,
		achievement.CounterSavedRecipe,
		achievement.CounterHealthify,
		achievement.CounterGrocery,
		achievement.Counter("unknown_counter"),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts[achievement.CounterCuisines])
	assert.Equal(t, int64(1), counts[achievement.CounterSavedRecipe])
	assert.Equal(t, int64(1), counts[achievement.CounterHealthify])
	assert.Equal(t, int64(0), counts[achievement.CounterGrocery])
	assert.Equal(t, int64(0), counts[achievement.Counter("unknown_counter")])
}

// ============================================================================
// Store Tests
// ============================================================================

func TestStore_InTxRollsBack(t *testing.T) {
	pool := testdb.New(t)
	store := NewStore(pool)
	ctx := context.Background()
	userID := newUser(t, pool)

	err := store.InTx(ctx, func(tx *Store) error {
		if _, err := tx.Users.AddXP(ctx, userID, 100); err != nil {
			return err
		}
		// Nested calls share the transaction.
		return tx.InTx(ctx, func(inner *Store) error {
			_, err := inner.XP.Create(ctx, userID, -1, "invalid")
			return err
		})
	})
	require.Error(t, err)

	user, err := store.Users.GetByID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.XPPoints)
}
