package achievement

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wholefood-engine/internal/nutrition"
)

func withIDs(defs []Def) []Def {
	for i := range defs {
		defs[i].ID = uuid.New()
	}
	return defs
}

func names(defs []Def) []string {
	out := make([]string, len(defs))
	for i, def := range defs {
		out[i] = def.Name
	}
	return out
}

func day(pcts map[string]float64) DayComparison {
	cmp := make(map[string]nutrition.Comparison, len(pcts))
	for k, pct := range pcts {
		cmp[k] = nutrition.Comparison{Pct: pct}
	}
	return DayComparison{Date: time.Now(), Comparison: cmp}
}

// ============================================================================
// Catalog
// ============================================================================

func TestCatalog_NamesUnique(t *testing.T) {
	seen := make(map[string]bool)
	for _, def := range Catalog() {
		assert.False(t, seen[def.Name], "duplicate name %q", def.Name)
		seen[def.Name] = true
		assert.NotEmpty(t, def.Description)
		assert.NotEmpty(t, def.Icon)
		assert.Greater(t, def.XPReward, int64(0))
		require.NotNil(t, def.Criterion)
	}
}

func TestCatalog_CriteriaRoundTrip(t *testing.T) {
	for _, def := range Catalog() {
		data, err := MarshalCriterion(def.Criterion)
		require.NoError(t, err, def.Name)

		parsed, err := ParseCriterion(data)
		require.NoError(t, err, def.Name)
		assert.Equal(t, def.Criterion, parsed, def.Name)
	}
}

// ============================================================================
// Criterion codec
// ============================================================================

func TestParseCriterion(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected Criterion
	}{
		{"streak", `{"type":"streak","target":7}`, Streak{Target: 7}},
		{"level", `{"type":"level","target":5}`, Level{Target: 5}},
		{"counter", `{"type":"saved_recipe_count","target":25}`, Count{Counter: CounterSavedRecipe, Target: 25}},
		{"gold days", `{"type":"gold_days","target":1}`, TierDays{Tier: nutrition.TierGold, Target: 1}},
		{"nutrient hit", `{"type":"weekly_nutrient_hit","nutrient":"iron_mg","days_required":4}`,
			WeeklyNutrientHit{Nutrient: "iron_mg", DaysRequired: 4}},
		{"macro master", `{"type":"macro_master_week","days_required":5}`, MacroMasterWeek{DaysRequired: 5}},
		{"whole food", `{"type":"whole_food_week","meal_count":14}`, WholeFoodWeek{MealCount: 14}},
		{"unknown", `{"type":"moon_landing","target":1}`, Unknown{Type: "moon_landing"}},
		{"missing type", `{}`, Unknown{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := ParseCriterion([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)
		})
	}
}

func TestParseCriterion_Malformed(t *testing.T) {
	_, err := ParseCriterion([]byte(`{"type":`))
	assert.Error(t, err)
}

// ============================================================================
// Evaluate
// ============================================================================

func TestEvaluate_SkipsUnlockedAndReportsUnknown(t *testing.T) {
	defs := withIDs([]Def{
		{Name: "Three", Criterion: Streak{Target: 3}},
		{Name: "Seven", Criterion: Streak{Target: 7}},
		{Name: "Mystery", Criterion: Unknown{Type: "mystery"}},
		{Name: "Done", Criterion: Streak{Target: 1}},
	})
	unlocked := map[uuid.UUID]bool{defs[3].ID: true}

	met, unknown := Evaluate(defs, unlocked, Snapshot{ActivityStreak: 5})

	assert.Equal(t, []string{"Three"}, names(met))
	assert.Equal(t, []string{"Mystery"}, names(unknown))
}

func TestEvaluate_LevelAndCounts(t *testing.T) {
	defs := withIDs([]Def{
		{Name: "First Steps", Criterion: Level{Target: 2}},
		{Name: "Rising Star", Criterion: Level{Target: 5}},
		{Name: "Collector", Criterion: Count{Counter: CounterSavedRecipe, Target: 5}},
		{Name: "Explorer", Criterion: Count{Counter: CounterCuisines, Target: 5}},
	})
	snap := Snapshot{
		XP:     1050,
		Counts: Counts{CounterSavedRecipe: 5, CounterCuisines: 4},
	}

	met, _ := Evaluate(defs, nil, snap)

	assert.Equal(t, []string{"First Steps", "Collector"}, names(met))
}

func TestEvaluate_MissingCounterIsZero(t *testing.T) {
	defs := withIDs([]Def{
		{Name: "Zero", Criterion: Count{Counter: CounterGrocery, Target: 0}},
		{Name: "One", Criterion: Count{Counter: CounterGrocery, Target: 1}},
	})

	met, _ := Evaluate(defs, nil, Snapshot{})

	assert.Equal(t, []string{"Zero"}, names(met))
}

func TestSatisfied_TierDays(t *testing.T) {
	snap := Snapshot{TierDays: map[nutrition.Tier]int{nutrition.TierBronze: 7, nutrition.TierGold: 0}}

	ok, _ := Satisfied(TierDays{Tier: nutrition.TierBronze, Target: 7}, snap)
	assert.True(t, ok)

	ok, _ = Satisfied(TierDays{Tier: nutrition.TierGold, Target: 1}, snap)
	assert.False(t, ok)
}

func TestSatisfied_WeeklyNutrientHit(t *testing.T) {
	snap := Snapshot{Week: []DayComparison{
		day(map[string]float64{"vitamin_c_mg": 100}),
		day(map[string]float64{"vitamin_c_mg": 140}),
		day(map[string]float64{"vitamin_c_mg": 99.9}),
		day(map[string]float64{}),
	}}

	ok, known := Satisfied(WeeklyNutrientHit{Nutrient: "vitamin_c_mg", DaysRequired: 2}, snap)
	assert.True(t, known)
	assert.True(t, ok)

	ok, _ = Satisfied(WeeklyNutrientHit{Nutrient: "vitamin_c_mg", DaysRequired: 3}, snap)
	assert.False(t, ok)
}

func TestSatisfied_MacroMasterWeek(t *testing.T) {
	inBand := map[string]float64{"protein": 95, "carbs": 110, "fat": 90, "fiber": 100}
	over := map[string]float64{"protein": 95, "carbs": 111, "fat": 90, "fiber": 100}
	missingFiber := map[string]float64{"protein": 100, "carbs": 100, "fat": 100}

	snap := Snapshot{Week: []DayComparison{day(inBand), day(inBand), day(over), day(missingFiber)}}

	ok, _ := Satisfied(MacroMasterWeek{DaysRequired: 2}, snap)
	assert.True(t, ok)

	ok, _ = Satisfied(MacroMasterWeek{DaysRequired: 3}, snap)
	assert.False(t, ok)
}

func TestSatisfied_WholeFoodWeek(t *testing.T) {
	ok, _ := Satisfied(WholeFoodWeek{MealCount: 14}, Snapshot{WholeFoodMeals: 14})
	assert.True(t, ok)

	ok, _ = Satisfied(WholeFoodWeek{MealCount: 14}, Snapshot{WholeFoodMeals: 13})
	assert.False(t, ok)
}

func TestRequire_OnlyPendingInputs(t *testing.T) {
	defs := withIDs(Catalog())
	unlocked := make(map[uuid.UUID]bool)
	for _, def := range defs {
		switch def.Criterion.(type) {
		case Count, WholeFoodWeek:
			unlocked[def.ID] = true
		}
	}

	needs := Require(Pending(defs, unlocked))

	assert.Empty(t, needs.Counters)
	assert.False(t, needs.WholeFood)
	assert.True(t, needs.Week)
	assert.ElementsMatch(t, []nutrition.Tier{nutrition.TierBronze, nutrition.TierSilver, nutrition.TierGold}, needs.Tiers)
}

// TestEvaluateNeverReturnsUnlockedProperty checks that already unlocked
// achievements are never reported again, whatever the snapshot.
func TestEvaluateNeverReturnsUnlockedProperty(t *testing.T) {
	defs := withIDs(Catalog())

	rapid.Check(t, func(rt *rapid.T) {
		unlocked := make(map[uuid.UUID]bool)
		for _, def := range defs {
			if rapid.Bool().Draw(rt, "unlocked") {
				unlocked[def.ID] = true
			}
		}
		snap := Snapshot{
			XP:              rapid.Int64Range(0, 20000).Draw(rt, "xp"),
			ActivityStreak:  rapid.IntRange(0, 40).Draw(rt, "streak"),
			NutritionStreak: rapid.IntRange(0, 40).Draw(rt, "nutritionStreak"),
			Counts: Counts{
				CounterHealthify:   rapid.Int64Range(0, 60).Draw(rt, "healthify"),
				CounterSavedRecipe: rapid.Int64Range(0, 30).Draw(rt, "saved"),
				CounterFoodLog:     rapid.Int64Range(0, 120).Draw(rt, "logs"),
			},
			WholeFoodMeals: rapid.IntRange(0, 20).Draw(rt, "wholeFood"),
		}

		met, _ := Evaluate(defs, unlocked, snap)
		for _, def := range met {
			if unlocked[def.ID] {
				rt.Fatalf("%q reported although already unlocked", def.Name)
			}
		}
	})
}
