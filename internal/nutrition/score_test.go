package nutrition

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func macroOnlyTargets() Targets {
	t := DefaultTargets()
	t.Micros = map[string]float64{}
	return t
}

// ============================================================================
// Compute
// ============================================================================

func TestCompute_FullMacrosNoMicros(t *testing.T) {
	targets := macroOnlyTargets()
	logs := []Snapshot{
		{"protein_g": 80.0, "carbs": 150.0, "fat_g": 40.0, "fiber": 10.0, "calories": 1200.0},
		{"protein": 50.0, "carbs_g": 100.0, "fat": 35.0, "fiber_g": 20.0},
	}

	res := Compute(logs, targets)

	assert.Equal(t, 130.0, res.Totals[Protein])
	assert.Equal(t, 250.0, res.Totals[Carbs])
	assert.Equal(t, 75.0, res.Totals[Fat])
	assert.Equal(t, 30.0, res.Totals[Fiber])
	assert.Equal(t, 100.0, res.MacroScore)
	assert.Equal(t, 0.0, res.MicroScore)
	assert.Equal(t, 60.0, res.Score)
}

func TestCompute_CaloriesNotScored(t *testing.T) {
	targets := macroOnlyTargets()

	res := Compute([]Snapshot{{"calories": 5000.0}}, targets)

	assert.InDelta(t, 227.27, res.Comparison[Calories].Pct, 0.01)
	assert.Equal(t, 0.0, res.MacroScore)
	assert.Equal(t, 0.0, res.Score)
}

func TestCompute_PctCappedAt100(t *testing.T) {
	targets := macroOnlyTargets()
	logs := []Snapshot{{"protein": 260.0, "carbs": 500.0, "fat": 150.0, "fiber": 60.0}}

	res := Compute(logs, targets)

	assert.Equal(t, 200.0, res.Comparison[Protein].Pct)
	assert.Equal(t, 100.0, res.MacroScore)
}

func TestCompute_ZeroTargetTreatedAsOne(t *testing.T) {
	targets := macroOnlyTargets()
	targets.Fiber = 0

	res := Compute([]Snapshot{{"fiber": 3.0}}, targets)

	assert.Equal(t, 300.0, res.Comparison[Fiber].Pct)
	assert.Equal(t, 0.0, res.Comparison[Fiber].Target)
}

func TestCompute_MalformedFieldsAreZero(t *testing.T) {
	targets := macroOnlyTargets()
	logs := []Snapshot{
		{"protein": "lots", "carbs": nil, "fat": map[string]any{"x": 1}, "fiber": "15"},
		nil,
	}

	res := Compute(logs, targets)

	assert.Equal(t, 0.0, res.Totals[Protein])
	assert.Equal(t, 0.0, res.Totals[Carbs])
	assert.Equal(t, 0.0, res.Totals[Fat])
	assert.Equal(t, 15.0, res.Totals[Fiber])
}

func TestCompute_FirstNonZeroSpellingWins(t *testing.T) {
	snap := Snapshot{"protein": 0.0, "protein_g": 42.0}
	assert.Equal(t, 42.0, MacroValue(snap, Protein))

	snap = Snapshot{"protein": 10.0, "protein_g": 42.0}
	assert.Equal(t, 10.0, MacroValue(snap, Protein))
}

func TestCompute_Micros(t *testing.T) {
	targets := macroOnlyTargets()
	targets.Micros = map[string]float64{"iron_mg": 18, "vitamin_c_mg": 90}
	logs := []Snapshot{{"iron_mg": 9.0, "vitamin_c_mg": 180.0}}

	res := Compute(logs, targets)

	assert.Equal(t, 50.0, res.Comparison["iron_mg"].Pct)
	assert.Equal(t, 200.0, res.Comparison["vitamin_c_mg"].Pct)
	assert.Equal(t, 75.0, res.MicroScore)
	assert.Equal(t, 30.0, res.Score)
}

func TestCompute_DefaultTargetsIncludeEssentialMicros(t *testing.T) {
	res := Compute(nil, DefaultTargets())

	assert.Len(t, res.Comparison, len(MacroKeys)+24)
	require.Contains(t, res.Comparison, "copper_mg")
	assert.Equal(t, 0.9, res.Comparison["copper_mg"].Target)
	assert.Equal(t, 0.0, res.Score)
}

// TestComputeIdempotentProperty checks that scoring the same day twice yields
// identical totals, comparison and score.
func TestComputeIdempotentProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "logs")
		logs := make([]Snapshot, n)
		for i := range logs {
			logs[i] = Snapshot{
				"protein":   rapid.Float64Range(0, 200).Draw(rt, "protein"),
				"carbs_g":   rapid.Float64Range(0, 400).Draw(rt, "carbs"),
				"fat":       rapid.Float64Range(0, 150).Draw(rt, "fat"),
				"fiber_g":   rapid.Float64Range(0, 60).Draw(rt, "fiber"),
				"iron_mg":   rapid.Float64Range(0, 40).Draw(rt, "iron"),
				"zinc_mg":   rapid.Float64Range(0, 20).Draw(rt, "zinc"),
				"calories":  rapid.Float64Range(0, 3000).Draw(rt, "calories"),
				"sodium_mg": rapid.Float64Range(0, 5000).Draw(rt, "sodium"),
			}
		}

		first := Compute(logs, DefaultTargets())
		second := Compute(logs, DefaultTargets())

		if !reflect.DeepEqual(first, second) {
			rt.Fatalf("recompute differs: %+v vs %+v", first, second)
		}
		if first.Score < 0 || first.Score > 100 {
			rt.Fatalf("score out of range: %v", first.Score)
		}
	})
}

// ============================================================================
// Gaps, scaling and tiers
// ============================================================================

func TestGaps(t *testing.T) {
	comparison := map[string]Comparison{
		Calories:   {Consumed: 0, Target: 2200, Pct: 0},
		Protein:    {Consumed: 65, Target: 130, Pct: 50},
		Fiber:      {Consumed: 3, Target: 30, Pct: 10},
		Fat:        {Consumed: 75, Target: 75, Pct: 100},
		"iron_mg":  {Consumed: 12.6, Target: 18, Pct: 70},
		"zinc_mg":  {Consumed: 2.2, Target: 11, Pct: 20},
		"iodine":   {Consumed: 45, Target: 150, Pct: 30},
		"folate":   {Consumed: 160, Target: 400, Pct: 40},
		"selenium": {Consumed: 0, Target: 55, Pct: 0},
	}

	gaps := Gaps(comparison, 4)

	require.Len(t, gaps, 4)
	assert.Equal(t, "selenium", gaps[0].Key)
	assert.Equal(t, Fiber, gaps[1].Key)
	assert.Equal(t, "zinc_mg", gaps[2].Key)
	assert.Equal(t, "iodine", gaps[3].Key)
	assert.Equal(t, 27.0, gaps[1].Missing)
}

func TestServingFactor(t *testing.T) {
	tests := []struct {
		name     string
		servings float64
		quantity float64
		expected float64
	}{
		{"unspecified", 0, 0, 1},
		{"double serving", 2, 1, 2},
		{"tiny values floored", 0.01, 0.05, 0.01},
		{"negative floored", -3, 2, 0.2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, ServingFactor(tt.servings, tt.quantity), 1e-9)
		})
	}
}

func TestScale(t *testing.T) {
	snap := Snapshot{"protein": 10.0, "iron_mg": "2.5", "label": "oats", "vegan": true}

	scaled := Scale(snap, 2)

	assert.Equal(t, Snapshot{"protein": 20.0, "iron_mg": 5.0}, scaled)
}

func TestScale_OverflowIsZero(t *testing.T) {
	snap := Snapshot{"protein": math.MaxFloat64, "fiber": 4.0}

	scaled := Scale(snap, 10)

	assert.Equal(t, Snapshot{"protein": 0.0, "fiber": 40.0}, scaled)
	_, err := json.Marshal(scaled)
	require.NoError(t, err)
}

func TestCompute_OverflowingTotalsStayFinite(t *testing.T) {
	targets := macroOnlyTargets()
	targets.Micros = map[string]float64{"iron_mg": 18}
	logs := []Snapshot{
		{"protein": 1e308, "iron_mg": 1e308},
		{"protein": 1e308, "iron_mg": 1e308},
		{"calories": 1e307},
	}

	res := Compute(logs, targets)

	for key, total := range res.Totals {
		assert.False(t, math.IsInf(total, 0) || math.IsNaN(total), "total %s = %v", key, total)
	}
	for key, c := range res.Comparison {
		assert.False(t, math.IsInf(c.Pct, 0) || math.IsNaN(c.Pct), "pct %s = %v", key, c.Pct)
	}
	for _, g := range Gaps(res.Comparison, 0) {
		assert.False(t, math.IsInf(g.Missing, 0), "missing %s", g.Key)
	}
	_, err := json.Marshal(res)
	require.NoError(t, err)
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score float64
		tier  Tier
		xp    int64
	}{
		{100, TierGold, 200},
		{90, TierGold, 200},
		{89.9, TierSilver, 100},
		{75, TierSilver, 100},
		{60, TierBronze, 50},
		{59.9, TierNone, 0},
		{0, TierNone, 0},
	}

	for _, tt := range tests {
		tier := TierFor(tt.score)
		assert.Equal(t, tt.tier, tier, "score %v", tt.score)
		assert.Equal(t, tt.xp, tier.XP(), "score %v", tt.score)
	}
}
