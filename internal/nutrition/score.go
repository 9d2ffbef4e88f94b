// Package nutrition turns one user-day of food-log snapshots into nutrient
// totals, a percent-of-target comparison and a single 0-100 daily score.
// Everything here is pure; persistence lives in the repository layer.
package nutrition

import (
	"math"
	"sort"

	"github.com/spf13/cast"
)

// Macro nutrient keys as they appear in totals and comparisons.
const (
	Calories = "calories"
	Protein  = "protein"
	Carbs    = "carbs"
	Fat      = "fat"
	Fiber    = "fiber"
)

// Score weights.
const (
	MacroWeight = 0.6
	MicroWeight = 0.4
)

// GapThreshold is the percent-of-target below which a nutrient is reported as a gap.
const GapThreshold = 70.0

// MacroKeys lists every macro in report order. Calories are reported but never scored.
var MacroKeys = []string{Calories, Protein, Carbs, Fat, Fiber}

// ScoredMacros are the macros that feed the macro score.
var ScoredMacros = []string{Protein, Carbs, Fat, Fiber}

// macroSpellings maps a macro to the snapshot keys it may be stored under.
var macroSpellings = map[string][]string{
	Calories: {"calories"},
	Protein:  {"protein", "protein_g"},
	Carbs:    {"carbs", "carbs_g"},
	Fat:      {"fat", "fat_g"},
	Fiber:    {"fiber", "fiber_g"},
}

// Snapshot is the nutrition payload stored on a food-log entry.
// Values are usually numbers but may be anything a client sent.
type Snapshot map[string]any

// Comparison is consumption of one nutrient measured against its target.
type Comparison struct {
	Consumed float64 `json:"consumed"`
	Target   float64 `json:"target"`
	Pct      float64 `json:"pct"`
}

// Result is the outcome of scoring one user-day.
type Result struct {
	Totals     map[string]float64    `json:"totals"`
	Comparison map[string]Comparison `json:"comparison"`
	MacroScore float64               `json:"macro_score"`
	MicroScore float64               `json:"micro_score"`
	Score      float64               `json:"daily_score"`
}

// Compute aggregates the snapshots of one day and scores them against targets.
// Missing or malformed snapshot fields count as zero. The result depends only
// on the inputs, so recomputing an unchanged day yields an identical result.
func Compute(logs []Snapshot, targets Targets) Result {
	totals := make(map[string]float64, len(MacroKeys)+len(targets.Micros))
	for _, key := range MacroKeys {
		totals[key] = 0
	}
	for micro := range targets.Micros {
		totals[micro] = 0
	}

	for _, snap := range logs {
		for _, key := range MacroKeys {
			totals[key] = finite(totals[key] + MacroValue(snap, key))
		}
		for micro := range targets.Micros {
			totals[micro] = finite(totals[micro] + value(snap, micro))
		}
	}

	comparison := make(map[string]Comparison, len(totals))
	for _, key := range MacroKeys {
		comparison[key] = compare(totals[key], targets.Macro(key))
	}
	for micro, target := range targets.Micros {
		comparison[micro] = compare(totals[micro], target)
	}

	macroScore := meanCapped(comparison, ScoredMacros)

	micros := make([]string, 0, len(targets.Micros))
	for micro := range targets.Micros {
		micros = append(micros, micro)
	}
	sort.Strings(micros)
	microScore := meanCapped(comparison, micros)

	return Result{
		Totals:     totals,
		Comparison: comparison,
		MacroScore: macroScore,
		MicroScore: microScore,
		Score:      Round1(MacroWeight*macroScore + MicroWeight*microScore),
	}
}

// MacroValue reads a macro from a snapshot, accepting either spelling
// (e.g. "protein" or "protein_g"). The first spelling holding a non-zero
// number wins; otherwise the value is zero.
func MacroValue(snap Snapshot, macro string) float64 {
	spellings, ok := macroSpellings[macro]
	if !ok {
		return value(snap, macro)
	}
	for _, key := range spellings {
		if v := value(snap, key); v != 0 {
			return v
		}
	}
	return 0
}

// Percent returns 100*consumed/target, treating a non-positive target as 1.
func Percent(consumed, target float64) float64 {
	if target <= 0 {
		target = 1
	}
	return finite(consumed / target * 100)
}

// finite maps NaN and infinities to 0 so results always encode as JSON.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func compare(consumed, target float64) Comparison {
	return Comparison{
		Consumed: consumed,
		Target:   target,
		Pct:      Percent(consumed, target),
	}
}

// meanCapped averages pct clamped to [0, 100] over keys; an empty key set scores 0.
func meanCapped(comparison map[string]Comparison, keys []string) float64 {
	if len(keys) == 0 {
		return 0
	}
	var sum float64
	for _, key := range keys {
		sum += math.Max(0, math.Min(100, comparison[key].Pct))
	}
	return sum / float64(len(keys))
}

func value(snap Snapshot, key string) float64 {
	raw, ok := snap[key]
	if !ok || raw == nil {
		return 0
	}
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0
	}
	return finite(v)
}
