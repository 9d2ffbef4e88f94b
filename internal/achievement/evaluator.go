package achievement

import (
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/nutrition"
	"wholefood-engine/internal/progression"
)

// WeekDays is the window of the weekly criteria, today included.
const WeekDays = 7

// Macro Master band, in percent of target.
const (
	MacroBandLow  = 90.0
	MacroBandHigh = 110.0
)

// Counts holds collaborator-supplied activity counters.
type Counts map[Counter]int64

// DayComparison is one day's percent-of-target comparison.
type DayComparison struct {
	Date       time.Time
	Comparison map[string]nutrition.Comparison
}

// Snapshot is everything the evaluator needs to know about a user.
type Snapshot struct {
	XP              int64
	ActivityStreak  int
	NutritionStreak int
	Counts          Counts
	TierDays        map[nutrition.Tier]int
	Week            []DayComparison
	WholeFoodMeals  int
}

// Needs lists the inputs required to evaluate a set of pending achievements,
// so callers only load what will actually be read.
type Needs struct {
	Counters  []Counter
	Tiers     []nutrition.Tier
	Week      bool
	WholeFood bool
}

// Pending returns the definitions not yet unlocked, in catalog order.
func Pending(defs []Def, unlocked map[uuid.UUID]bool) []Def {
	pending := make([]Def, 0, len(defs))
	for _, def := range defs {
		if !unlocked[def.ID] {
			pending = append(pending, def)
		}
	}
	return pending
}

// Require computes the inputs needed to evaluate the given definitions.
func Require(defs []Def) Needs {
	var needs Needs
	seenCounter := make(map[Counter]bool)
	seenTier := make(map[nutrition.Tier]bool)

	for _, def := range defs {
		switch c := def.Criterion.(type) {
		case Count:
			if !seenCounter[c.Counter] {
				seenCounter[c.Counter] = true
				needs.Counters = append(needs.Counters, c.Counter)
			}
		case TierDays:
			if !seenTier[c.Tier] {
				seenTier[c.Tier] = true
				needs.Tiers = append(needs.Tiers, c.Tier)
			}
		case WeeklyNutrientHit, MacroMasterWeek:
			needs.Week = true
		case WholeFoodWeek:
			needs.WholeFood = true
		}
	}
	return needs
}

// Evaluate returns the pending definitions whose criterion the snapshot
// satisfies, plus the pending definitions with an unknown criterion.
// It performs no I/O.
func Evaluate(defs []Def, unlocked map[uuid.UUID]bool, snap Snapshot) (met []Def, unknown []Def) {
	for _, def := range Pending(defs, unlocked) {
		ok, known := Satisfied(def.Criterion, snap)
		if !known {
			unknown = append(unknown, def)
			continue
		}
		if ok {
			met = append(met, def)
		}
	}
	return met, unknown
}

// Satisfied tests a single criterion. known is false for criteria this build
// cannot interpret; they are never satisfied.
func Satisfied(c Criterion, snap Snapshot) (ok bool, known bool) {
	switch v := c.(type) {
	case Streak:
		return snap.ActivityStreak >= v.Target, true
	case Level:
		return progression.Level(snap.XP) >= v.Target, true
	case Count:
		return snap.Counts[v.Counter] >= v.Target, true
	case NutritionStreak:
		return snap.NutritionStreak >= v.Target, true
	case TierDays:
		return snap.TierDays[v.Tier] >= v.Target, true
	case WeeklyNutrientHit:
		return nutrientHitDays(snap.Week, v.Nutrient) >= v.DaysRequired, true
	case MacroMasterWeek:
		return macroMasterDays(snap.Week) >= v.DaysRequired, true
	case WholeFoodWeek:
		return snap.WholeFoodMeals >= v.MealCount, true
	}
	return false, false
}

func nutrientHitDays(week []DayComparison, nutrient string) int {
	days := 0
	for _, day := range week {
		if c, ok := day.Comparison[nutrient]; ok && c.Pct >= 100 {
			days++
		}
	}
	return days
}

func macroMasterDays(week []DayComparison) int {
	days := 0
	for _, day := range week {
		inBand := true
		for _, macro := range nutrition.ScoredMacros {
			c, ok := day.Comparison[macro]
			if !ok || c.Pct < MacroBandLow || c.Pct > MacroBandHigh {
				inBand = false
				break
			}
		}
		if inBand {
			days++
		}
	}
	return days
}
