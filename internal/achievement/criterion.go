// Package achievement holds the achievement catalog, the typed criterion
// variants and the pure evaluator that decides which achievements a user has
// earned from a snapshot of their progress.
package achievement

import (
	"encoding/json"
	"fmt"

	"wholefood-engine/internal/nutrition"
)

// Kind is the wire tag of a criterion.
type Kind string

// Criterion kinds that are not plain counters.
const (
	KindStreak            Kind = "streak"
	KindLevel             Kind = "level"
	KindNutritionStreak   Kind = "nutrition_streak"
	KindBronzeDays        Kind = "bronze_days"
	KindSilverDays        Kind = "silver_days"
	KindGoldDays          Kind = "gold_days"
	KindWeeklyNutrientHit Kind = "weekly_nutrient_hit"
	KindMacroMasterWeek   Kind = "macro_master_week"
	KindWholeFoodWeek     Kind = "whole_food_week"
)

// Counter names an activity count supplied by a collaborator.
// Its value doubles as the criterion kind of a Count criterion.
type Counter string

const (
	CounterHealthify   Counter = "healthify_count"
	CounterMealPlan    Counter = "meal_plan_count"
	CounterGrocery     Counter = "grocery_count"
	CounterSavedRecipe Counter = "saved_recipe_count"
	CounterCuisines    Counter = "cuisines_explored"
	CounterFoodLog     Counter = "food_log_count"
)

// Counters lists every known counter.
var Counters = []Counter{
	CounterHealthify,
	CounterMealPlan,
	CounterGrocery,
	CounterSavedRecipe,
	CounterCuisines,
	CounterFoodLog,
}

var tierKinds = map[Kind]nutrition.Tier{
	KindBronzeDays: nutrition.TierBronze,
	KindSilverDays: nutrition.TierSilver,
	KindGoldDays:   nutrition.TierGold,
}

// Criterion is the closed set of unlock rules. The concrete types below are
// the only implementations.
type Criterion interface {
	Kind() Kind
	criterion()
}

// Streak is met when the activity streak reaches Target days.
type Streak struct{ Target int }

// Level is met when the user's level reaches Target.
type Level struct{ Target int }

// Count is met when a collaborator-supplied counter reaches Target.
type Count struct {
	Counter Counter
	Target  int64
}

// NutritionStreak is met when the nutrition streak reaches Target days.
type NutritionStreak struct{ Target int }

// TierDays is met when the user has Target days scoring at or above the tier's floor.
type TierDays struct {
	Tier   nutrition.Tier
	Target int
}

// WeeklyNutrientHit is met when Nutrient reached 100% of target on at least
// DaysRequired of the last 7 days.
type WeeklyNutrientHit struct {
	Nutrient     string
	DaysRequired int
}

// MacroMasterWeek is met when protein, carbs, fat and fiber all landed within
// 90-110% of target on at least DaysRequired of the last 7 days.
type MacroMasterWeek struct{ DaysRequired int }

// WholeFoodWeek is met when at least MealCount food logs of the last 7 days
// came from a recipe, cook mode or a meal plan.
type WholeFoodWeek struct{ MealCount int }

// Unknown carries a criterion tag this build does not understand. It is never met.
type Unknown struct{ Type string }

func (Streak) Kind() Kind { return KindStreak }
func (Level) Kind() Kind { return KindLevel }
func (c Count) Kind() Kind { return Kind(c.Counter) }
func (NutritionStreak) Kind() Kind { return KindNutritionStreak }
func (WeeklyNutrientHit) Kind() Kind { return KindWeeklyNutrientHit }
func (MacroMasterWeek) Kind() Kind { return KindMacroMasterWeek }
func (WholeFoodWeek) Kind() Kind { return KindWholeFoodWeek }
func (u Unknown) Kind() Kind { return Kind(u.Type) }
func (c TierDays) Kind() Kind {
	for kind, tier := range tierKinds {
		if tier == c.Tier {
			return kind
		}
	}
	return Kind(string(c.Tier) + "_days")
}

func (Streak) criterion() {}
func (Level) criterion() {}
func (Count) criterion() {}
func (NutritionStreak) criterion() {}
func (TierDays) criterion() {}
func (WeeklyNutrientHit) criterion() {}
func (MacroMasterWeek) criterion() {}
func (WholeFoodWeek) criterion() {}
func (Unknown) criterion() {}

// wireCriterion is the JSON shape stored in achievements.criteria.
type wireCriterion struct {
	Type         string `json:"type"`
	Target       int64  `json:"target,omitempty"`
	Nutrient     string `json:"nutrient,omitempty"`
	DaysRequired int    `json:"days_required,omitempty"`
	MealCount    int    `json:"meal_count,omitempty"`
}

// MarshalCriterion encodes a criterion to its stored JSON form.
func MarshalCriterion(c Criterion) ([]byte, error) {
	w := wireCriterion{Type: string(c.Kind())}
	switch v := c.(type) {
	case Streak:
		w.Target = int64(v.Target)
	case Level:
		w.Target = int64(v.Target)
	case Count:
		w.Target = v.Target
	case NutritionStreak:
		w.Target = int64(v.Target)
	case TierDays:
		w.Target = int64(v.Target)
	case WeeklyNutrientHit:
		w.Nutrient = v.Nutrient
		w.DaysRequired = v.DaysRequired
	case MacroMasterWeek:
		w.DaysRequired = v.DaysRequired
	case WholeFoodWeek:
		w.MealCount = v.MealCount
	case Unknown:
	default:
		return nil, fmt.Errorf("unsupported criterion %T", c)
	}
	return json.Marshal(w)
}

// ParseCriterion decodes a stored criterion. An unrecognised type yields
// Unknown rather than an error; only malformed JSON is an error.
func ParseCriterion(data []byte) (Criterion, error) {
	var w wireCriterion
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode criterion: %w", err)
	}

	kind := Kind(w.Type)
	switch kind {
	case KindStreak:
		return Streak{Target: int(w.Target)}, nil
	case KindLevel:
		return Level{Target: int(w.Target)}, nil
	case KindNutritionStreak:
		return NutritionStreak{Target: int(w.Target)}, nil
	case KindWeeklyNutrientHit:
		return WeeklyNutrientHit{Nutrient: w.Nutrient, DaysRequired: w.DaysRequired}, nil
	case KindMacroMasterWeek:
		return MacroMasterWeek{DaysRequired: w.DaysRequired}, nil
	case KindWholeFoodWeek:
		return WholeFoodWeek{MealCount: w.MealCount}, nil
	}
	if tier, ok := tierKinds[kind]; ok {
		return TierDays{Tier: tier, Target: int(w.Target)}, nil
	}
	for _, counter := range Counters {
		if Kind(counter) == kind {
			return Count{Counter: counter, Target: w.Target}, nil
		}
	}
	return Unknown{Type: w.Type}, nil
}
