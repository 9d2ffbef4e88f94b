// Package quest generates the three daily quests of a user and tracks their
// progress. Selection is a pure function of the user and the calendar date.
package quest

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/nutrition"
)

// Type is the pool a quest was drawn from.
type Type string

const (
	General Type = "general"
	Logging Type = "logging"
	Quality Type = "quality"
)

// Types lists the pools in generation order; one quest is drawn from each.
var Types = []Type{General, Logging, Quality}

// Progress metrics. Callers report progress against the metric stored in a
// quest's metadata.
const (
	MetricSavedRecipes  = "saved_recipes"
	MetricRecipesViewed = "recipes_viewed"
	MetricHealthify     = "healthify"
	MetricGroceryLists  = "grocery_lists"
	MetricCuisines      = "cuisines"
	MetricBreakfast     = "breakfast_logged"
	MetricSnack         = "snack_logged"
	MetricMealsLogged   = "meals_logged"
	MetricRecipeMeals   = "recipe_meals_logged"
	MetricProtein       = "protein"
	MetricFiber         = "fiber"
	MetricDailyScore    = "daily_score"
)

// Template is one entry of a quest pool. When TargetFrom is set, the target
// comes from the user's nutrition targets and Title is a format string.
type Template struct {
	Title       string
	Description string
	Target      float64
	XPReward    int64
	Metric      string
	TargetFrom  func(nutrition.Targets) float64
}

// Draft is a concrete quest ready to be stored.
type Draft struct {
	Type        Type
	Title       string
	Description string
	Target      float64
	XPReward    int64
	Metadata    map[string]any
}

var pools = map[Type][]Template{
	General: {
		{Title: "Save a new recipe", Description: "Bookmark a recipe you want to cook", Target: 1, XPReward: 50, Metric: MetricSavedRecipes},
		{Title: "Browse 3 recipes", Description: "Look through three recipes for inspiration", Target: 3, XPReward: 40, Metric: MetricRecipesViewed},
		{Title: "Healthify a dish", Description: "Ask for a healthier take on a favourite dish", Target: 1, XPReward: 60, Metric: MetricHealthify},
		{Title: "Build a grocery list", Description: "Turn a plan into a shopping list", Target: 1, XPReward: 50, Metric: MetricGroceryLists},
		{Title: "Explore a new cuisine", Description: "Browse recipes from a cuisine you have not tried", Target: 1, XPReward: 50, Metric: MetricCuisines},
	},
	Logging: {
		{Title: "Log your breakfast", Description: "Record what you ate this morning", Target: 1, XPReward: 40, Metric: MetricBreakfast},
		{Title: "Log 3 meals today", Description: "Keep your food journal complete", Target: 3, XPReward: 75, Metric: MetricMealsLogged},
		{Title: "Log a healthy snack", Description: "Snacks count too", Target: 1, XPReward: 40, Metric: MetricSnack},
		{Title: "Log 2 meals from recipes", Description: "Cook from a recipe and log it", Target: 2, XPReward: 80, Metric: MetricRecipeMeals},
		{Title: "Log 4 entries today", Description: "Track everything you eat today", Target: 4, XPReward: 90, Metric: MetricMealsLogged},
	},
	Quality: {
		{Title: "Hit your protein target of %.0fg", Description: "Reach your daily protein goal", XPReward: 100, Metric: MetricProtein,
			TargetFrom: func(t nutrition.Targets) float64 { return t.Protein }},
		{Title: "Eat %.0fg of fiber", Description: "Reach your daily fiber goal", XPReward: 100, Metric: MetricFiber,
			TargetFrom: func(t nutrition.Targets) float64 { return t.Fiber }},
		{Title: "Reach a daily score of 75", Description: "Earn a Silver nutrition day", Target: 75, XPReward: 120, Metric: MetricDailyScore},
		{Title: "Earn a Bronze day", Description: "Score at least 60 on today's nutrition", Target: 60, XPReward: 80, Metric: MetricDailyScore},
	},
}

// Pool returns a copy of the templates of a quest type.
func Pool(t Type) []Template {
	return append([]Template(nil), pools[t]...)
}

// Seed derives the selection seed for one user, day and pool.
func Seed(userID uuid.UUID, date time.Time, t Type) []byte {
	return []byte(fmt.Sprintf("%s|%s|%s", userID, date.Format("2006-01-02"), t))
}

// Select picks an index into a pool of length n from seed bytes. The
// generator is created for this call only; equal seeds give equal indexes.
func Select(n int, seed []byte) int {
	if n <= 0 {
		return 0
	}
	sum := sha256.Sum256(seed)
	r := rand.New(rand.NewPCG(binary.BigEndian.Uint64(sum[:8]), binary.BigEndian.Uint64(sum[8:16])))
	return r.IntN(n)
}

// Generate builds the daily quests of a user, one per pool, in Types order.
func Generate(userID uuid.UUID, date time.Time, targets nutrition.Targets) []Draft {
	drafts := make([]Draft, 0, len(Types))
	for _, t := range Types {
		pool := pools[t]
		idx := Select(len(pool), Seed(userID, date, t))
		drafts = append(drafts, build(t, idx, pool[idx], targets))
	}
	return drafts
}

func build(t Type, idx int, tpl Template, targets nutrition.Targets) Draft {
	title := tpl.Title
	target := tpl.Target
	if tpl.TargetFrom != nil {
		target = math.Max(1, math.Round(tpl.TargetFrom(targets)))
		title = fmt.Sprintf(tpl.Title, target)
	}
	return Draft{
		Type:        t,
		Title:       title,
		Description: tpl.Description,
		Target:      target,
		XPReward:    tpl.XPReward,
		Metadata: map[string]any{
			"metric":   tpl.Metric,
			"template": idx,
		},
	}
}

// Advance applies a progress delta. The value never decreases and never
// passes target; completedNow is true only on the update that first reaches
// target.
func Advance(current, target, delta float64) (next float64, completedNow bool) {
	if delta < 0 || math.IsNaN(delta) {
		delta = 0
	}
	if current >= target {
		return math.Min(current, target), false
	}
	next = math.Min(target, current+delta)
	return next, next >= target
}

// Raise moves progress up to an observed level such as a day's score.
// Lower observations leave it unchanged and the value never passes target.
func Raise(current, target, observed float64) (next float64, completedNow bool) {
	if current >= target {
		return math.Min(current, target), false
	}
	if math.IsNaN(observed) || observed <= current {
		return current, false
	}
	next = math.Min(target, observed)
	return next, next >= target
}

// IsLevel reports whether a metric is reported as a level rather than as an
// increment.
func IsLevel(metric string) bool {
	return metric == MetricDailyScore
}
