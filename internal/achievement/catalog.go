package achievement

import (
	"github.com/google/uuid"

	"wholefood-engine/internal/nutrition"
)

// Achievement categories.
const (
	CategoryChat        = "chat"
	CategoryPlanning    = "planning"
	CategoryShopping    = "shopping"
	CategoryDiscovery   = "discovery"
	CategoryConsistency = "consistency"
	CategoryProgression = "progression"
	CategoryNutrition   = "nutrition"
)

// Def is an achievement definition. ID is zero until the definition has been
// stored.
type Def struct {
	ID          uuid.UUID
	Name        string
	Description string
	Icon        string
	XPReward    int64
	Category    string
	Criterion   Criterion
}

// Catalog returns the fixed set of achievements seeded at startup. Names are
// unique and act as the seeding key.
func Catalog() []Def {
	return []Def{
		// Chat
		{Name: "First Healthify", Description: "Healthify your first dish", Icon: "sparkles", XPReward: 50, Category: CategoryChat,
			Criterion: Count{Counter: CounterHealthify, Target: 1}},
		{Name: "Healthify Regular", Description: "Healthify 10 dishes", Icon: "sparkles", XPReward: 150, Category: CategoryChat,
			Criterion: Count{Counter: CounterHealthify, Target: 10}},
		{Name: "Healthify Master", Description: "Healthify 50 dishes", Icon: "sparkles", XPReward: 500, Category: CategoryChat,
			Criterion: Count{Counter: CounterHealthify, Target: 50}},

		// Planning
		{Name: "Meal Planner", Description: "Generate your first meal plan", Icon: "calendar", XPReward: 200, Category: CategoryPlanning,
			Criterion: Count{Counter: CounterMealPlan, Target: 1}},
		{Name: "Week Warrior", Description: "Generate 4 meal plans", Icon: "calendar", XPReward: 400, Category: CategoryPlanning,
			Criterion: Count{Counter: CounterMealPlan, Target: 4}},

		// Shopping
		{Name: "Grocery Pro", Description: "Create 3 grocery lists", Icon: "cart", XPReward: 150, Category: CategoryShopping,
			Criterion: Count{Counter: CounterGrocery, Target: 3}},

		// Discovery
		{Name: "Recipe Collector", Description: "Save 5 recipes", Icon: "bookmark", XPReward: 100, Category: CategoryDiscovery,
			Criterion: Count{Counter: CounterSavedRecipe, Target: 5}},
		{Name: "Recipe Hoarder", Description: "Save 25 recipes", Icon: "library", XPReward: 300, Category: CategoryDiscovery,
			Criterion: Count{Counter: CounterSavedRecipe, Target: 25}},
		{Name: "Food Explorer", Description: "Browse 5 different cuisines", Icon: "earth", XPReward: 100, Category: CategoryDiscovery,
			Criterion: Count{Counter: CounterCuisines, Target: 5}},
		{Name: "World Traveler", Description: "Browse 10 different cuisines", Icon: "airplane", XPReward: 250, Category: CategoryDiscovery,
			Criterion: Count{Counter: CounterCuisines, Target: 10}},

		// Consistency
		{Name: "Streak Starter", Description: "Stay active 3 days in a row", Icon: "flame", XPReward: 100, Category: CategoryConsistency,
			Criterion: Streak{Target: 3}},
		{Name: "Streak Master", Description: "Stay active 7 days in a row", Icon: "flame", XPReward: 300, Category: CategoryConsistency,
			Criterion: Streak{Target: 7}},
		{Name: "Streak Legend", Description: "Stay active 30 days in a row", Icon: "medal", XPReward: 1000, Category: CategoryConsistency,
			Criterion: Streak{Target: 30}},

		// Progression
		{Name: "First Steps", Description: "Reach level 2", Icon: "star", XPReward: 50, Category: CategoryProgression,
			Criterion: Level{Target: 2}},
		{Name: "Rising Star", Description: "Reach level 5", Icon: "star", XPReward: 200, Category: CategoryProgression,
			Criterion: Level{Target: 5}},
		{Name: "Elite Chef", Description: "Reach level 10", Icon: "trophy", XPReward: 500, Category: CategoryProgression,
			Criterion: Level{Target: 10}},

		// Nutrition
		{Name: "First Bite", Description: "Log your first meal", Icon: "restaurant", XPReward: 25, Category: CategoryNutrition,
			Criterion: Count{Counter: CounterFoodLog, Target: 1}},
		{Name: "Food Journal", Description: "Log 25 meals", Icon: "restaurant", XPReward: 150, Category: CategoryNutrition,
			Criterion: Count{Counter: CounterFoodLog, Target: 25}},
		{Name: "Consistent Logger", Description: "Log 100 meals", Icon: "restaurant", XPReward: 400, Category: CategoryNutrition,
			Criterion: Count{Counter: CounterFoodLog, Target: 100}},
		{Name: "Balanced Start", Description: "Hit your nutrition goal 3 days in a row", Icon: "leaf", XPReward: 100, Category: CategoryNutrition,
			Criterion: NutritionStreak{Target: 3}},
		{Name: "Balanced Week", Description: "Hit your nutrition goal 7 days in a row", Icon: "leaf", XPReward: 300, Category: CategoryNutrition,
			Criterion: NutritionStreak{Target: 7}},
		{Name: "Balanced Month", Description: "Hit your nutrition goal 30 days in a row", Icon: "leaf", XPReward: 1000, Category: CategoryNutrition,
			Criterion: NutritionStreak{Target: 30}},
		{Name: "Bronze Week", Description: "Score Bronze or better on 7 days", Icon: "medal", XPReward: 150, Category: CategoryNutrition,
			Criterion: TierDays{Tier: nutrition.TierBronze, Target: 7}},
		{Name: "Silver Standard", Description: "Score Silver or better on 7 days", Icon: "medal", XPReward: 250, Category: CategoryNutrition,
			Criterion: TierDays{Tier: nutrition.TierSilver, Target: 7}},
		{Name: "Golden Plate", Description: "Score Gold for the first time", Icon: "trophy", XPReward: 200, Category: CategoryNutrition,
			Criterion: TierDays{Tier: nutrition.TierGold, Target: 1}},
		{Name: "Gold Rush", Description: "Score Gold on 10 days", Icon: "trophy", XPReward: 600, Category: CategoryNutrition,
			Criterion: TierDays{Tier: nutrition.TierGold, Target: 10}},
		{Name: "Vitamin C Champion", Description: "Reach your vitamin C target on 5 days in a week", Icon: "nutrition", XPReward: 150, Category: CategoryNutrition,
			Criterion: WeeklyNutrientHit{Nutrient: "vitamin_c_mg", DaysRequired: 5}},
		{Name: "Protein Week", Description: "Reach your protein target on 5 days in a week", Icon: "barbell", XPReward: 150, Category: CategoryNutrition,
			Criterion: WeeklyNutrientHit{Nutrient: nutrition.Protein, DaysRequired: 5}},
		{Name: "Fiber Focus", Description: "Reach your fiber target on 5 days in a week", Icon: "leaf", XPReward: 150, Category: CategoryNutrition,
			Criterion: WeeklyNutrientHit{Nutrient: nutrition.Fiber, DaysRequired: 5}},
		{Name: "Macro Master", Description: "Land every macro within 10% of target on 5 days in a week", Icon: "pie-chart", XPReward: 400, Category: CategoryNutrition,
			Criterion: MacroMasterWeek{DaysRequired: 5}},
		{Name: "Whole Food Week", Description: "Log 14 home-cooked or planned meals in a week", Icon: "basket", XPReward: 300, Category: CategoryNutrition,
			Criterion: WholeFoodWeek{MealCount: 14}},
	}
}
