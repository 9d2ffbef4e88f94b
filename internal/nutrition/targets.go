package nutrition

// Default macro targets.
const (
	DefaultCaloriesTarget = 2200
	DefaultProteinTarget  = 130
	DefaultCarbsTarget    = 250
	DefaultFatTarget      = 75
	DefaultFiberTarget    = 30
)

var essentialMicros = map[string]float64{
	"vitamin_a_mcg":    900,
	"vitamin_c_mg":     90,
	"vitamin_d_mcg":    20,
	"vitamin_e_mg":     15,
	"vitamin_k_mcg":    120,
	"thiamin_b1_mg":    1.2,
	"riboflavin_b2_mg": 1.3,
	"niacin_b3_mg":     16,
	"vitamin_b6_mg":    1.7,
	"folate_mcg":       400,
	"vitamin_b12_mcg":  2.4,
	"choline_mg":       550,
	"calcium_mg":       1300,
	"iron_mg":          18,
	"magnesium_mg":     420,
	"phosphorus_mg":    1250,
	"potassium_mg":     4700,
	"sodium_mg":        2300,
	"zinc_mg":          11,
	"copper_mg":        0.9,
	"manganese_mg":     2.3,
	"selenium_mcg":     55,
	"iodine_mcg":       150,
	"omega3_g":         1.6,
}

// Targets holds a user's daily nutrient goals.
// Micros maps a micronutrient key (e.g. "iron_mg") to its daily target.
type Targets struct {
	Calories float64            `json:"calories_target"`
	Protein  float64            `json:"protein_g_target"`
	Carbs    float64            `json:"carbs_g_target"`
	Fat      float64            `json:"fat_g_target"`
	Fiber    float64            `json:"fiber_g_target"`
	Micros   map[string]float64 `json:"micronutrient_targets"`
}

// DefaultMicros returns a fresh copy of the essential micronutrient targets.
func DefaultMicros() map[string]float64 {
	out := make(map[string]float64, len(essentialMicros))
	for k, v := range essentialMicros {
		out[k] = v
	}
	return out
}

// DefaultTargets returns the targets used when a user has configured none.
func DefaultTargets() Targets {
	return Targets{
		Calories: DefaultCaloriesTarget,
		Protein:  DefaultProteinTarget,
		Carbs:    DefaultCarbsTarget,
		Fat:      DefaultFatTarget,
		Fiber:    DefaultFiberTarget,
		Micros:   DefaultMicros(),
	}
}

// Macro returns the target for a macro key, or 0 for anything else.
func (t Targets) Macro(key string) float64 {
	switch key {
	case Calories:
		return t.Calories
	case Protein:
		return t.Protein
	case Carbs:
		return t.Carbs
	case Fat:
		return t.Fat
	case Fiber:
		return t.Fiber
	}
	return 0
}

// MergeMicros overlays custom micronutrient targets on the essential defaults.
func MergeMicros(custom map[string]float64) map[string]float64 {
	merged := DefaultMicros()
	for k, v := range custom {
		merged[k] = v
	}
	return merged
}
