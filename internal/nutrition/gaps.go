package nutrition

import (
	"math"
	"sort"

	"github.com/spf13/cast"
)

// Gap is a nutrient the user is noticeably short on for the day.
type Gap struct {
	Key      string  `json:"key"`
	Pct      float64 `json:"pct"`
	Consumed float64 `json:"consumed"`
	Target   float64 `json:"target"`
	Missing  float64 `json:"gap"`
}

// Gaps returns up to limit nutrients below GapThreshold percent of target,
// lowest first. Calories are never reported.
func Gaps(comparison map[string]Comparison, limit int) []Gap {
	gaps := make([]Gap, 0)
	for key, c := range comparison {
		if key == Calories || c.Pct >= GapThreshold {
			continue
		}
		gaps = append(gaps, Gap{
			Key:      key,
			Pct:      Round1(c.Pct),
			Consumed: c.Consumed,
			Target:   c.Target,
			Missing:  finite(math.Max(0, c.Target-c.Consumed)),
		})
	}

	sort.Slice(gaps, func(i, j int) bool {
		if gaps[i].Pct != gaps[j].Pct {
			return gaps[i].Pct < gaps[j].Pct
		}
		return gaps[i].Key < gaps[j].Key
	})

	if limit > 0 && len(gaps) > limit {
		gaps = gaps[:limit]
	}
	return gaps
}

// ServingFactor is the multiplier applied to a source's nutrition when it is
// logged. Zero means "unspecified" and counts as 1; anything else is floored at 0.1.
func ServingFactor(servings, quantity float64) float64 {
	if servings == 0 {
		servings = 1
	}
	if quantity == 0 {
		quantity = 1
	}
	return math.Max(0.1, servings) * math.Max(0.1, quantity)
}

// Scale multiplies every numeric field of the snapshot by factor.
// Fields that are not numbers are dropped.
func Scale(snap Snapshot, factor float64) Snapshot {
	out := make(Snapshot, len(snap))
	for k, raw := range snap {
		if _, isBool := raw.(bool); isBool || raw == nil {
			continue
		}
		v, err := cast.ToFloat64E(raw)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = finite(v * factor)
	}
	return out
}
