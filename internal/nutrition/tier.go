package nutrition

// Tier is a threshold band on the daily nutrition score.
type Tier string

// Tiers from best to worst. TierNone means the score earned nothing.
const (
	TierGold   Tier = "gold"
	TierSilver Tier = "silver"
	TierBronze Tier = "bronze"
	TierNone   Tier = "none"
)

// Tiers lists the paying tiers from best to worst.
var Tiers = []Tier{TierGold, TierSilver, TierBronze}

var tierFloors = map[Tier]float64{
	TierGold:   90,
	TierSilver: 75,
	TierBronze: 60,
}

var tierXP = map[Tier]int64{
	TierGold:   200,
	TierSilver: 100,
	TierBronze: 50,
}

// TierFor returns the best tier whose floor the score reaches.
func TierFor(score float64) Tier {
	for _, tier := range Tiers {
		if score >= tierFloors[tier] {
			return tier
		}
	}
	return TierNone
}

// Floor is the minimum daily score for the tier.
func (t Tier) Floor() float64 {
	return tierFloors[t]
}

// XP is the one-time daily bonus for reaching the tier.
func (t Tier) XP() int64 {
	return tierXP[t]
}

// Title is the display name, e.g. "Gold".
func (t Tier) Title() string {
	switch t {
	case TierGold:
		return "Gold"
	case TierSilver:
		return "Silver"
	case TierBronze:
		return "Bronze"
	}
	return "None"
}
