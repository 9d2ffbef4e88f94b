// Package progression maps total XP to levels and level titles.
package progression

import "fmt"

// XPPerLevel is the XP span of every level.
const XPPerLevel = 1000

var titles = []string{
	"Sprout",
	"Seedling",
	"Home Cook",
	"Prep Cook",
	"Line Cook",
	"Whole-Food Explorer",
	"Sous Chef",
	"Nutrition Scholar",
	"Chef de Partie",
	"Elite Chef",
	"Head Chef",
	"Culinary Artist",
	"Nutrition Sage",
	"Master Chef",
	"Legend",
}

// Level returns floor(xp/1000)+1. Negative XP is treated as zero.
func Level(xp int64) int {
	if xp < 0 {
		xp = 0
	}
	return int(xp/XPPerLevel) + 1
}

// XPToNextLevel returns how much XP is left until the next level.
func XPToNextLevel(xp int64) int64 {
	if xp < 0 {
		xp = 0
	}
	return XPPerLevel - xp%XPPerLevel
}

// Title returns the cosmetic name of a level.
func Title(level int) string {
	if level < 1 {
		level = 1
	}
	if level <= len(titles) {
		return titles[level-1]
	}
	return fmt.Sprintf("Grandmaster (Lv.%d)", level)
}

// LevelUp reports the new level when going from before to after XP crosses
// at least one level boundary.
func LevelUp(before, after int64) (int, bool) {
	from, to := Level(before), Level(after)
	if to > from {
		return to, true
	}
	return from, false
}
