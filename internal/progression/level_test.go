package progression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		xp       int64
		expected int
	}{
		{0, 1},
		{999, 1},
		{1000, 2},
		{1050, 2},
		{9999, 10},
		{-5, 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Level(tt.xp), "xp %d", tt.xp)
	}
}

func TestLevelUp_CrossingBoundary(t *testing.T) {
	level, up := LevelUp(950, 1050)

	assert.True(t, up)
	assert.Equal(t, 2, level)
}

func TestLevelUp_WithinLevel(t *testing.T) {
	level, up := LevelUp(100, 900)

	assert.False(t, up)
	assert.Equal(t, 1, level)
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "Sprout", Title(1))
	assert.Equal(t, "Elite Chef", Title(10))
	assert.Equal(t, "Legend", Title(15))
	assert.Equal(t, "Grandmaster (Lv.16)", Title(16))
	assert.Equal(t, "Sprout", Title(0))
}

func TestXPToNextLevel(t *testing.T) {
	assert.Equal(t, int64(1000), XPToNextLevel(0))
	assert.Equal(t, int64(950), XPToNextLevel(1050))
	assert.Equal(t, int64(1), XPToNextLevel(1999))
}

// TestLevelMonotonicProperty checks that adding XP never lowers the level.
func TestLevelMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		xp := rapid.Int64Range(0, 1_000_000).Draw(rt, "xp")
		gain := rapid.Int64Range(0, 100_000).Draw(rt, "gain")

		if Level(xp+gain) < Level(xp) {
			rt.Fatalf("level dropped from %d to %d", Level(xp), Level(xp+gain))
		}
		if XPToNextLevel(xp) < 1 || XPToNextLevel(xp) > XPPerLevel {
			rt.Fatalf("xp to next out of range: %d", XPToNextLevel(xp))
		}
	})
}
