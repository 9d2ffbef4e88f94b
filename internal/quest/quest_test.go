package quest

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"wholefood-engine/internal/nutrition"
)

func TestGenerate_OnePerPool(t *testing.T) {
	drafts := Generate(uuid.New(), time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC), nutrition.DefaultTargets())

	require.Len(t, drafts, 3)
	for i, draft := range drafts {
		assert.Equal(t, Types[i], draft.Type)
		assert.NotEmpty(t, draft.Title)
		assert.Greater(t, draft.Target, 0.0)
		assert.Greater(t, draft.XPReward, int64(0))
		assert.Contains(t, draft.Metadata, "metric")
	}
}

func TestGenerate_QualityTemplatedFromTargets(t *testing.T) {
	targets := nutrition.DefaultTargets()
	targets.Protein = 142.4
	pool := Pool(Quality)

	draft := build(Quality, 0, pool[0], targets)

	assert.Equal(t, "Hit your protein target of 142g", draft.Title)
	assert.Equal(t, 142.0, draft.Target)
}

func TestGenerate_ZeroTargetFloorsAtOne(t *testing.T) {
	targets := nutrition.DefaultTargets()
	targets.Fiber = 0
	pool := Pool(Quality)

	draft := build(Quality, 1, pool[1], targets)

	assert.Equal(t, 1.0, draft.Target)
}

func TestSelect_EmptyPool(t *testing.T) {
	assert.Equal(t, 0, Select(0, []byte("x")))
}

// TestGenerateDeterministicProperty checks that the same user and day always
// produce the same quests, and that selection stays within the pool.
func TestGenerateDeterministicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		var raw [16]byte
		for i := range raw {
			raw[i] = rapid.Byte().Draw(rt, "b")
		}
		userID := uuid.UUID(raw)
		day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, rapid.IntRange(0, 3650).Draw(rt, "offset"))
		targets := nutrition.DefaultTargets()
		targets.Protein = rapid.Float64Range(20, 300).Draw(rt, "protein")

		first := Generate(userID, day, targets)
		second := Generate(userID, day, targets)

		if len(first) != 3 {
			rt.Fatalf("expected 3 quests, got %d", len(first))
		}
		for i := range first {
			if first[i].Title != second[i].Title || first[i].Target != second[i].Target {
				rt.Fatalf("quest %d differs: %+v vs %+v", i, first[i], second[i])
			}
		}

		n := rapid.IntRange(1, 50).Draw(rt, "n")
		if idx := Select(n, Seed(userID, day, General)); idx < 0 || idx >= n {
			rt.Fatalf("index %d out of range [0,%d)", idx, n)
		}
	})
}

// TestAdvanceMonotonicProperty checks that progress never decreases, never
// passes the target and completes exactly once.
func TestAdvanceMonotonicProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := float64(rapid.IntRange(1, 10).Draw(rt, "target"))
		deltas := rapid.SliceOfN(rapid.Float64Range(-3, 4), 1, 20).Draw(rt, "deltas")

		current := 0.0
		completions := 0
		for _, delta := range deltas {
			next, done := Advance(current, target, delta)
			if next < current {
				rt.Fatalf("progress decreased from %v to %v", current, next)
			}
			if next > target {
				rt.Fatalf("progress %v passed target %v", next, target)
			}
			if done {
				completions++
			}
			current = next
		}

		if completions > 1 {
			rt.Fatalf("completed %d times", completions)
		}
		if current >= target && completions != 1 {
			rt.Fatalf("reached target without exactly one completion")
		}
	})
}

func TestRaise(t *testing.T) {
	next, done := Raise(0, 70, 55)
	assert.Equal(t, 55.0, next)
	assert.False(t, done)

	// A later, lower score does not add to the earlier one.
	next, done = Raise(55, 70, 40)
	assert.Equal(t, 55.0, next)
	assert.False(t, done)

	next, done = Raise(55, 70, 82)
	assert.Equal(t, 70.0, next)
	assert.True(t, done)

	next, done = Raise(70, 70, 90)
	assert.Equal(t, 70.0, next)
	assert.False(t, done)

	assert.True(t, IsLevel(MetricDailyScore))
	assert.False(t, IsLevel(MetricMealsLogged))
}

func TestRaiseMatchesBestObservationProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		target := float64(rapid.IntRange(1, 100).Draw(rt, "target"))
		scores := rapid.SliceOfN(rapid.Float64Range(0, 100), 1, 20).Draw(rt, "scores")

		current, best := 0.0, 0.0
		completions := 0
		for _, score := range scores {
			next, done := Raise(current, target, score)
			if next < current {
				rt.Fatalf("progress decreased from %v to %v", current, next)
			}
			if done {
				completions++
			}
			current = next
			best = math.Max(best, score)
		}

		if want := math.Min(best, target); current != want {
			rt.Fatalf("expected progress %v, got %v", want, current)
		}
		if completions > 1 {
			rt.Fatalf("completed %d times", completions)
		}
	})
}

func TestAdvance(t *testing.T) {
	next, done := Advance(2, 3, 5)
	assert.Equal(t, 3.0, next)
	assert.True(t, done)

	next, done = Advance(3, 3, 1)
	assert.Equal(t, 3.0, next)
	assert.False(t, done)

	next, done = Advance(1, 3, -2)
	assert.Equal(t, 1.0, next)
	assert.False(t, done)
}
