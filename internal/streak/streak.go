// Package streak implements the date-continuity state machine shared by the
// activity streak and the nutrition-quality streak.
package streak

import "time"

// State is the persisted shape of a streak.
// LastDate is nil until the first qualifying day.
type State struct {
	Current  int
	Longest  int
	LastDate *time.Time
}

// Outcome describes what a transition did to the streak.
type Outcome int

const (
	// Unchanged means the state was left as is (already counted today,
	// grace for an unevaluated day, or an out-of-order date).
	Unchanged Outcome = iota
	// Started means the streak (re)started at 1.
	Started
	// Extended means a consecutive day incremented the streak.
	Extended
	// Broken means a missed day reset the streak to 0.
	Broken
)

func (o Outcome) String() string {
	switch o {
	case Started:
		return "started"
	case Extended:
		return "extended"
	case Broken:
		return "broken"
	}
	return "unchanged"
}

// Day truncates t to its calendar date in t's own location, returned as
// midnight UTC so that dates compare and subtract exactly.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Advance applies one day's qualification result to the streak.
//
// A non-qualifying day only resets the streak once more than a day has
// passed since the last qualifying date; a non-qualifying recompute on a day
// that already counted is a no-op. A qualifying day extends the streak by one
// when it directly follows the last qualifying date, is ignored when that
// date is today (or later), and otherwise restarts the streak at 1.
func Advance(s State, today time.Time, qualifies bool) (State, Outcome) {
	today = Day(today)

	if !qualifies {
		if s.LastDate != nil && DaysBetween(*s.LastDate, today) > 1 && s.Current != 0 {
			s.Current = 0
			return s, Broken
		}
		return s, Unchanged
	}

	outcome := Started
	if s.LastDate != nil {
		switch gap := DaysBetween(*s.LastDate, today); {
		case gap <= 0:
			return s, Unchanged
		case gap == 1:
			s.Current++
			outcome = Extended
		default:
			s.Current = 1
		}
	} else {
		s.Current = 1
	}

	s.LastDate = &today
	if s.Current > s.Longest {
		s.Longest = s.Current
	}
	return s, outcome
}
