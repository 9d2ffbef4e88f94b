// Package service provides business logic implementations.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"wholefood-engine/internal/achievement"
	"wholefood-engine/internal/metrics"
	"wholefood-engine/internal/repository"
	"wholefood-engine/internal/streak"
)

// Common errors for service operations.
var (
	ErrInvalidAmount = errors.New("invalid amount: must be positive")
	ErrInvalidReason = errors.New("invalid reason: must not be empty")
	ErrInvalidSource = errors.New("invalid food log source")
	ErrUserNotFound  = errors.New("user not found")
	ErrQuestNotFound = errors.New("quest not found")
	ErrLogNotFound   = errors.New("food log not found")
)

// Clock resolves calendar days in the configured timezone.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

// NewClock creates a Clock for the timezone. A nil location means UTC.
func NewClock(loc *time.Location) *Clock {
	if loc == nil {
		loc = time.UTC
	}
	return &Clock{loc: loc, now: time.Now}
}

// Now returns the current time in the clock's timezone.
func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// Today returns the current calendar day.
func (c *Clock) Today() time.Time {
	return streak.Day(c.Now())
}

// Day normalises t to its calendar day in the clock's timezone. A zero t
// means today. A UTC midnight is already a calendar day and is kept as is.
func (c *Clock) Day(t time.Time) time.Time {
	if t.IsZero() {
		return c.Today()
	}
	if isCalendarDay(t) {
		return t
	}
	return streak.Day(t.In(c.loc))
}

func isCalendarDay(t time.Time) bool {
	if t.Location() != time.UTC {
		return false
	}
	h, m, sec := t.Clock()
	return h == 0 && m == 0 && sec == 0 && t.Nanosecond() == 0
}

// StartOf returns the instant a calendar day begins in the clock's timezone.
func (c *Clock) StartOf(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// ensureUser creates the user row on first contact.
func ensureUser(ctx context.Context, tx *repository.Store, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return ErrUserNotFound
	}
	if _, _, err := tx.Users.EnsureUser(ctx, userID, ""); err != nil {
		return fmt.Errorf("failed to ensure user: %w", err)
	}
	return nil
}

// journal collects the side effects of a transaction so they are logged and
// counted only after it commits.
type journal struct {
	userID     uuid.UUID
	awards     []*AwardResult
	unlocks    []UnlockedAchievement
	conflicts  int
	unknown    []achievement.Def
	duplicates []string
	quests     []string
	scores     []float64
}

func newJournal(userID uuid.UUID) *journal {
	return &journal{userID: userID}
}

func (j *journal) publish(m *metrics.Metrics) {
	uid := j.userID.String()

	for _, a := range j.awards {
		m.XPAwarded(a.ReasonKind, a.XPGained)
		if a.NewLevel > 0 {
			log.Info().
				Str("user_id", uid).
				Int("level", a.NewLevel).
				Str("title", a.LevelTitle).
				Int64("total_xp", a.TotalXP).
				Msg("Level up")
		}
	}

	for _, u := range j.unlocks {
		m.Unlocked(u.Category)
		log.Info().
			Str("user_id", uid).
			Str("achievement", u.Name).
			Int64("xp", u.XPReward).
			Msg("Achievement unlocked")
	}

	for i := 0; i < j.conflicts; i++ {
		m.UnlockConflict()
	}
	if j.conflicts > 0 {
		log.Debug().Str("user_id", uid).Int("conflicts", j.conflicts).Msg("Unlock already recorded by a concurrent pass")
	}

	for _, def := range j.unknown {
		m.UnknownCriterion(string(def.Criterion.Kind()))
		log.Warn().
			Str("achievement", def.Name).
			Str("kind", string(def.Criterion.Kind())).
			Msg("Skipping achievement with unknown criterion")
	}

	for _, kind := range j.duplicates {
		m.DailyAwardDuplicate(kind)
		log.Debug().Str("user_id", uid).Str("reason_kind", kind).Msg("Daily award already paid")
	}

	for _, questType := range j.quests {
		m.QuestCompleted(questType)
	}

	for _, score := range j.scores {
		m.DailyScore(score)
	}
}
