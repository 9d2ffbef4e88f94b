// Package model defines the data models of the progression and nutrition engine.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"wholefood-engine/internal/nutrition"
)

// User is a player's progression state. The row is owned by the surrounding
// auth system; the engine creates it lazily on first contact.
type User struct {
	ID             uuid.UUID  `db:"id"`
	Name           string     `db:"name"`
	XPPoints       int64      `db:"xp_points"`
	CurrentStreak  int        `db:"current_streak"`
	LongestStreak  int        `db:"longest_streak"`
	LastActiveDate *time.Time `db:"last_active_date"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`
}

// XPTransaction is one append-only XP ledger entry.
// AwardDate is set only for once-per-day awards and is part of their
// uniqueness key together with ReasonKind.
type XPTransaction struct {
	ID         int64      `db:"id"`
	UserID     uuid.UUID  `db:"user_id"`
	Amount     int64      `db:"amount"`
	Reason     string     `db:"reason"`
	ReasonKind string     `db:"reason_kind"`
	AwardDate  *time.Time `db:"award_date"`
	CreatedAt  time.Time  `db:"created_at"`
}

// UnlockRecord proves a user satisfied an achievement.
type UnlockRecord struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	AchievementID uuid.UUID `db:"achievement_id"`
	UnlockedAt    time.Time `db:"unlocked_at"`
}

// FoodLog is one logged food entry with its scaled nutrition snapshot.
type FoodLog struct {
	ID         uuid.UUID          `db:"id"`
	UserID     uuid.UUID          `db:"user_id"`
	Date       time.Time          `db:"log_date"`
	MealType   string             `db:"meal_type"`
	SourceType string             `db:"source_type"`
	SourceID   *string            `db:"source_id"`
	Title      string             `db:"title"`
	Servings   float64            `db:"servings"`
	Quantity   float64            `db:"quantity"`
	Snapshot   nutrition.Snapshot `db:"nutrition_snapshot"`
	CreatedAt  time.Time          `db:"created_at"`
}

// DailyNutritionSummary is the stored rollup of one user-day.
type DailyNutritionSummary struct {
	UserID     uuid.UUID                       `db:"user_id"`
	Date       time.Time                       `db:"summary_date"`
	Totals     map[string]float64              `db:"totals"`
	Comparison map[string]nutrition.Comparison `db:"comparison"`
	DailyScore float64                         `db:"daily_score"`
	UpdatedAt  time.Time                       `db:"updated_at"`
}

// NutritionStreak is the nutrition-quality streak of a user.
type NutritionStreak struct {
	UserID             uuid.UUID  `db:"user_id"`
	CurrentStreak      int        `db:"current_streak"`
	LongestStreak      int        `db:"longest_streak"`
	LastQualifyingDate *time.Time `db:"last_qualifying_date"`
	Threshold          float64    `db:"threshold"`
	UpdatedAt          time.Time  `db:"updated_at"`
}

// DailyQuest is one generated quest of a user-day.
type DailyQuest struct {
	ID           uuid.UUID      `db:"id"`
	UserID       uuid.UUID      `db:"user_id"`
	Date         time.Time      `db:"quest_date"`
	QuestType    string         `db:"quest_type"`
	Title        string         `db:"title"`
	Description  string         `db:"description"`
	TargetValue  float64        `db:"target_value"`
	CurrentValue float64        `db:"current_value"`
	XPReward     int64          `db:"xp_reward"`
	Completed    bool           `db:"completed"`
	CompletedAt  *time.Time     `db:"completed_at"`
	Metadata     map[string]any `db:"metadata"`
	CreatedAt    time.Time      `db:"created_at"`
}

// Metric returns the progress metric recorded in the quest metadata.
func (q *DailyQuest) Metric() string {
	if m, ok := q.Metadata["metric"].(string); ok {
		return m
	}
	return ""
}

// LeaderboardEntry is one row of the XP leaderboard.
type LeaderboardEntry struct {
	Rank       int       `json:"rank"`
	UserID     uuid.UUID `json:"user_id"`
	Name       string    `json:"name"`
	XPPoints   int64     `json:"xp_points"`
	Level      int       `json:"level"`
	LevelTitle string    `json:"level_title"`
	Streak     int       `json:"streak"`
}

// XP reason kinds. A reason is either a bare kind or "<kind>:<detail>".
const (
	ReasonAchievement   = "achievement"
	ReasonNutritionTier = "nutrition_tier"
	ReasonDailyStreak   = "daily_streak"
	ReasonQuest         = "quest"
	ReasonMealLog       = "meal_log"
	ReasonHealthify     = "healthify"
)

// Reason joins a reason kind and its detail.
func Reason(kind, detail string) string {
	if detail == "" {
		return kind
	}
	return kind + ":" + detail
}

// ReasonKind returns the part of a reason before the first colon.
func ReasonKind(reason string) string {
	kind, _, _ := strings.Cut(reason, ":")
	return kind
}

// Food log sources.
const (
	SourceManual   = "manual"
	SourceRecipe   = "recipe"
	SourceCookMode = "cook_mode"
	SourceMealPlan = "meal_plan"
)

// WholeFoodSources are the sources counted as home-cooked or planned meals.
func WholeFoodSources() []string {
	return []string{SourceRecipe, SourceCookMode, SourceMealPlan}
}

// IsValidSource reports whether s is a known food log source.
func IsValidSource(s string) bool {
	switch s {
	case SourceManual, SourceRecipe, SourceCookMode, SourceMealPlan:
		return true
	}
	return false
}
