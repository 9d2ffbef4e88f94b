package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "users table",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			xp_points BIGINT NOT NULL DEFAULT 0 CHECK (xp_points >= 0),
			current_streak INT NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
			longest_streak INT NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
			last_active_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_xp ON users(xp_points DESC);
	`,
	},
	{
		name: "xp_transactions table",
		sql: `
		CREATE TABLE IF NOT EXISTS xp_transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL CHECK (amount > 0),
			reason VARCHAR(255) NOT NULL,
			reason_kind VARCHAR(64) NOT NULL,
			award_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_time ON xp_transactions(user_id, created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_xp_transactions_user_reason ON xp_transactions(user_id, reason text_pattern_ops);
		CREATE UNIQUE INDEX IF NOT EXISTS uq_xp_transactions_daily
			ON xp_transactions(user_id, reason_kind, award_date)
			WHERE award_date IS NOT NULL;
	`,
	},
	{
		name: "achievements tables",
		sql: `
		CREATE TABLE IF NOT EXISTS achievements (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			icon VARCHAR(64) NOT NULL DEFAULT 'trophy',
			xp_reward BIGINT NOT NULL DEFAULT 0,
			category VARCHAR(64) NOT NULL DEFAULT 'general',
			criteria JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS user_achievements (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			achievement_id UUID NOT NULL REFERENCES achievements(id) ON DELETE CASCADE,
			unlocked_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_user_achievement UNIQUE (user_id, achievement_id)
		);
	`,
	},
	{
		name: "nutrition tables",
		sql: `
		CREATE TABLE IF NOT EXISTS nutrition_targets (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			calories_target DOUBLE PRECISION NOT NULL DEFAULT 2200,
			protein_g_target DOUBLE PRECISION NOT NULL DEFAULT 130,
			carbs_g_target DOUBLE PRECISION NOT NULL DEFAULT 250,
			fat_g_target DOUBLE PRECISION NOT NULL DEFAULT 75,
			fiber_g_target DOUBLE PRECISION NOT NULL DEFAULT 30,
			micronutrient_targets JSONB,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE TABLE IF NOT EXISTS food_logs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			log_date DATE NOT NULL,
			meal_type VARCHAR(32) NOT NULL DEFAULT 'meal',
			source_type VARCHAR(32) NOT NULL DEFAULT 'manual',
			source_id VARCHAR(255),
			title VARCHAR(255) NOT NULL DEFAULT '',
			servings DOUBLE PRECISION NOT NULL DEFAULT 1,
			quantity DOUBLE PRECISION NOT NULL DEFAULT 1,
			nutrition_snapshot JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_food_logs_user_date ON food_logs(user_id, log_date);
		CREATE TABLE IF NOT EXISTS daily_nutrition_summary (
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			summary_date DATE NOT NULL,
			totals JSONB NOT NULL DEFAULT '{}',
			comparison JSONB NOT NULL DEFAULT '{}',
			daily_score DOUBLE PRECISION NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, summary_date)
		);
		CREATE TABLE IF NOT EXISTS nutrition_streaks (
			user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
			current_streak INT NOT NULL DEFAULT 0 CHECK (current_streak >= 0),
			longest_streak INT NOT NULL DEFAULT 0 CHECK (longest_streak >= 0),
			last_qualifying_date DATE,
			threshold DOUBLE PRECISION NOT NULL DEFAULT 60,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`,
	},
	{
		name: "daily_quests table",
		sql: `
		CREATE TABLE IF NOT EXISTS daily_quests (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			quest_date DATE NOT NULL,
			quest_type VARCHAR(16) NOT NULL,
			title VARCHAR(255) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			target_value DOUBLE PRECISION NOT NULL,
			current_value DOUBLE PRECISION NOT NULL DEFAULT 0,
			xp_reward BIGINT NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ,
			metadata JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT uq_daily_quest UNIQUE (user_id, quest_date, quest_type),
			CONSTRAINT chk_daily_quest_progress CHECK (current_value >= 0 AND current_value <= target_value)
		);
	`,
	},
	{
		// Owned by the recipe, planning and grocery features; created here with
		// the columns the counter reader needs so the engine runs standalone.
		name: "collaborator tables",
		sql: `
		CREATE TABLE IF NOT EXISTS meal_plans (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_meal_plans_user ON meal_plans(user_id);
		CREATE TABLE IF NOT EXISTS grocery_lists (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_grocery_lists_user ON grocery_lists(user_id);
		CREATE TABLE IF NOT EXISTS saved_recipes (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			user_id UUID NOT NULL,
			recipe_id VARCHAR(255) NOT NULL DEFAULT '',
			saved_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_saved_recipes_user ON saved_recipes(user_id);
		CREATE TABLE IF NOT EXISTS cuisine_views (
			id BIGSERIAL PRIMARY KEY,
			user_id UUID NOT NULL,
			cuisine VARCHAR(64) NOT NULL,
			viewed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_cuisine_views_user ON cuisine_views(user_id);
	`,
	},
}

// Migrate creates the schema. Every statement is idempotent, so it runs on
// each start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("migration", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}
