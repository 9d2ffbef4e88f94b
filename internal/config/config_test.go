package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, int64(50), cfg.Gamification.MealLogXP)
	assert.Equal(t, int64(25), cfg.Gamification.DailyStreakXP)
	assert.Equal(t, 60.0, cfg.Gamification.NutritionThreshold)
	assert.Equal(t, 20, cfg.Gamification.LeaderboardSize)
	assert.Equal(t, time.UTC, cfg.Gamification.Location())
	assert.Equal(t, time.Hour, cfg.Gamification.ReconcileInterval)
	assert.Equal(t, 500, cfg.Gamification.ReconcileBatch)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	yaml := []byte(`
database:
  host: db.internal
  pool_size: 5
gamification:
  timezone: Europe/Berlin
  meal_log_xp: 75
  reconcile_interval: 15m
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("DATABASE_PORT", "6543")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, 5, cfg.Database.PoolSize)
	assert.Equal(t, int64(75), cfg.Gamification.MealLogXP)
	assert.Equal(t, "Europe/Berlin", cfg.Gamification.Location().String())
	assert.Equal(t, 15*time.Minute, cfg.Gamification.ReconcileInterval)
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("GAMIFICATION_TIMEZONE", "Mars/Olympus")

	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 1, Name: "n"}
	assert.Equal(t, "postgres://u:p@h:1/n?sslmode=disable", d.DSN())
}
