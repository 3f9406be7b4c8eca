package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("SCAN_COOLDOWN", "")

	cfg := Load()
	assert.Equal(t, "8081", cfg.HTTPPort)
	assert.Equal(t, 3*time.Second, cfg.ScanCooldown)
	assert.Equal(t, 5, cfg.LeaderboardSize)
	assert.True(t, cfg.AutoMigrate)
	assert.False(t, cfg.CloudinaryEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SCAN_COOLDOWN", "10s")
	t.Setenv("RATE_LIMIT_PER_MIN", "30")
	t.Setenv("AUTO_MIGRATE", "false")

	cfg := Load()
	assert.True(t, cfg.Production())
	assert.Equal(t, 10*time.Second, cfg.ScanCooldown)
	assert.Equal(t, 30, cfg.RateLimitPerMin)
	assert.False(t, cfg.AutoMigrate)
}

func TestInvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCAN_COOLDOWN", "soon")
	t.Setenv("LEADERBOARD_SIZE", "five")
	t.Setenv("AUTO_MIGRATE", "maybe")

	cfg := Load()
	assert.Equal(t, 3*time.Second, cfg.ScanCooldown)
	assert.Equal(t, 5, cfg.LeaderboardSize)
	assert.True(t, cfg.AutoMigrate)
}
