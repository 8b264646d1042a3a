package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("Should report every missing required variable", func(t *testing.T) {
		t.Setenv("JOBS_API_URL", "")
		t.Setenv("SUPABASE_URL", "")
		t.Setenv("SUPABASE_KEY", "")
		t.Setenv("SUPABASE_ANON_KEY", "")
		t.Setenv("SESSION_SECRET", "")

		_, err := LoadConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JOBS_API_URL")
		assert.Contains(t, err.Error(), "SUPABASE_URL")
		assert.Contains(t, err.Error(), "SUPABASE_KEY")
		assert.Contains(t, err.Error(), "SESSION_SECRET")
	})

	t.Run("Should trim trailing slashes and parse typed values", func(t *testing.T) {
		t.Setenv("JOBS_API_URL", "https://jobs.example.com/")
		t.Setenv("SUPABASE_URL", "https://xyz.supabase.co/")
		t.Setenv("SUPABASE_KEY", "anon")
		t.Setenv("SESSION_SECRET", "0123456789abcdef0123456789abcdef")
		t.Setenv("JOBS_API_TIMEOUT_SECONDS", "4")
		t.Setenv("JOBS_API_FORWARD_TOKEN", "false")
		t.Setenv("SESSION_SETTLE_TIMEOUT", "500ms")

		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, "https://jobs.example.com", cfg.JobsAPIURL)
		assert.Equal(t, "https://xyz.supabase.co", cfg.SupabaseUrl)
		assert.Equal(t, 4*time.Second, cfg.JobsAPITimeout)
		assert.False(t, cfg.JobsAPIForwardToken)
		assert.Equal(t, 500*time.Millisecond, cfg.SessionSettleTimeout)
	})

	t.Run("Should fall back on invalid numbers", func(t *testing.T) {
		t.Setenv("RATE_LIMIT_LOGIN_THRESHOLD", "many")
		assert.Equal(t, 10, getEnvInt("RATE_LIMIT_LOGIN_THRESHOLD", 10))
	})
}
