package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginTracker_InMemory(t *testing.T) {
	ctx := context.Background()
	cfg := LoginTrackerConfig{MaxAttempts: 3, AttemptWindow: time.Minute, BlockDuration: time.Minute, UseIPTracking: true}

	t.Run("Should block after max attempts", func(t *testing.T) {
		lt := NewLoginTracker(cfg, nil, nil)

		for i := 1; i < 3; i++ {
			blocked, n, err := lt.RecordFailedAttempt(ctx, "Ada@Example.com", "10.0.0.1")
			require.NoError(t, err)
			assert.False(t, blocked)
			assert.Equal(t, i, n)
		}
		remaining, err := lt.RemainingAttempts(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, 1, remaining)

		blocked, _, err := lt.RecordFailedAttempt(ctx, "ada@example.com", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, blocked)

		isBlocked, err := lt.IsBlocked(ctx, "ADA@example.com", "")
		require.NoError(t, err)
		assert.True(t, isBlocked)

		isBlocked, err = lt.IsBlocked(ctx, "other@example.com", "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, isBlocked, "IP should be blocked too")
	})

	t.Run("Should expire blocks", func(t *testing.T) {
		lt := NewLoginTracker(cfg, nil, nil)
		now := time.Now()
		lt.now = func() time.Time { return now }

		for i := 0; i < 3; i++ {
			_, _, _ = lt.RecordFailedAttempt(ctx, "ada@example.com", "")
		}
		blocked, _ := lt.IsBlocked(ctx, "ada@example.com", "")
		assert.True(t, blocked)

		now = now.Add(2 * time.Minute)
		blocked, _ = lt.IsBlocked(ctx, "ada@example.com", "")
		assert.False(t, blocked)
	})

	t.Run("Should reset counters on success", func(t *testing.T) {
		lt := NewLoginTracker(cfg, nil, nil)
		_, _, _ = lt.RecordFailedAttempt(ctx, "ada@example.com", "")
		require.NoError(t, lt.ClearAttempts(ctx, "ada@example.com", ""))

		remaining, err := lt.RemainingAttempts(ctx, "ada@example.com")
		require.NoError(t, err)
		assert.Equal(t, 3, remaining)
	})
}
