package security

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-jobportal-web/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// LoginTrackerConfig holds configuration for login tracking
type LoginTrackerConfig struct {
	MaxAttempts   int           // failed attempts before block (default: 5)
	AttemptWindow time.Duration // window for counting attempts (default: 15min)
	BlockDuration time.Duration // block length after max attempts (default: 15min)
	UseIPTracking bool          // also track by client IP (default: true)
}

func DefaultLoginTrackerConfig() LoginTrackerConfig {
	return LoginTrackerConfig{
		MaxAttempts:   5,
		AttemptWindow: 15 * time.Minute,
		BlockDuration: 15 * time.Minute,
		UseIPTracking: true,
	}
}

// LoginTracker counts failed password sign-ins per email and IP and blocks
// further attempts once the threshold is reached. Counters live in Redis
// when a client is supplied, otherwise in process memory.
type LoginTracker struct {
	config LoginTrackerConfig
	client *goredis.Client
	log    *logger.Logger
	now    func() time.Time

	mu      sync.Mutex
	counts  map[string]*memCounter
	blocked map[string]time.Time
}

type memCounter struct {
	n       int
	expires time.Time
}

func NewLoginTracker(config LoginTrackerConfig, client *goredis.Client, log *logger.Logger) *LoginTracker {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LoginTracker{
		config:  config,
		client:  client,
		log:     log,
		now:     time.Now,
		counts:  make(map[string]*memCounter),
		blocked: make(map[string]time.Time),
	}
}

// Redis key patterns
const (
	failLoginUserPrefix    = "fail:login:user:"
	failLoginIPPrefix      = "fail:login:ip:"
	blockedLoginUserPrefix = "blocked:login:user:"
	blockedLoginIPPrefix   = "blocked:login:ip:"
)

// KEYS[1] = counter key, ARGV[1] = TTL in seconds. Returns the new count.
const incrWithTTLScript = `
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return count
`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsBlocked reports whether the email or IP is currently blocked.
func (lt *LoginTracker) IsBlocked(ctx context.Context, email, ip string) (bool, error) {
	keys := []string{blockedLoginUserPrefix + normalizeEmail(email)}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, blockedLoginIPPrefix+ip)
	}

	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		now := lt.now()
		for _, k := range keys {
			if until, ok := lt.blocked[k]; ok {
				if now.Before(until) {
					return true, nil
				}
				delete(lt.blocked, k)
			}
		}
		return false, nil
	}

	exists, err := lt.client.Exists(ctx, keys...).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check login block: %w", err)
	}
	return exists > 0, nil
}

// RecordFailedAttempt records a failed sign-in and reports whether a block
// was created. Returns (blocked, currentAttempts, error).
func (lt *LoginTracker) RecordFailedAttempt(ctx context.Context, email, ip string) (bool, int, error) {
	email = normalizeEmail(email)
	userKey := failLoginUserPrefix + email
	ipKey := ""
	if lt.config.UseIPTracking && ip != "" {
		ipKey = failLoginIPPrefix + ip
	}

	userCount, err := lt.increment(ctx, userKey)
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment user counter: %w", err)
	}
	if ipKey != "" {
		_, _ = lt.increment(ctx, ipKey) // best effort
	}

	lt.log.Warn("login failed", "email", email, "ip", ip, "attempts", userCount)

	if userCount >= lt.config.MaxAttempts {
		if err := lt.createBlock(ctx, email, ip); err != nil {
			return true, userCount, fmt.Errorf("failed to create block: %w", err)
		}
		return true, userCount, nil
	}
	return false, userCount, nil
}

func (lt *LoginTracker) increment(ctx context.Context, key string) (int, error) {
	if lt.client == nil {
		lt.mu.Lock()
		defer lt.mu.Unlock()
		now := lt.now()
		c, ok := lt.counts[key]
		if !ok || !now.Before(c.expires) {
			c = &memCounter{expires: now.Add(lt.config.AttemptWindow)}
			lt.counts[key] = c
		}
		c.n++
		return c.n, nil
	}

	ttlSeconds := int(lt.config.AttemptWindow.Seconds())
	result, err := lt.client.Eval(ctx, incrWithTTLScript, []string{key}, ttlSeconds).Result()
	if err != nil {
		return 0, err
	}
	count, ok := result.(int64)
	if !ok {
		return 0, errors.New("unexpected result type from Lua script")
	}
	return int(count), nil
}

func (lt *LoginTracker) createBlock(ctx context.Context, email, ip string) error {
	blockTTL := lt.config.BlockDuration
	userBlockKey := blockedLoginUserPrefix + email
	ipBlockKey := ""
	if lt.config.UseIPTracking && ip != "" {
		ipBlockKey = blockedLoginIPPrefix + ip
	}

	if lt.client == nil {
		lt.mu.Lock()
		until := lt.now().Add(blockTTL)
		lt.blocked[userBlockKey] = until
		if ipBlockKey != "" {
			lt.blocked[ipBlockKey] = until
		}
		lt.mu.Unlock()
	} else {
		if err := lt.client.Set(ctx, userBlockKey, "1", blockTTL).Err(); err != nil {
			return fmt.Errorf("failed to set user block: %w", err)
		}
		if ipBlockKey != "" {
			if err := lt.client.Set(ctx, ipBlockKey, "1", blockTTL).Err(); err != nil {
				// user is already blocked
				lt.log.Warn("failed to set IP block", "error", err)
			}
		}
	}

	lt.log.Warn("login block created", "email", email, "ip", ip, "minutes", int(blockTTL.Minutes()))
	return nil
}

// ClearAttempts resets the counters after a successful sign-in.
func (lt *LoginTracker) ClearAttempts(ctx context.Context, email, ip string) error {
	keys := []string{failLoginUserPrefix + normalizeEmail(email)}
	if lt.config.UseIPTracking && ip != "" {
		keys = append(keys, failLoginIPPrefix+ip)
	}

	if lt.client == nil {
		lt.mu.Lock()
		for _, k := range keys {
			delete(lt.counts, k)
		}
		lt.mu.Unlock()
		return nil
	}

	if err := lt.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear login attempts: %w", err)
	}
	return nil
}

// RemainingAttempts returns how many attempts remain before a block.
func (lt *LoginTracker) RemainingAttempts(ctx context.Context, email string) (int, error) {
	key := failLoginUserPrefix + normalizeEmail(email)

	var count int
	if lt.client == nil {
		lt.mu.Lock()
		if c, ok := lt.counts[key]; ok && lt.now().Before(c.expires) {
			count = c.n
		}
		lt.mu.Unlock()
	} else {
		n, err := lt.client.Get(ctx, key).Int()
		if err != nil && !errors.Is(err, goredis.Nil) {
			return 0, fmt.Errorf("failed to get attempt count: %w", err)
		}
		count = n
	}

	remaining := lt.config.MaxAttempts - count
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}
