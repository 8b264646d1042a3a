package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-jobportal-web/internal/domain"

	goredis "github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

type sessionRepository struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewSessionRepository stores session records as JSON with a sliding TTL.
func NewSessionRepository(client *goredis.Client, ttl time.Duration) domain.SessionRepository {
	return &sessionRepository{client: client, ttl: ttl}
}

func (r *sessionRepository) Get(ctx context.Context, id string) (*domain.SessionRecord, error) {
	raw, err := r.client.Get(ctx, sessionKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

func (r *sessionRepository) Save(ctx context.Context, rec *domain.SessionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := r.client.Set(ctx, sessionKeyPrefix+rec.ID, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

type memoryEntry struct {
	rec     domain.SessionRecord
	expires time.Time
}

// MemorySessionRepository keeps records in process memory. Used when Redis
// is not configured and in tests.
type MemorySessionRepository struct {
	mu   sync.RWMutex
	ttl  time.Duration
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemorySessionRepository(ttl time.Duration) *MemorySessionRepository {
	return &MemorySessionRepository{ttl: ttl, data: make(map[string]memoryEntry), now: time.Now}
}

func (r *MemorySessionRepository) Get(_ context.Context, id string) (*domain.SessionRecord, error) {
	r.mu.RLock()
	e, ok := r.data[id]
	r.mu.RUnlock()

	if !ok || (r.ttl > 0 && !r.now().Before(e.expires)) {
		return nil, domain.ErrNotFound
	}
	rec := e.rec
	return &rec, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, rec *domain.SessionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ID] = memoryEntry{rec: *rec, expires: r.now().Add(r.ttl)}
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, id)
	return nil
}
