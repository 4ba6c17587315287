package hunt

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Scope separates the durable copy of progress from an opportunistic one.
type Scope string

const (
	ScopeLocal   Scope = "local"
	ScopeSession Scope = "session"
)

// Scopes lists every scope a sweep or reset touches.
var Scopes = []Scope{ScopeLocal, ScopeSession}

// ProgressKeyPrefix prefixes every per-team progress key.
const ProgressKeyPrefix = "huntProgress:"

// ProgressKey returns the storage key for a team.
func ProgressKey(teamID string) string {
	return ProgressKeyPrefix + teamID
}

// ProgressStore persists serialized progress entries per scope.
type ProgressStore interface {
	Get(ctx context.Context, scope Scope, key string) (string, bool, error)
	Set(ctx context.Context, scope Scope, key, value string) error
	Delete(ctx context.Context, scope Scope, key string) error
	// Keys lists keys carrying ProgressKeyPrefix in the scope.
	Keys(ctx context.Context, scope Scope) ([]string, error)
}

// MemoryProgressStore keeps progress in process memory.
type MemoryProgressStore struct {
	mu      sync.RWMutex
	entries map[Scope]map[string]string
}

var _ ProgressStore = (*MemoryProgressStore)(nil)

func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{entries: make(map[Scope]map[string]string)}
}

func (m *MemoryProgressStore) Get(_ context.Context, scope Scope, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	val, ok := m.entries[scope][key]
	return val, ok, nil
}

func (m *MemoryProgressStore) Set(_ context.Context, scope Scope, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries[scope] == nil {
		m.entries[scope] = make(map[string]string)
	}
	m.entries[scope][key] = value
	return nil
}

func (m *MemoryProgressStore) Delete(_ context.Context, scope Scope, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries[scope], key)
	return nil
}

func (m *MemoryProgressStore) Keys(_ context.Context, scope Scope) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.entries[scope]))
	for k := range m.entries[scope] {
		if strings.HasPrefix(k, ProgressKeyPrefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// RedisProgressStore keeps progress entries as plain string keys in Redis.
// Session-scope entries expire after sessionTTL so they cannot pile up.
type RedisProgressStore struct {
	client     *redis.Client
	prefix     string
	sessionTTL time.Duration
}

var _ ProgressStore = (*RedisProgressStore)(nil)

func NewRedisProgressStore(client *redis.Client, prefix string, sessionTTL time.Duration) *RedisProgressStore {
	if prefix == "" {
		prefix = "hunt"
	}
	return &RedisProgressStore{client: client, prefix: prefix, sessionTTL: sessionTTL}
}

func (s *RedisProgressStore) key(scope Scope, key string) string {
	return fmt.Sprintf("%s:%s:%s", s.prefix, scope, key)
}

func (s *RedisProgressStore) Get(ctx context.Context, scope Scope, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.key(scope, key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get progress: %w", err)
	}
	return val, true, nil
}

func (s *RedisProgressStore) Set(ctx context.Context, scope Scope, key, value string) error {
	var ttl time.Duration
	if scope == ScopeSession {
		ttl = s.sessionTTL
	}
	if err := s.client.Set(ctx, s.key(scope, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Delete(ctx context.Context, scope Scope, key string) error {
	if err := s.client.Del(ctx, s.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Keys(ctx context.Context, scope Scope) ([]string, error) {
	scopePrefix := s.key(scope, "")
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, scopePrefix+ProgressKeyPrefix+"*", 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scan progress keys: %w", err)
		}
		for _, k := range batch {
			keys = append(keys, strings.TrimPrefix(k, scopePrefix))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(keys)
	return keys, nil
}
