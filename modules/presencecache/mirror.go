// Package presencecache mirrors presence transitions into Redis so that other
// processes can answer "is this user online?".
package presencecache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is prepended to every presence key.
const DefaultPrefix = "presence:"

// Mirror writes one key per online user. Keys carry a TTL and are refreshed
// while the user stays online, so a crashed process does not leave users
// online forever.
type Mirror struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	online map[string]struct{} // users this process marked online

	writes atomic.Uint64
	errs   atomic.Uint64
}

// Stats is a snapshot of mirror counters.
type Stats struct {
	Tracked int    `json:"tracked"`
	Writes  uint64 `json:"writes"`
	Errors  uint64 `json:"errors"`
}

// NewMirror creates a mirror over client.
func NewMirror(client *redis.Client, prefix string, ttl time.Duration) *Mirror {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Mirror{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		online: make(map[string]struct{}),
	}
}

func (m *Mirror) key(username string) string {
	return m.prefix + username
}

// SetOnline marks the user online.
func (m *Mirror) SetOnline(ctx context.Context, username string) error {
	m.mu.Lock()
	m.online[username] = struct{}{}
	m.mu.Unlock()

	if err := m.client.Set(ctx, m.key(username), "1", m.ttl).Err(); err != nil {
		m.errs.Add(1)
		return fmt.Errorf("presence set error: %w", err)
	}
	m.writes.Add(1)
	return nil
}

// SetOffline removes the user's key.
func (m *Mirror) SetOffline(ctx context.Context, username string) error {
	m.mu.Lock()
	delete(m.online, username)
	m.mu.Unlock()

	if err := m.client.Del(ctx, m.key(username)).Err(); err != nil {
		m.errs.Add(1)
		return fmt.Errorf("presence delete error: %w", err)
	}
	m.writes.Add(1)
	return nil
}

// IsOnline reports whether any process has the user online.
func (m *Mirror) IsOnline(ctx context.Context, username string) (bool, error) {
	err := m.client.Get(ctx, m.key(username)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		m.errs.Add(1)
		return false, fmt.Errorf("presence get error: %w", err)
	}
	return true, nil
}

// Refresh extends the TTL of every user this process has online.
func (m *Mirror) Refresh(ctx context.Context) error {
	m.mu.Lock()
	users := make([]string, 0, len(m.online))
	for u := range m.online {
		users = append(users, u)
	}
	m.mu.Unlock()

	if len(users) == 0 {
		return nil
	}

	pipe := m.client.Pipeline()
	for _, u := range users {
		pipe.Set(ctx, m.key(u), "1", m.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		m.errs.Add(1)
		return fmt.Errorf("presence refresh error: %w", err)
	}
	m.writes.Add(uint64(len(users)))
	return nil
}

// Clear deletes the keys of every user this process has online.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.online))
	for u := range m.online {
		keys = append(keys, m.key(u))
	}
	m.online = make(map[string]struct{})
	m.mu.Unlock()

	if len(keys) == 0 {
		return nil
	}
	if err := m.client.Del(ctx, keys...).Err(); err != nil {
		m.errs.Add(1)
		return fmt.Errorf("presence clear error: %w", err)
	}
	return nil
}

// Stats returns the current counters.
func (m *Mirror) Stats() Stats {
	m.mu.Lock()
	tracked := len(m.online)
	m.mu.Unlock()
	return Stats{Tracked: tracked, Writes: m.writes.Load(), Errors: m.errs.Load()}
}

// Ping checks if the Redis connection is healthy.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}
