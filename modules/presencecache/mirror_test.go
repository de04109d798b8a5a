package presencecache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/example/realtime-chat/events"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}

func testRedisAddr() string {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		return addr
	}
	return "localhost:6379"
}

// setupTestMirror creates a mirror with a unique prefix, skipping when Redis
// is not reachable.
func setupTestMirror(t *testing.T, ttl time.Duration) (*Mirror, *redis.Client) {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: testRedisAddr()})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		t.Skipf("Redis not available at %s: %v", testRedisAddr(), err)
	}

	prefix := "test:" + t.Name() + ":"
	t.Cleanup(func() {
		keys, _ := client.Keys(ctx, prefix+"*").Result()
		if len(keys) > 0 {
			client.Del(ctx, keys...)
		}
		_ = client.Close()
	})

	return NewMirror(client, prefix, ttl), client
}

func TestMirror_OnlineOffline(t *testing.T) {
	mirror, client := setupTestMirror(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, mirror.SetOnline(ctx, "alice"))

	online, err := mirror.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, online)

	ttl, err := client.TTL(ctx, mirror.key("alice")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	require.NoError(t, mirror.SetOffline(ctx, "alice"))
	online, err = mirror.IsOnline(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestMirror_RefreshAndClear(t *testing.T) {
	mirror, client := setupTestMirror(t, 2*time.Second)
	ctx := context.Background()

	require.NoError(t, mirror.SetOnline(ctx, "alice"))
	require.NoError(t, mirror.SetOnline(ctx, "bob"))
	require.NoError(t, client.Expire(ctx, mirror.key("alice"), 100*time.Millisecond).Err())

	require.NoError(t, mirror.Refresh(ctx))
	ttl, err := client.TTL(ctx, mirror.key("alice")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Second)
	assert.Equal(t, 2, mirror.Stats().Tracked)

	require.NoError(t, mirror.Clear(ctx))
	n, err := client.Exists(ctx, mirror.key("alice"), mirror.key("bob")).Result()
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, mirror.Stats().Tracked)
}

func TestModule_HandlesPresenceEvents(t *testing.T) {
	mirror, client := setupTestMirror(t, time.Minute)
	m := &Module{client: client, mirror: mirror, logger: &mockLogger{}}
	ctx := context.Background()

	require.NoError(t, m.handlePresenceChanged(ctx, events.PresenceChangedEvent{Username: "carol", Online: true}, nil))
	online, err := mirror.IsOnline(ctx, "carol")
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, m.handlePresenceChanged(ctx, events.PresenceChangedEvent{Username: "carol", Online: false}, nil))
	online, err = mirror.IsOnline(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, online)
}

func TestNewModule_Defaults(t *testing.T) {
	m := NewModule(Config{Addr: "localhost:0"}, &mockLogger{})
	defer m.client.Close()

	assert.Equal(t, "presencecache", m.Name())
	assert.Equal(t, 2*time.Minute, m.cfg.TTL)
	assert.Equal(t, DefaultPrefix, m.mirror.prefix)
}
