package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.Addr())
	assert.Equal(t, "directory.db", cfg.DirectoryDBPath)
	assert.Equal(t, "history.db", cfg.HistoryDBPath)
	assert.Equal(t, "auth.db", cfg.AuthDBPath)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, "realtime-chat", cfg.JWTIssuer)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 64, cfg.OutboundQueueSize)
	assert.Equal(t, 5000, cfg.MaxMessageLength)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.PresenceCacheEnabled())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("PORT", "9090")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PRESENCE_TTL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("OUTBOUND_QUEUE_SIZE", "8")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.True(t, cfg.PresenceCacheEnabled())
	assert.Equal(t, 30*time.Second, cfg.PresenceTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 8, cfg.OutboundQueueSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"bad port", map[string]string{"JWT_SECRET": "x", "PORT": "70000"}},
		{"zero queue", map[string]string{"JWT_SECRET": "x", "OUTBOUND_QUEUE_SIZE": "0"}},
		{"unparsable duration", map[string]string{"JWT_SECRET": "x", "SHUTDOWN_TIMEOUT": "soon"}},
		{"short presence ttl", map[string]string{"JWT_SECRET": "x", "REDIS_ADDR": "r:6379", "PRESENCE_TTL": "10ms"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
