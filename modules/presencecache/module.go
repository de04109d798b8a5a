package presencecache

import (
	"context"
	"fmt"
	"time"

	"github.com/example/realtime-chat/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	Prefix   string
	TTL      time.Duration
}

// Module mirrors presence transitions into Redis.
type Module struct {
	cfg    Config
	client *redis.Client
	mirror *Mirror
	cancel context.CancelFunc
	done   chan struct{}
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the presence cache module. The Redis client is created
// right away and connected on Start.
func NewModule(cfg Config, logger types.Logger) *Module {
	if cfg.TTL <= 0 {
		cfg.TTL = 2 * time.Minute
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		PoolSize:     20,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return &Module{
		cfg:    cfg,
		client: client,
		mirror: NewMirror(client, cfg.Prefix, cfg.TTL),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "presencecache"
}

// Mirror returns the Redis presence mirror.
func (m *Module) Mirror() *Mirror {
	return m.mirror
}

// RegisterEventConsumers subscribes to presence transitions.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.PresenceChangedV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register PresenceChanged consumer: %w", err)
	}
	return nil
}

func (m *Module) handlePresenceChanged(ctx context.Context, event events.PresenceChangedEvent, _ *mono.Msg) error {
	var err error
	if event.Online {
		err = m.mirror.SetOnline(ctx, event.Username)
	} else {
		err = m.mirror.SetOffline(ctx, event.Username)
	}
	if err != nil {
		m.logger.Warn("Failed to mirror presence", "username", event.Username, "online", event.Online, "error", err)
		return err
	}
	return nil
}

// Start connects to Redis and starts the TTL refresher.
func (m *Module) Start(ctx context.Context) error {
	if err := m.mirror.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	refreshCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.refreshLoop(refreshCtx)

	m.logger.Info("Presence cache started", "addr", m.cfg.Addr, "ttl", m.cfg.TTL)
	return nil
}

func (m *Module) refreshLoop(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.cfg.TTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.mirror.Refresh(ctx); err != nil {
				m.logger.Warn("Failed to refresh presence keys", "error", err)
			}
		}
	}
}

// Stop removes this process's presence keys and closes the connection.
func (m *Module) Stop(ctx context.Context) error {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	if err := m.mirror.Clear(ctx); err != nil {
		m.logger.Warn("Failed to clear presence keys", "error", err)
	}
	if err := m.client.Close(); err != nil {
		return fmt.Errorf("failed to close Redis connection: %w", err)
	}
	m.logger.Info("Presence cache stopped")
	return nil
}

// Health pings Redis.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := m.mirror.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("redis ping failed: %v", err),
		}
	}
	stats := m.mirror.Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"addr":    m.cfg.Addr,
			"tracked": stats.Tracked,
			"writes":  stats.Writes,
			"errors":  stats.Errors,
		},
	}
}
