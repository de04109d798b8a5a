package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/directory"
	"github.com/example/realtime-chat/modules/history"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// Module hosts the messaging engine inside the application.
type Module struct {
	engine    *Engine
	directory directory.DirectoryPort
	history   history.StorePort
	eventBus  mono.EventBus
	logger    types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.DependentModule       = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates the realtime module. The engine exists right away so the
// transport can hold on to it before the application starts.
func NewModule(cfg EngineConfig, logger types.Logger) *Module {
	return &Module{
		engine: NewEngine(cfg, logger),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "realtime"
}

// Dependencies declares the modules whose services the engine calls.
func (m *Module) Dependencies() []string {
	return []string{"directory", "history"}
}

// SetDependencyServiceContainer receives the containers of the dependencies.
func (m *Module) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "directory":
		m.directory = directory.NewDirectoryAdapter(container)
	case "history":
		m.history = history.NewStoreAdapter(container)
	}
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.PresenceChangedV1.ToBase(),
	}
}

// Start wires the engine to its collaborators.
func (m *Module) Start(_ context.Context) error {
	if m.directory == nil {
		return fmt.Errorf("directory dependency not set")
	}
	if m.history == nil {
		return fmt.Errorf("history dependency not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("EventBus not set, presence changes will not be published")
	}

	m.engine.Configure(
		WithDirectory(m.directory),
		WithMessageStore(m.history),
		WithPresenceListener(m),
	)
	m.logger.Info("Realtime module started", "queueSize", m.engine.cfg.QueueSize)
	return nil
}

// Stop closes all sessions.
func (m *Module) Stop(ctx context.Context) error {
	sessions := m.engine.Registry().SessionCount()
	if err := m.engine.Shutdown(ctx); err != nil {
		m.logger.Warn("Sessions still open at shutdown", "error", err)
	}
	m.logger.Info("Realtime module stopped", "sessions", sessions)
	return nil
}

// Health returns the health status.
func (m *Module) Health(_ context.Context) mono.HealthStatus {
	delivered, failed := m.engine.Broadcaster().Stats()
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"sessions":     m.engine.Registry().SessionCount(),
			"active_rooms": m.engine.Registry().RoomCount(),
			"online_users": m.engine.Presence().OnlineCount(),
			"delivered":    delivered,
			"failed":       failed,
		},
	}
}

// Engine returns the messaging engine.
func (m *Module) Engine() *Engine {
	return m.engine
}

// PresenceChanged publishes a presence transition.
func (m *Module) PresenceChanged(username string, online bool) {
	if m.eventBus == nil {
		return
	}
	event := events.PresenceChangedEvent{
		Username:  username,
		Online:    online,
		Timestamp: time.Now(),
	}
	if err := events.PresenceChangedV1.Publish(m.eventBus, event, nil); err != nil {
		m.logger.Warn("Failed to publish PresenceChanged event", "username", username, "error", err)
	}
}
