package directory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/internal/sqlite"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// Module owns rooms, private rooms and users, backed by GORM + SQLite.
type Module struct {
	db       *gorm.DB
	repo     *Repository
	dbPath   string
	dbDebug  bool
	eventBus mono.EventBus
	logger   types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.EventBusAwareModule   = (*Module)(nil)
	_ mono.EventEmitterModule    = (*Module)(nil)
	_ mono.EventConsumerModule   = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new directory module storing its data at dbPath.
func NewModule(dbPath string, dbDebug bool, logger types.Logger) *Module {
	return &Module{
		dbPath:  dbPath,
		dbDebug: dbDebug,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "directory"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.RoomCreatedV1.ToBase(),
		events.RoomDeletedV1.ToBase(),
	}
}

// RegisterEventConsumers subscribes to presence transitions so the user
// record carries the last known online flag.
func (m *Module) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.PresenceChangedV1, m.handlePresenceChanged, m,
	); err != nil {
		return fmt.Errorf("failed to register PresenceChanged consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", "PresenceChanged")
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-room", json.Unmarshal, json.Marshal, m.createRoom,
	); err != nil {
		return fmt.Errorf("failed to register create-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-room", json.Unmarshal, json.Marshal, m.getRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-rooms", json.Unmarshal, json.Marshal, m.listRooms,
	); err != nil {
		return fmt.Errorf("failed to register list-rooms service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-room", json.Unmarshal, json.Marshal, m.deleteRoom,
	); err != nil {
		return fmt.Errorf("failed to register delete-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "ensure-private-room", json.Unmarshal, json.Marshal, m.ensurePrivateRoom,
	); err != nil {
		return fmt.Errorf("failed to register ensure-private-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-private-room", json.Unmarshal, json.Marshal, m.getPrivateRoom,
	); err != nil {
		return fmt.Errorf("failed to register get-private-room service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "upsert-user", json.Unmarshal, json.Marshal, m.upsertUser,
	); err != nil {
		return fmt.Errorf("failed to register upsert-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-user", json.Unmarshal, json.Marshal, m.getUser,
	); err != nil {
		return fmt.Errorf("failed to register get-user service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "search-users", json.Unmarshal, json.Marshal, m.searchUsers,
	); err != nil {
		return fmt.Errorf("failed to register search-users service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "create-room, get-room, list-rooms, delete-room, ensure-private-room, get-private-room, upsert-user, get-user, search-users")
	return nil
}

// Start opens the database and runs migrations.
func (m *Module) Start(_ context.Context) error {
	db, err := sqlite.Open(m.dbPath, m.dbDebug)
	if err != nil {
		return err
	}
	m.db = db
	m.repo = NewRepository(db)

	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logger.Info("Directory module started", "path", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if err := sqlite.Close(m.db); err != nil {
		return err
	}
	m.logger.Info("Directory module stopped")
	return nil
}

// Health performs a health check on the directory database.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := sqlite.Ping(ctx, m.db); err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
