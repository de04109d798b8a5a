package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/realtime-chat/internal/sqlite"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/gorm"
)

// Module stores chat messages in SQLite and serves room history.
type Module struct {
	db      *gorm.DB
	repo    *Repository
	dbPath  string
	dbDebug bool
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new history module storing its data at dbPath.
func NewModule(dbPath string, dbDebug bool, logger types.Logger) *Module {
	return &Module{
		dbPath:  dbPath,
		dbDebug: dbDebug,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "persist", json.Unmarshal, json.Marshal, m.persist,
	); err != nil {
		return fmt.Errorf("failed to register persist service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "history", json.Unmarshal, json.Marshal, m.history,
	); err != nil {
		return fmt.Errorf("failed to register history service: %w", err)
	}

	m.logger.Info("Registered services", "services", "persist, history")
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

	m.logger.Info("History module started", "path", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *Module) Stop(_ context.Context) error {
	if err := sqlite.Close(m.db); err != nil {
		return err
	}
	m.logger.Info("History module stopped")
	return nil
}

// Health performs a health check on the history database.
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
