package auth

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

// Config holds the auth module settings.
type Config struct {
	Tokens     TokenConfig
	DBPath     string
	DBDebug    bool
	BcryptCost int
}

// Module owns chat accounts and the access tokens issued for them.
type Module struct {
	cfg    Config
	tokens *TokenManager
	hasher *PasswordHasher
	db     *gorm.DB
	repo   *AccountRepository
	logger types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*Module)(nil)
	_ mono.ServiceProviderModule = (*Module)(nil)
	_ mono.HealthCheckableModule = (*Module)(nil)
)

// NewModule creates a new auth module.
func NewModule(cfg Config, logger types.Logger) *Module {
	return &Module{
		cfg:    cfg,
		tokens: NewTokenManager(cfg.Tokens),
		hasher: NewPasswordHasher(cfg.BcryptCost),
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "auth"
}

// RegisterServices registers request-reply services in the service container.
func (m *Module) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "register", json.Unmarshal, json.Marshal, m.register,
	); err != nil {
		return fmt.Errorf("failed to register register service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "login", json.Unmarshal, json.Marshal, m.login,
	); err != nil {
		return fmt.Errorf("failed to register login service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "validate-token", json.Unmarshal, json.Marshal, m.validateToken,
	); err != nil {
		return fmt.Errorf("failed to register validate-token service: %w", err)
	}

	m.logger.Info("Registered services", "services", "register, login, validate-token")
	return nil
}

// Start opens the accounts database.
func (m *Module) Start(_ context.Context) error {
	if m.tokens.config.SecretKey == "" {
		return fmt.Errorf("token secret key is required")
	}

	db, err := sqlite.Open(m.cfg.DBPath, m.cfg.DBDebug)
	if err != nil {
		return err
	}
	m.db = db
	m.repo = NewAccountRepository(db)
	if err := m.repo.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.logger.Info("Auth module started", "issuer", m.tokens.config.Issuer, "path", m.cfg.DBPath)
	return nil
}

// Stop closes the accounts database.
func (m *Module) Stop(_ context.Context) error {
	if err := sqlite.Close(m.db); err != nil {
		return err
	}
	m.logger.Info("Auth module stopped")
	return nil
}

// Health returns the health status.
func (m *Module) Health(ctx context.Context) mono.HealthStatus {
	if err := sqlite.Ping(ctx, m.db); err != nil {
		return mono.HealthStatus{Healthy: false, Message: err.Error()}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"issuer": m.tokens.config.Issuer,
		},
	}
}
