package api

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/example/realtime-chat/domain/chat"
	"github.com/example/realtime-chat/events"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/directory"
	"github.com/example/realtime-chat/modules/history"
	"github.com/example/realtime-chat/modules/realtime"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// PresenceLookup answers presence questions for users connected to other
// processes.
type PresenceLookup interface {
	IsOnline(ctx context.Context, username string) (bool, error)
}

// Config holds the HTTP server settings.
type Config struct {
	Port           int
	AllowedOrigins []string
}

// APIModule is the HTTP API module with WebSocket support.
type APIModule struct {
	cfg       Config
	app       *fiber.App
	identity  auth.IdentityPort
	accounts  auth.AccountPort
	directory directory.DirectoryPort
	history   history.StorePort
	engine    *realtime.Engine
	presence  PresenceLookup
	logger    types.Logger

	ctx    context.Context
	cancel context.CancelFunc

	rooms      sync.Map // slug -> chat.Room
	knownUsers sync.Map // username -> struct{}
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*APIModule)(nil)
	_ mono.DependentModule       = (*APIModule)(nil)
	_ mono.EventConsumerModule   = (*APIModule)(nil)
	_ mono.HealthCheckableModule = (*APIModule)(nil)
)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	ctx, cancel := context.WithCancel(context.Background())
	return &APIModule{
		cfg:    cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"directory", "history", "auth"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "directory":
		m.directory = directory.NewDirectoryAdapter(container)
	case "history":
		m.history = history.NewStoreAdapter(container)
	case "auth":
		adapter := auth.NewIdentityAdapter(container)
		m.identity = adapter
		m.accounts = adapter
	}
}

// SetEngine sets the messaging engine (called from main.go).
func (m *APIModule) SetEngine(engine *realtime.Engine) {
	m.engine = engine
}

// SetPresenceLookup sets the cross-process presence source (called from
// main.go when the presence cache is enabled).
func (m *APIModule) SetPresenceLookup(lookup PresenceLookup) {
	m.presence = lookup
}

// RegisterEventConsumers keeps the known-rooms cache in line with the
// directory.
func (m *APIModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomCreatedV1, m.handleRoomCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.RoomDeletedV1, m.handleRoomDeleted, m,
	); err != nil {
		return fmt.Errorf("failed to register RoomDeleted consumer: %w", err)
	}
	return nil
}

func (m *APIModule) handleRoomCreated(_ context.Context, e events.RoomCreatedEvent, _ *mono.Msg) error {
	m.rooms.Store(e.Slug, chat.Room{
		Slug:      e.Slug,
		Name:      e.Name,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.Timestamp,
	})
	return nil
}

func (m *APIModule) handleRoomDeleted(_ context.Context, e events.RoomDeletedEvent, _ *mono.Msg) error {
	m.rooms.Delete(e.Slug)
	return nil
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.directory == nil {
		return fmt.Errorf("directory dependency not set")
	}
	if m.history == nil {
		return fmt.Errorf("history dependency not set")
	}
	if m.identity == nil || m.accounts == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.engine == nil {
		return fmt.Errorf("realtime engine not set")
	}

	m.app = m.newApp()

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start HTTP server: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	m.cancel()
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	details := map[string]any{"port": m.cfg.Port}
	if m.engine != nil {
		details["sessions"] = m.engine.Registry().SessionCount()
	}
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: details,
	}
}

// newApp builds the Fiber application with middleware and routes.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} ${method} ${path} ${latency}\n",
		Next: func(c *fiber.Ctx) bool {
			return websocket.IsWebSocketUpgrade(c)
		},
	}))

	origins := strings.Join(m.cfg.AllowedOrigins, ",")
	if origins == "" {
		origins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))

	m.setupRoutes(app)
	return app
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
