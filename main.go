package main

import (
	"context"
	"log"
	"os"

	"github.com/example/realtime-chat/config"
	"github.com/example/realtime-chat/modules/api"
	"github.com/example/realtime-chat/modules/auth"
	"github.com/example/realtime-chat/modules/directory"
	"github.com/example/realtime-chat/modules/history"
	"github.com/example/realtime-chat/modules/presencecache"
	"github.com/example/realtime-chat/modules/realtime"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

func main() {
	log.Println("=== Realtime Chat - Fiber WebSocket + mono ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	directoryModule := directory.NewModule(cfg.DirectoryDBPath, cfg.DBDebug, logger.WithModule("directory"))
	historyModule := history.NewModule(cfg.HistoryDBPath, cfg.DBDebug, logger.WithModule("history"))
	authModule := auth.NewModule(auth.Config{
		Tokens: auth.TokenConfig{
			SecretKey:           cfg.JWTSecret,
			Issuer:              cfg.JWTIssuer,
			AccessTokenDuration: cfg.TokenTTL,
		},
		DBPath:     cfg.AuthDBPath,
		DBDebug:    cfg.DBDebug,
		BcryptCost: cfg.BcryptCost,
	}, logger.WithModule("auth"))
	realtimeModule := realtime.NewModule(realtime.EngineConfig{
		QueueSize:        cfg.OutboundQueueSize,
		MaxMessageLength: cfg.MaxMessageLength,
	}, logger.WithModule("realtime"))
	apiModule := api.NewModule(api.Config{
		Port:           cfg.Port,
		AllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger.WithModule("api"))

	// The engine is not exposed via ServiceContainer: sockets are served
	// in-process by whoever accepted them.
	apiModule.SetEngine(realtimeModule.Engine())

	// Order: independent modules first, then modules with dependencies
	// - directory, history, auth: collaborators (ServiceProviderModule)
	// - presencecache: optional Redis mirror (EventConsumerModule)
	// - realtime: messaging engine (depends on directory, history)
	// - api: driving adapter (Fiber HTTP/WebSocket, depends on all of the above)
	app.Register(directoryModule)
	app.Register(historyModule)
	app.Register(authModule)
	if cfg.PresenceCacheEnabled() {
		presenceModule := presencecache.NewModule(presencecache.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			TTL:      cfg.PresenceTTL,
		}, logger.WithModule("presencecache"))
		apiModule.SetPresenceLookup(presenceModule.Mirror())
		app.Register(presenceModule)
	}
	app.Register(realtimeModule)
	app.Register(apiModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo(cfg config.Config) {
	presence := "local only"
	if cfg.PresenceCacheEnabled() {
		presence = "mirrored to Redis at " + cfg.RedisAddr
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Architecture:")
	log.Println("  - HTTP Framework: Fiber with WebSocket support")
	log.Println("  - Storage: SQLite via GORM (directory, history, accounts)")
	log.Printf("  - Presence: %s", presence)
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.Port)
	log.Println("  GET    /health                          - Health check")
	log.Println("  POST   /api/v1/auth/register            - Create an account")
	log.Println("  POST   /api/v1/auth/login               - Get an access token")
	log.Println("  GET    /api/v1/rooms                    - List rooms")
	log.Println("  POST   /api/v1/rooms                    - Create a room (auth)")
	log.Println("  GET    /api/v1/rooms/:slug              - Room details")
	log.Println("  DELETE /api/v1/rooms/:slug              - Delete a room (creator)")
	log.Println("  GET    /api/v1/rooms/:slug/history      - Latest messages")
	log.Println("  POST   /api/v1/private/:username        - Open a private chat (auth)")
	log.Println("  GET    /api/v1/private/:slug/history    - Private history (participants)")
	log.Println("  GET    /api/v1/users?q=                 - Search users")
	log.Println("  GET    /api/v1/users/:username/status   - Presence")
	log.Println("")
	log.Printf("WebSocket Endpoints (ws://localhost:%d):", cfg.Port)
	log.Println("  /ws/chat/:room?token=...     - Public room (token optional)")
	log.Println("  /ws/private/:slug?token=...  - Private room (participants only)")
	log.Println("  Frames: {\"message\",\"username\",\"name\"}, {\"type\":\"typing\"}, {\"type\":\"stop_typing\"}, {\"type\":\"leave\"}")
	log.Println("")
	log.Println("Log in via /api/v1/auth/login, or mint a development token: go run ./cmd/mint-token -user alice")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
