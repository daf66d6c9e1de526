package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"appforge/internal/auth"
	"appforge/internal/config"
	"appforge/internal/handler"
	"appforge/internal/handler/sse"
	"appforge/internal/middleware"
	"appforge/internal/prompts"
	"appforge/internal/repository/postgres"
	"appforge/internal/service"
	"appforge/internal/service/codegen"
	serviceLLM "appforge/internal/service/llm"
	"appforge/internal/service/screenshot"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier
	jwtVerifier, err := auth.NewJWTVerifier(cfg.JWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected")

	// Create repositories
	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	appRepo := postgres.NewAppRepository(repoConfig)
	historyRepo := postgres.NewChatHistoryRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Setup LLM provider
	provider, err := serviceLLM.SetupProvider(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}

	// Load the embedded prompt registry
	promptRegistry, err := prompts.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load prompt registry: %v", err)
	}
	logger.Info("prompt registry initialized")

	// Code generation services
	saver := codegen.NewFileSaver(cfg.OutputRoot, logger)
	builder := codegen.NewProjectBuilder(cfg.BuildCommand, cfg.BuildTimeout, logger)
	sessions := codegen.NewSessionStore(historyRepo, cfg.SessionCapacity, cfg.SessionTTL, logger)
	router := codegen.NewTypeRouter(provider, promptRegistry, cfg.RoutingModel, logger)
	orchestrator := codegen.NewOrchestrator(appRepo, historyRepo, sessions, provider, promptRegistry, saver, cfg, logger)

	// Screenshot capture after deploy (disabled when no command configured)
	capture := screenshot.CommandCapture(cfg.ScreenshotCommand, logger)
	covers := screenshot.NewLocalObjectStore(cfg.DeployRoot, cfg.DeployHost)
	screenshots := screenshot.NewService(capture, covers, appRepo, logger)
	if capture == nil {
		logger.Info("screenshot capture disabled")
	}

	deployer := codegen.NewDeployer(appRepo, builder, screenshots, cfg, logger)

	// App service
	appService := service.NewAppService(appRepo, historyRepo, txManager, router, logger)

	// Create handlers
	appHandler := handler.NewAppHandler(appService, deployer, logger)
	chatHandler := handler.NewChatHandler(orchestrator, sse.DefaultConfig(), logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", appHandler.HealthCheck)

	// App routes
	mux.HandleFunc("POST /api/apps", appHandler.CreateApp)
	mux.HandleFunc("GET /api/apps", appHandler.ListApps)
	mux.HandleFunc("GET /api/apps/{id}", appHandler.GetApp)
	mux.HandleFunc("DELETE /api/apps/{id}", appHandler.DeleteApp)

	// Generation and deployment routes
	mux.HandleFunc("POST /api/apps/{id}/chat", chatHandler.Chat) // SSE streaming endpoint
	mux.HandleFunc("POST /api/apps/{id}/deploy", appHandler.Deploy)
	mux.HandleFunc("GET /api/apps/{id}/history", appHandler.History)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Routes
	var root http.Handler = mux
	root = middleware.AuthMiddleware(jwtVerifier)(root)
	root = middleware.Recovery(logger)(root)

	// CORS - must be outermost to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow long-lived SSE streams
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
