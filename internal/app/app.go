// Package app provides the application initialization and lifecycle management
package app

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/callmeout/callmeout/internal/analyze"
	"github.com/callmeout/callmeout/internal/audit"
	"github.com/callmeout/callmeout/internal/cactus"
	"github.com/callmeout/callmeout/internal/config"
	"github.com/callmeout/callmeout/internal/database"
	"github.com/callmeout/callmeout/internal/llm"
	"github.com/callmeout/callmeout/internal/loggy"
	"github.com/callmeout/callmeout/internal/server"
)

// App represents the application instance with its dependencies
type App struct {
	Config   *config.Config
	Audit    *audit.Service
	Analyzer *analyze.Analyzer // nil when running in stub mode
	Server   *server.Server

	llmClient *llm.Client
}

// New initializes a new application instance with all its dependencies
func New() (*App, error) {
	// Initialize configuration
	cfg, err := initConfig()
	if err != nil {
		return nil, err
	}

	// Initialize logger
	if err := initLogger(cfg); err != nil {
		return nil, err
	}

	// Log initialization information
	loggy.Info("Application initializing",
		"version", os.Getenv("VERSION"),
		"log_level", cfg.Logging.Level,
	)

	// Initialize database
	if err := database.InitDB(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Apply any pending schema migrations
	if err := database.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get database connection
	db, err := database.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Initialize all services
	app, err := initServices(cfg, db)
	if err != nil {
		return nil, err
	}

	loggy.Info("Application initialized successfully")
	return app, nil
}

// initConfig loads and sets up the application configuration
func initConfig() (*config.Config, error) {
	cfg, err := config.LoadFromEnv("", "")
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Set the global configuration
	config.Set(cfg)
	return cfg, nil
}

// initLogger initializes the logging system
func initLogger(cfg *config.Config) error {
	err := loggy.Init(loggy.Config{
		Level:      config.ParseLogLevel(cfg.Logging.Level),
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

// initServices initializes all application services
func initServices(cfg *config.Config, db *sql.DB) (*App, error) {
	logger := loggy.GetGlobalLogger()

	auditService := audit.NewService(db, cfg.Database.QueryTimeout, logger)

	// Initialize the inference backend. A missing or failing model is not
	// fatal, the daemon falls back to stub responses.
	llmClient, analyzer := initBackend(cfg, logger)

	srv := server.New(cfg, analyzer, auditService, logger)

	return &App{
		Config:    cfg,
		Audit:     auditService,
		Analyzer:  analyzer,
		Server:    srv,
		llmClient: llmClient,
	}, nil
}

// initBackend loads the model and builds the analysis pipeline. Both return
// values are nil when the daemon should run in stub mode.
func initBackend(cfg *config.Config, logger *loggy.Logger) (*llm.Client, *analyze.Analyzer) {
	if cfg.StubMode() {
		loggy.Info("No model path configured, running in stub mode")
		return nil, nil
	}

	backend, err := llm.LoadBackend(func() (llm.Backend, error) {
		model, err := cactus.Init(cfg.Cactus.ModelPath)
		if err != nil {
			return nil, err
		}
		return model, nil
	}, cfg.Cactus.InitTimeout)
	if err != nil {
		loggy.Warn("Failed to load model, falling back to stub mode",
			"model_path", cfg.Cactus.ModelPath,
			"error", err,
		)
		return nil, nil
	}

	loggy.Info("Model loaded", "model_path", cfg.Cactus.ModelPath)

	client := llm.NewClient(backend, cfg.Cactus, logger)
	return client, analyze.New(client, logger)
}

// Shutdown gracefully shuts down the application
func (app *App) Shutdown() error {
	loggy.Info("Shutting down application")

	if app.llmClient != nil {
		app.llmClient.Close()
	}

	// Close database connection
	if err := database.CloseDB(); err != nil {
		loggy.Error("Error closing database connection", "error", err)
	}

	return nil
}

// FromContext retrieves the App instance from the CLI context
func FromContext(c *cli.Context) (*App, error) {
	if c.App.Metadata == nil {
		return nil, fmt.Errorf("app metadata not found in context")
	}

	app, ok := c.App.Metadata["app"].(*App)
	if !ok {
		return nil, fmt.Errorf("app instance not found in context")
	}

	return app, nil
}
