package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory containing config files (or empty for default)
// - configFilePath: Path to .env file (or empty for default)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	// Load empty configuration
	cfg := New()

	// If configDir is empty, use the default
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".callmeout")

		if err := os.MkdirAll(configDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
	}
	cfg.configDir = configDir

	// Default database path is in the config directory
	cfg.Database.Path = filepath.Join(configDir, "callmeout.db")

	// Default log path is in the config directory
	defaultLogPath := filepath.Join(configDir, "callmeout.log")

	// Use provided config file path or default
	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// Check if ENV_FILE_PATH is set to load from a custom .env file
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		// User specified a custom env file path
		err := godotenv.Load(envFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else {
		// Try to load from config directory first
		err := godotenv.Load(configFilePath)
		if err != nil {
			// Then try current directory as fallback
			_ = godotenv.Load() // Ignore errors if file doesn't exist
		}
	}

	// Server Configuration
	cfg.Server = ServerConfig{
		SocketPath:      getEnvString("CALLMEOUT_SOCKET_PATH", "/tmp/callmeout.sock"),
		ShutdownTimeout: getEnvDuration("CALLMEOUT_SHUTDOWN_TIMEOUT", 5*time.Second),
	}

	// Inference backend configuration. CALLMEOUT_MODEL_PATH left unset
	// keeps the daemon in stub mode.
	cfg.Cactus = CactusConfig{
		ModelPath:          getEnvString("CALLMEOUT_MODEL_PATH", ""),
		ContextSize:        getEnvInt("CALLMEOUT_CONTEXT_SIZE", 4096),
		MaxTokens:          getEnvInt("CALLMEOUT_MAX_TOKENS", 256),
		Temperature:        getEnvFloat("CALLMEOUT_TEMPERATURE", 0.1),
		ResponseBufferSize: getEnvInt("CALLMEOUT_RESPONSE_BUFFER_SIZE", 8192),
		InitTimeout:        getEnvDuration("CALLMEOUT_INIT_TIMEOUT", 120*time.Second),
		RequestsPerMinute:  getEnvInt("CALLMEOUT_REQUESTS_PER_MINUTE", 0),
		BurstLimit:         getEnvInt("CALLMEOUT_BURST_LIMIT", 1),
	}

	// Database Configuration
	cfg.Database = DatabaseConfig{
		Path:            getEnvString("CALLMEOUT_DB_PATH", cfg.Database.Path),
		BusyTimeout:     getEnvInt("CALLMEOUT_DB_BUSY_TIMEOUT", 5000),
		JournalMode:     getEnvString("CALLMEOUT_DB_JOURNAL_MODE", "WAL"),
		SynchronousMode: getEnvString("CALLMEOUT_DB_SYNCHRONOUS_MODE", "NORMAL"),
		CacheSize:       getEnvInt("CALLMEOUT_DB_CACHE_SIZE", -64000), // ~64MB
		ForeignKeys:     getEnvBool("CALLMEOUT_DB_FOREIGN_KEYS", true),
		ConnMaxLife:     getEnvDuration("CALLMEOUT_DB_CONN_MAX_LIFE", 5*time.Minute),
		QueryTimeout:    getEnvDuration("CALLMEOUT_DB_QUERY_TIMEOUT", 30*time.Second),
	}

	// Logging Configuration
	cfg.Logging = LoggingConfig{
		Level:      getEnvString("CALLMEOUT_LOG_LEVEL", "info"),
		Format:     getEnvString("CALLMEOUT_LOG_FORMAT", "text"),
		Output:     getEnvString("CALLMEOUT_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("CALLMEOUT_LOG_ADD_SOURCE", true),
		TimeFormat: getEnvString("CALLMEOUT_LOG_TIME_FORMAT", time.RFC3339),
	}

	// Validate the configuration
	return cfg, cfg.Validate()
}
