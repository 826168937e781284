package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvString(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		expected     string
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: "default",
			expected:     "default",
		},
		{
			name:         "env set, return env value",
			envValue:     "custom",
			defaultValue: "default",
			expected:     "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_STRING_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvString(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: 100,
			expected:     100,
		},
		{
			name:         "env set to valid int, return env value",
			envValue:     "256",
			defaultValue: 100,
			expected:     256,
		},
		{
			name:         "env set to invalid value, return default",
			envValue:     "not-a-number",
			defaultValue: 100,
			expected:     100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_INT_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvInt(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue float64
		expected     float64
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: 0.2,
			expected:     0.2,
		},
		{
			name:         "env set to 0.1, return 0.1",
			envValue:     "0.1",
			defaultValue: 0.2,
			expected:     0.1,
		},
		{
			name:         "env set to invalid value, return default",
			envValue:     "invalid",
			defaultValue: 0.2,
			expected:     0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_FLOAT_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvFloat(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	key := "TEST_DURATION_VALUE"

	os.Unsetenv(key)
	assert.Equal(t, 5*time.Second, getEnvDuration(key, 5*time.Second))

	os.Setenv(key, "30s")
	defer os.Unsetenv(key)
	assert.Equal(t, 30*time.Second, getEnvDuration(key, 5*time.Second))

	os.Setenv(key, "garbage")
	assert.Equal(t, 5*time.Second, getEnvDuration(key, 5*time.Second))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLogLevel("debug"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("INFO"))
	assert.Equal(t, slog.LevelWarn, ParseLogLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLogLevel("error"))
	assert.Equal(t, slog.Level(9999), ParseLogLevel("none"))
	assert.Equal(t, slog.LevelInfo, ParseLogLevel("unknown"))
}

func validTestConfig(t *testing.T) *Config {
	t.Helper()

	cfg := New()
	cfg.Server = ServerConfig{
		SocketPath:      "/tmp/callmeout-test.sock",
		ShutdownTimeout: 5 * time.Second,
	}
	cfg.Cactus = CactusConfig{
		MaxTokens:          256,
		Temperature:        0.1,
		ResponseBufferSize: 8192,
	}
	cfg.Database = DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "callmeout.db"),
		JournalMode:  "WAL",
		BusyTimeout:  5000,
		ConnMaxLife:  5 * time.Minute,
		QueryTimeout: 30 * time.Second,
	}
	cfg.Logging = LoggingConfig{
		Level:  "info",
		Format: "text",
		Output: "stderr",
	}
	return cfg
}

func TestValidate(t *testing.T) {
	t.Run("valid config passes", func(t *testing.T) {
		cfg := validTestConfig(t)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty socket path fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Server.SocketPath = ""
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "socket path")
	})

	t.Run("zero max tokens fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Cactus.MaxTokens = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("missing model file fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Cactus.ModelPath = filepath.Join(t.TempDir(), "no-such-model.gguf")
		assert.Error(t, cfg.Validate())
	})

	t.Run("existing model file passes", func(t *testing.T) {
		cfg := validTestConfig(t)
		modelPath := filepath.Join(t.TempDir(), "model.gguf")
		require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0644))
		cfg.Cactus.ModelPath = modelPath
		assert.NoError(t, cfg.Validate())
	})

	t.Run("empty database path fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Database.Path = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid log level fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Logging.Level = "loud"
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid log format fails", func(t *testing.T) {
		cfg := validTestConfig(t)
		cfg.Logging.Format = "xml"
		assert.Error(t, cfg.Validate())
	})
}

func TestStubMode(t *testing.T) {
	cfg := validTestConfig(t)
	assert.True(t, cfg.StubMode())

	modelPath := filepath.Join(t.TempDir(), "model.gguf")
	require.NoError(t, os.WriteFile(modelPath, []byte("weights"), 0644))
	cfg.Cactus.ModelPath = modelPath
	assert.False(t, cfg.StubMode())
}

func TestLoadFromEnvDefaults(t *testing.T) {
	configDir := t.TempDir()

	os.Unsetenv("CALLMEOUT_MODEL_PATH")
	os.Unsetenv("CALLMEOUT_SOCKET_PATH")

	cfg, err := LoadFromEnv(configDir, filepath.Join(configDir, ".env"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/callmeout.sock", cfg.Server.SocketPath)
	assert.Equal(t, filepath.Join(configDir, "callmeout.db"), cfg.Database.Path)
	assert.Equal(t, 256, cfg.Cactus.MaxTokens)
	assert.Equal(t, 0.1, cfg.Cactus.Temperature)
	assert.Equal(t, 8192, cfg.Cactus.ResponseBufferSize)
	assert.True(t, cfg.StubMode())
}

func TestLoadFromEnvOverrides(t *testing.T) {
	configDir := t.TempDir()

	os.Setenv("CALLMEOUT_SOCKET_PATH", "/tmp/callmeout-override.sock")
	os.Setenv("CALLMEOUT_MAX_TOKENS", "512")
	os.Setenv("CALLMEOUT_LOG_LEVEL", "debug")
	defer func() {
		os.Unsetenv("CALLMEOUT_SOCKET_PATH")
		os.Unsetenv("CALLMEOUT_MAX_TOKENS")
		os.Unsetenv("CALLMEOUT_LOG_LEVEL")
	}()

	cfg, err := LoadFromEnv(configDir, filepath.Join(configDir, ".env"))
	require.NoError(t, err)

	assert.Equal(t, "/tmp/callmeout-override.sock", cfg.Server.SocketPath)
	assert.Equal(t, 512, cfg.Cactus.MaxTokens)
	assert.Equal(t, "debug", cfg.Logging.Level)
}
