package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"cropadvisor/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Model     ModelConfig     `validate:"required"`
	Engine    EngineConfig    `validate:"required"`
	Server    ServerConfig    `validate:"required"`
	Database  DatabaseConfig
	Profiling ProfilingConfig
}

// ModelConfig locates the offline-trained model artifacts
type ModelConfig struct {
	Dir string `validate:"required"`
}

// EngineConfig holds recommendation engine tuning knobs
type EngineConfig struct {
	DosageWorkers      int     `validate:"gte=1,lte=16"`
	PlotWorkers        int     `validate:"gte=1"`
	FallbackCrop       string  `validate:"required"`
	FallbackConfidence float64 `validate:"gte=0,lte=1"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string        `validate:"required"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

// DatabaseConfig points at the farm-management database. Optional: only the
// plot batch commands need it.
type DatabaseConfig struct {
	URL     string
	MaxOpen int `validate:"gte=0"`
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Model:     *loadModelConfig(),
		Engine:    *loadEngineConfig(),
		Server:    *loadServerConfig(),
		Database:  *loadDatabaseConfig(),
		Profiling: *loadProfilingConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadModelConfig() *ModelConfig {
	return &ModelConfig{
		Dir: getEnvOrDefault("MODEL_DIR", "./models"),
	}
}

func loadEngineConfig() *EngineConfig {
	return &EngineConfig{
		DosageWorkers:      getEnvIntOrDefault("DOSAGE_WORKERS", 4),
		PlotWorkers:        getEnvIntOrDefault("PLOT_WORKERS", 8),
		FallbackCrop:       getEnvOrDefault("FALLBACK_CROP", "maize"),
		FallbackConfidence: getEnvFloatOrDefault("FALLBACK_CONFIDENCE", 0.1),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:           getEnvOrDefault("PORT", "8080"),
		RequestTimeout: getEnvDurationOrDefault("REQUEST_TIMEOUT", 10*time.Second),
	}
}

func loadDatabaseConfig() *DatabaseConfig {
	return &DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		MaxOpen: getEnvIntOrDefault("DB_MAX_OPEN", 4),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if err := validator.New().Struct(config); err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
