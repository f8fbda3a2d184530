package config

import (
	"os"
	"strconv"
	"time"

	"statflow/adapters/ingest"
	"statflow/adapters/profile"
	"statflow/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig `validate:"required"`
	Server   ServerConfig   `validate:"required"`
	Ingest   ingest.Config
	Profile  profile.Config
	Ops      OpsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string `validate:"required"`
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string `validate:"required"`
	GinMode         string
	ShutdownTimeout time.Duration
}

// OpsConfig holds the operational endpoint settings (health, pprof)
type OpsConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server:   loadServerConfig(),
		Ingest:   loadIngestConfig(),
		Profile:  loadProfileConfig(),
		Ops:      loadOpsConfig(),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:     os.Getenv("DATABASE_URL"),
		SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "debug"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadIngestConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	cfg.ChunkSize = getEnvIntOrDefault("INGEST_CHUNK_SIZE", cfg.ChunkSize)
	cfg.MaxRows = getEnvIntOrDefault("INGEST_MAX_ROWS", cfg.MaxRows)
	cfg.MaxCSVBytes = int64(getEnvIntOrDefault("INGEST_MAX_CSV_BYTES", int(cfg.MaxCSVBytes)))
	cfg.MaxSpreadsheetBytes = int64(getEnvIntOrDefault("INGEST_MAX_XLSX_BYTES", int(cfg.MaxSpreadsheetBytes)))
	cfg.MemoryHighWater = uint64(getEnvIntOrDefault("INGEST_MEMORY_HIGH_WATER", int(cfg.MemoryHighWater)))
	return cfg
}

func loadProfileConfig() profile.Config {
	cfg := profile.DefaultConfig()
	cfg.NumericThreshold = getEnvFloatOrDefault("PROFILE_NUMERIC_THRESHOLD", cfg.NumericThreshold)
	cfg.CategoricalMaxCard = getEnvIntOrDefault("PROFILE_CATEGORICAL_MAX_CARDINALITY", cfg.CategoricalMaxCard)
	cfg.TopN = getEnvIntOrDefault("PROFILE_TOP_N", cfg.TopN)
	cfg.IQRFactor = getEnvFloatOrDefault("PROFILE_IQR_FACTOR", cfg.IQRFactor)
	return cfg
}

func loadOpsConfig() OpsConfig {
	return OpsConfig{
		Port:    getEnvOrDefault("OPS_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("OPS_ENABLED", true),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	if config.Ingest.ChunkSize <= 0 {
		return errors.ConfigInvalid("ingest chunk size must be positive")
	}
	if config.Ingest.MaxRows < config.Ingest.ChunkSize {
		return errors.ConfigInvalid("ingest max rows must be at least one chunk")
	}
	if config.Profile.NumericThreshold <= 0 || config.Profile.NumericThreshold > 1 {
		return errors.ConfigInvalid("numeric threshold must be in (0, 1]")
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
