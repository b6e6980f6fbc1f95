// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Database connection
	Postgres *PostgresConfig

	// Remote source
	API *APIConfig

	// Destination table accepting keyed upserts
	Table string

	// Pipeline settings
	BatchSize       int           // Records per upsert statement
	ChunkSize       int           // Rows per file-source chunk
	LoadConcurrency int           // Concurrent in-flight upsert batches
	RequestDelay    time.Duration // Sleep between API pages

	// Sampling
	SampleSize int
	SampleSeed int64

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		Table:           getEnv("PLUTO_TABLE", "properties"),
		BatchSize:       getEnvAsInt("BATCH_SIZE", 500),
		ChunkSize:       getEnvAsInt("CHUNK_SIZE", 5000),
		LoadConcurrency: getEnvAsInt("LOAD_CONCURRENCY", 1),
		RequestDelay:    time.Duration(getEnvAsInt("REQUEST_DELAY_MS", 1000)) * time.Millisecond,
		SampleSize:      getEnvAsInt("SAMPLE_SIZE", 50000),
		SampleSeed:      int64(getEnvAsInt("SAMPLE_SEED", 42)),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
	}

	pgConfig, err := LoadPostgresConfig()
	if err != nil {
		return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
	}
	cfg.Postgres = pgConfig

	cfg.API = LoadAPIConfig()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if c.API == nil {
		return errors.New("API configuration is required")
	}

	if c.Table == "" {
		return errors.New("destination table is required")
	}

	if c.BatchSize <= 0 {
		return errors.New("batch size must be positive")
	}

	if c.ChunkSize <= 0 {
		return errors.New("chunk size must be positive")
	}

	if c.LoadConcurrency <= 0 {
		return errors.New("load concurrency must be positive")
	}

	return nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
