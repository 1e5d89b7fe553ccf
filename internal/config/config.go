package config

import (
	"os"
	"strconv"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Engine    EngineConfig
	Worker    WorkerConfig
	Profiling ProfilingConfig
	LogLevel  string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// EngineConfig bounds what a single request may ask for
type EngineConfig struct {
	MinMaxPoints     int   // max_points below this are clamped up
	DefaultMaxPoints int   // used when a request leaves max_points at 0
	MaxWindowMinutes int64 // reconstruct windows longer than this are truncated
}

// WorkerConfig sizes the worker pool
type WorkerConfig struct {
	Count       int
	MaxInflight int64
	Buffer      int // response channel capacity per worker

	// AcquireTimeout bounds the wait for an in-flight slot; 0 waits as long
	// as the caller's context allows.
	AcquireTimeout time.Duration
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server:    *loadServerConfig(),
		Engine:    *loadEngineConfig(),
		Worker:    *loadWorkerConfig(),
		Profiling: *loadProfilingConfig(),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "INFO"),
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Port: "8080", GinMode: "release", ShutdownTimeout: 10 * time.Second},
		Engine:    EngineConfig{MinMaxPoints: 8, DefaultMaxPoints: 500, MaxWindowMinutes: 7 * 24 * 60},
		Worker:    WorkerConfig{Count: 4, MaxInflight: 64, Buffer: 16, AcquireTimeout: 2 * time.Second},
		Profiling: ProfilingConfig{Port: "6060", Enabled: false},
		LogLevel:  "INFO",
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadEngineConfig() *EngineConfig {
	return &EngineConfig{
		MinMaxPoints:     getEnvIntOrDefault("MIN_MAX_POINTS", 8),
		DefaultMaxPoints: getEnvIntOrDefault("DEFAULT_MAX_POINTS", 500),
		MaxWindowMinutes: int64(getEnvIntOrDefault("MAX_WINDOW_MINUTES", 7*24*60)),
	}
}

func loadWorkerConfig() *WorkerConfig {
	return &WorkerConfig{
		Count:          getEnvIntOrDefault("WORKER_COUNT", 4),
		MaxInflight:    int64(getEnvIntOrDefault("MAX_INFLIGHT", 64)),
		Buffer:         getEnvIntOrDefault("WORKER_BUFFER", 16),
		AcquireTimeout: getEnvDurationOrDefault("ACQUIRE_TIMEOUT", 2*time.Second),
	}
}

func loadProfilingConfig() *ProfilingConfig {
	return &ProfilingConfig{
		Port:    getEnvOrDefault("PPROF_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
	}
}

func validateConfig(config *Config) error {
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if config.Engine.MinMaxPoints < 3 {
		return errors.ConfigInvalid("MIN_MAX_POINTS must be at least 3")
	}
	if config.Engine.DefaultMaxPoints < config.Engine.MinMaxPoints {
		return errors.ConfigInvalid("DEFAULT_MAX_POINTS must not be below MIN_MAX_POINTS")
	}
	if config.Engine.MaxWindowMinutes <= 0 {
		return errors.ConfigInvalid("MAX_WINDOW_MINUTES must be positive")
	}
	if config.Worker.Count <= 0 {
		return errors.ConfigInvalid("WORKER_COUNT must be positive")
	}
	if config.Worker.MaxInflight <= 0 {
		return errors.ConfigInvalid("MAX_INFLIGHT must be positive")
	}
	if config.Worker.Buffer < 0 {
		return errors.ConfigInvalid("WORKER_BUFFER must not be negative")
	}
	if config.Worker.AcquireTimeout < 0 {
		return errors.ConfigInvalid("ACQUIRE_TIMEOUT must not be negative")
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
