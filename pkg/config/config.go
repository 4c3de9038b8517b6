package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all pipeline configuration
type Config struct {
	// Server configuration (agent health/metrics/stats HTTP surface)
	Server ServerConfig `yaml:"server"`

	// Database configuration (Postgres ingestion backend)
	Database DatabaseConfig `yaml:"database"`

	// Redis configuration (session store, pub/sub notifier)
	Redis RedisConfig `yaml:"redis"`

	// Pipeline configuration (queue, delivery, session)
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Observability configuration
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds Postgres connection configuration
type DatabaseConfig struct {
	URL         string        `yaml:"url"`
	ReplicaURLs []string      `yaml:"replica_urls"`
	MaxConns    int           `yaml:"max_conns"`
	MinConns    int           `yaml:"min_conns"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxLifetime time.Duration `yaml:"max_lifetime"`
	MaxIdleTime time.Duration `yaml:"max_idle_time"`
}

// RedisConfig holds Redis connection configuration. Redis is optional: with
// an empty URL the pipeline falls back to in-memory session storage and the
// Postgres LISTEN/NOTIFY change feed.
type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

// PipelineConfig holds batching, delivery, and session settings
type PipelineConfig struct {
	// MaxQueueSize triggers an immediate flush when the buffer reaches it
	MaxQueueSize int `yaml:"max_queue_size"`
	// FlushInterval is the timer-driven flush delay
	FlushInterval time.Duration `yaml:"flush_interval"`
	// BackupPath is the SQLite file mirroring the unsent buffer
	BackupPath string `yaml:"backup_path"`
	// BackupLimit bounds backup records; oldest are dropped first
	BackupLimit int `yaml:"backup_limit"`
	// SessionTTL is the sliding session expiry window
	SessionTTL time.Duration `yaml:"session_ttl"`
	// DeliveryTimeout bounds each delivery tier attempt
	DeliveryTimeout time.Duration `yaml:"delivery_timeout"`
	// StatsCacheSize bounds the aggregate LRU cache
	StatsCacheSize int `yaml:"stats_cache_size"`
	// RollupSchedule is the cron expression for daily stats rollups
	RollupSchedule string `yaml:"rollup_schedule"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigFile loads configuration from a YAML file, with environment
// variables applied on top of the file's values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns:    10,
			MinConns:    2,
			Timeout:     5 * time.Second,
			MaxLifetime: 30 * time.Minute,
			MaxIdleTime: 5 * time.Minute,
		},
		Pipeline: PipelineConfig{
			MaxQueueSize:    10,
			FlushInterval:   10 * time.Second,
			BackupPath:      "pulse-backup.db",
			BackupLimit:     50,
			SessionTTL:      30 * time.Minute,
			DeliveryTimeout: 10 * time.Second,
			StatsCacheSize:  256,
			RollupSchedule:  "5 0 * * *",
		},
		Observability: ObservabilityConfig{
			LogLevel:       "info",
			MetricsEnabled: true,
		},
	}
}

func (c *Config) applyEnv() {
	// Server
	c.Server.Host = getEnv("PULSE_HOST", c.Server.Host)
	c.Server.Port = getEnv("PULSE_PORT", c.Server.Port)
	c.Server.ReadTimeout = getEnvDuration("PULSE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("PULSE_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("PULSE_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("PULSE_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	// Database
	c.Database.URL = getEnv("PULSE_DATABASE_URL", c.Database.URL)
	if replicas := getEnv("PULSE_DATABASE_REPLICA_URLS", ""); replicas != "" {
		c.Database.ReplicaURLs = nil
		for _, url := range strings.Split(replicas, ",") {
			if url = strings.TrimSpace(url); url != "" {
				c.Database.ReplicaURLs = append(c.Database.ReplicaURLs, url)
			}
		}
	}
	c.Database.MaxConns = getEnvInt("PULSE_DATABASE_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvInt("PULSE_DATABASE_MIN_CONNS", c.Database.MinConns)
	c.Database.Timeout = getEnvDuration("PULSE_DATABASE_TIMEOUT", c.Database.Timeout)

	// Redis
	c.Redis.URL = getEnv("PULSE_REDIS_URL", c.Redis.URL)
	c.Redis.Password = getEnv("PULSE_REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("PULSE_REDIS_DB", c.Redis.DB)
	c.Redis.PoolSize = getEnvInt("PULSE_REDIS_POOL_SIZE", c.Redis.PoolSize)

	// Pipeline
	c.Pipeline.MaxQueueSize = getEnvInt("PULSE_MAX_QUEUE_SIZE", c.Pipeline.MaxQueueSize)
	c.Pipeline.FlushInterval = getEnvDuration("PULSE_FLUSH_INTERVAL", c.Pipeline.FlushInterval)
	c.Pipeline.BackupPath = getEnv("PULSE_BACKUP_PATH", c.Pipeline.BackupPath)
	c.Pipeline.BackupLimit = getEnvInt("PULSE_BACKUP_LIMIT", c.Pipeline.BackupLimit)
	c.Pipeline.SessionTTL = getEnvDuration("PULSE_SESSION_TTL", c.Pipeline.SessionTTL)
	c.Pipeline.DeliveryTimeout = getEnvDuration("PULSE_DELIVERY_TIMEOUT", c.Pipeline.DeliveryTimeout)
	c.Pipeline.StatsCacheSize = getEnvInt("PULSE_STATS_CACHE_SIZE", c.Pipeline.StatsCacheSize)
	c.Pipeline.RollupSchedule = getEnv("PULSE_ROLLUP_SCHEDULE", c.Pipeline.RollupSchedule)

	// Observability
	c.Observability.LogLevel = getEnv("PULSE_LOG_LEVEL", c.Observability.LogLevel)
	c.Observability.MetricsEnabled = getEnvBool("PULSE_METRICS_ENABLED", c.Observability.MetricsEnabled)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database URL is required")
	}
	if c.Pipeline.MaxQueueSize <= 0 {
		return fmt.Errorf("max queue size must be positive")
	}
	if c.Pipeline.FlushInterval <= 0 {
		return fmt.Errorf("flush interval must be positive")
	}
	if c.Pipeline.BackupLimit < c.Pipeline.MaxQueueSize {
		return fmt.Errorf("backup limit must be at least the max queue size")
	}
	if c.Pipeline.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Pipeline.DeliveryTimeout <= 0 {
		return fmt.Errorf("delivery timeout must be positive")
	}
	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
