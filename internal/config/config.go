package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Valid store backends.
const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
	StoreBackendRedis    = "redis"
	StoreBackendS3       = "s3"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Store        StoreConfig        `yaml:"store"`
	Generator    GeneratorConfig    `yaml:"generator"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Events       EventsConfig       `yaml:"events"`
	Logging      LoggingConfig      `yaml:"logging"`
	App          AppConfig          `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects and configures the job blob store backend
type StoreConfig struct {
	Backend  string         `yaml:"backend"`
	Key      string         `yaml:"key"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`
}

// SQLiteConfig holds the SQLite store configuration
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// S3Config holds S3-compatible object store configuration
type S3Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// GeneratorConfig holds the remote generation endpoint configuration
type GeneratorConfig struct {
	EndpointURL string        `yaml:"endpoint_url"`
	Timeout     time.Duration `yaml:"timeout"`
	RecipeCount int           `yaml:"recipe_count"`
}

// OrchestratorConfig holds the job orchestrator tuning knobs
type OrchestratorConfig struct {
	StaleAfter    time.Duration `yaml:"stale_after"`
	CompletedCap  int           `yaml:"completed_cap"`
	MigrationKeep int           `yaml:"migration_keep"`
	BlobSizeCap   int           `yaml:"blob_size_cap"`
	Pacing        PacingConfig  `yaml:"pacing"`
}

// PacingConfig holds the cosmetic stage delays
type PacingConfig struct {
	Thinking     time.Duration `yaml:"thinking"`
	Searching    time.Duration `yaml:"searching"`
	SourcesFound time.Duration `yaml:"sources_found"`
	Calculating  time.Duration `yaml:"calculating"`
}

// EventsConfig holds the optional RabbitMQ event publisher configuration
type EventsConfig struct {
	Enabled    bool                   `yaml:"enabled"`
	Host       string                 `yaml:"host"`
	Port       int                    `yaml:"port"`
	User       string                 `yaml:"user"`
	Password   string                 `yaml:"password"`
	VHost      string                 `yaml:"vhost"`
	Exchange   string                 `yaml:"exchange"`
	Connection EventsConnectionConfig `yaml:"connection"`
}

// EventsConnectionConfig holds RabbitMQ connection settings
type EventsConnectionConfig struct {
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryInterval time.Duration `yaml:"retry_interval"`
	Heartbeat     time.Duration `yaml:"heartbeat"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level        string `yaml:"level"`
	Format       string `yaml:"format"`
	Output       string `yaml:"output"`
	EnableCaller bool   `yaml:"enable_caller"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Generator.EndpointURL == "" {
		return fmt.Errorf("generator endpoint_url is required")
	}

	if c.Store.Key == "" {
		return fmt.Errorf("store key is required")
	}

	switch c.Store.Backend {
	case StoreBackendSQLite:
		if c.Store.SQLite.Path == "" {
			return fmt.Errorf("sqlite store path is required")
		}
	case StoreBackendPostgres:
		if c.Store.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if c.Store.Postgres.Port < MinPort || c.Store.Postgres.Port > MaxPort {
			return fmt.Errorf("invalid postgres port: %d (must be between %d and %d)", c.Store.Postgres.Port, MinPort, MaxPort)
		}
		if c.Store.Postgres.Database == "" {
			return fmt.Errorf("postgres database name is required")
		}
	case StoreBackendRedis:
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("redis addr is required")
		}
	case StoreBackendS3:
		if c.Store.S3.Endpoint == "" {
			return fmt.Errorf("s3 endpoint is required")
		}
		if c.Store.S3.Bucket == "" {
			return fmt.Errorf("s3 bucket is required")
		}
	default:
		return fmt.Errorf("unknown store backend: %q", c.Store.Backend)
	}

	if c.Events.Enabled {
		if c.Events.Host == "" {
			return fmt.Errorf("events host is required when events are enabled")
		}
		if c.Events.Port < MinPort || c.Events.Port > MaxPort {
			return fmt.Errorf("invalid events port: %d (must be between %d and %d)", c.Events.Port, MinPort, MaxPort)
		}
		if c.Events.Exchange == "" {
			return fmt.Errorf("events exchange is required when events are enabled")
		}
	}

	return nil
}
