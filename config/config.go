// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"engine"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	OpenAPI  OpenAPIConfig  `yaml:"openapi"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// DatabaseConfig configures the database.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "memory"
	DSN    string `yaml:"dsn"`
}

// CacheConfig configures the schema snapshot cache.
// Use "memory" for single-node or "redis" for multi-instance deployments.
type CacheConfig struct {
	Mode  string        `yaml:"mode"` // "memory" or "redis"
	TTL   time.Duration `yaml:"ttl"`
	Redis RedisConfig   `yaml:"redis,omitempty"`
}

// RedisConfig configures the Redis connection.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db"`
}

// AuthConfig configures authentication.
// Use "jwt" for token auth or "none" for development mode with headers.
type AuthConfig struct {
	Mode      string `yaml:"mode"` // "jwt" or "none"
	JWTSecret string `yaml:"jwt_secret,omitempty"`

	// AdminToken guards the operator API. Empty disables it.
	AdminToken string `yaml:"admin_token,omitempty"`
}

// EngineConfig configures schema engine behavior.
type EngineConfig struct {
	// CascadeBatchSize bounds how many records one cascade step touches.
	CascadeBatchSize int `yaml:"cascade_batch_size"`

	// RelationshipTimeout bounds native reference existence checks.
	RelationshipTimeout time.Duration `yaml:"relationship_timeout"`

	// NativeModules lists the built-in CRM entity slugs field definitions
	// may target.
	NativeModules []string `yaml:"native_modules"`

	// NativeCatalogURL points at the CRM core for native record lookups.
	// Empty keeps lookups in-process (development mode).
	NativeCatalogURL    string `yaml:"native_catalog_url,omitempty"`
	NativeCatalogAPIKey string `yaml:"native_catalog_api_key,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // Enable /metrics endpoint
	Path    string `yaml:"path"`    // Custom path (default: /metrics)
}

// OpenAPIConfig configures OpenAPI/Swagger documentation.
type OpenAPIConfig struct {
	Enabled   bool   `yaml:"enabled"`    // Enable OpenAPI endpoints
	Title     string `yaml:"title"`      // Document title (default: FieldForge API)
	ServerURL string `yaml:"server_url"` // Public base URL advertised in the document
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(&cfg)

	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
// This is useful for Docker deployments where no config file is needed.
//
// Environment variables:
//
//	FIELDFORGE_DATABASE_DSN       - Database path (default: fieldforge.db)
//	FIELDFORGE_SERVER_HOST        - Server host (default: 0.0.0.0)
//	FIELDFORGE_SERVER_PORT        - Server port (default: 8080)
//	FIELDFORGE_CACHE_MODE         - Cache mode: memory or redis (default: memory)
//	FIELDFORGE_CACHE_REDIS_ADDR   - Redis address when cache.mode is redis
//	FIELDFORGE_AUTH_MODE          - Auth mode: jwt or none (default: jwt)
//	FIELDFORGE_AUTH_JWT_SECRET    - JWT signing secret (required for jwt mode)
//	FIELDFORGE_CASCADE_BATCH_SIZE - Cascade delete batch size (default: 500)
//	FIELDFORGE_LOG_LEVEL          - Log level: debug, info, warn, error (default: info)
//	FIELDFORGE_LOG_FORMAT         - Log format: json or console (default: json)
//	FIELDFORGE_METRICS_ENABLED    - Enable /metrics endpoint (default: false)
//	FIELDFORGE_OPENAPI_ENABLED    - Enable OpenAPI/Swagger (default: false)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}
	return LoadFromEnv()
}

// applyEnvOverrides applies FIELDFORGE_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// Server configuration
	if v := os.Getenv("FIELDFORGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("FIELDFORGE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("FIELDFORGE_SERVER_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = d
		}
	}
	if v := os.Getenv("FIELDFORGE_SERVER_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = d
		}
	}

	// Database configuration
	if v := os.Getenv("FIELDFORGE_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FIELDFORGE_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}

	// Cache configuration
	if v := os.Getenv("FIELDFORGE_CACHE_MODE"); v != "" {
		cfg.Cache.Mode = v
	}
	if v := os.Getenv("FIELDFORGE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.TTL = d
		}
	}
	if v := os.Getenv("FIELDFORGE_CACHE_REDIS_ADDR"); v != "" {
		cfg.Cache.Redis.Addr = v
	}
	if v := os.Getenv("FIELDFORGE_CACHE_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}
	if v := os.Getenv("FIELDFORGE_CACHE_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Cache.Redis.DB = n
		}
	}

	// Auth configuration
	if v := os.Getenv("FIELDFORGE_AUTH_MODE"); v != "" {
		cfg.Auth.Mode = v
	}
	if v := os.Getenv("FIELDFORGE_AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FIELDFORGE_AUTH_ADMIN_TOKEN"); v != "" {
		cfg.Auth.AdminToken = v
	}

	// Engine configuration
	if v := os.Getenv("FIELDFORGE_CASCADE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Engine.CascadeBatchSize = n
		}
	}
	if v := os.Getenv("FIELDFORGE_RELATIONSHIP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Engine.RelationshipTimeout = d
		}
	}
	if v := os.Getenv("FIELDFORGE_NATIVE_MODULES"); v != "" {
		var slugs []string
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				slugs = append(slugs, s)
			}
		}
		cfg.Engine.NativeModules = slugs
	}

	// Logging configuration
	if v := os.Getenv("FIELDFORGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("FIELDFORGE_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics configuration
	if v := os.Getenv("FIELDFORGE_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("FIELDFORGE_METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}

	// OpenAPI configuration
	if v := os.Getenv("FIELDFORGE_OPENAPI_ENABLED"); v != "" {
		cfg.OpenAPI.Enabled = parseBool(v)
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60 * time.Second
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = "fieldforge.db"
	}

	if cfg.Cache.Mode == "" {
		cfg.Cache.Mode = "memory"
	}

	if cfg.Auth.Mode == "" {
		cfg.Auth.Mode = "jwt"
	}

	if cfg.Engine.CascadeBatchSize == 0 {
		cfg.Engine.CascadeBatchSize = 500
	}
	if cfg.Engine.RelationshipTimeout == 0 {
		cfg.Engine.RelationshipTimeout = 2 * time.Second
	}
	if len(cfg.Engine.NativeModules) == 0 {
		cfg.Engine.NativeModules = []string{"leads", "accounts", "contacts", "opportunities", "proposals"}
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.OpenAPI.Title == "" {
		cfg.OpenAPI.Title = "FieldForge API"
	}
}

func validate(cfg *Config) error {
	validDrivers := map[string]bool{"sqlite": true, "memory": true}
	if !validDrivers[cfg.Database.Driver] {
		return fmt.Errorf("database.driver must be 'sqlite' or 'memory', got %q", cfg.Database.Driver)
	}

	validCacheModes := map[string]bool{"memory": true, "redis": true}
	if !validCacheModes[cfg.Cache.Mode] {
		return fmt.Errorf("cache.mode must be 'memory' or 'redis', got %q", cfg.Cache.Mode)
	}
	if cfg.Cache.Mode == "redis" && cfg.Cache.Redis.Addr == "" {
		return fmt.Errorf("cache.redis.addr is required when cache.mode is 'redis'")
	}

	validAuthModes := map[string]bool{"jwt": true, "none": true}
	if !validAuthModes[cfg.Auth.Mode] {
		return fmt.Errorf("auth.mode must be 'jwt' or 'none', got %q", cfg.Auth.Mode)
	}
	if cfg.Auth.Mode == "jwt" && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.mode is 'jwt'")
	}

	if cfg.Engine.CascadeBatchSize < 1 {
		return fmt.Errorf("engine.cascade_batch_size must be positive")
	}

	return nil
}
