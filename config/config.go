// Package config loads the postroom configuration from defaults, a YAML
// file, a .env file and POSTROOM_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no --config flag is given and the file exists.
const DefaultFile = "postroom.yaml"

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Media   MediaConfig   `yaml:"media"`
	Cache   CacheConfig   `yaml:"cache"`
	Events  EventsConfig  `yaml:"events"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
	// SessionSecret signs the session cookie. At least 32 bytes.
	SessionSecret string `yaml:"session_secret"`
	// SecureCookies marks the session cookie HTTPS only.
	SecureCookies   bool          `yaml:"secure_cookies"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig configures the Badger entity store.
type StorageConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

type MediaConfig struct {
	Dir       string `yaml:"dir"`
	MaxUpload int64  `yaml:"max_upload"`
}

// CacheConfig configures the page cache.
type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend   string        `yaml:"backend"`
	IndexTTL  time.Duration `yaml:"index_ttl"`
	MaxBytes  int64         `yaml:"max_bytes"`
	RedisAddr string        `yaml:"redis_addr"`
	// RedisPrefix namespaces keys in a shared redis.
	RedisPrefix string `yaml:"redis_prefix"`
}

// EventsConfig configures domain event publication. An empty NATSURL
// disables it.
type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with defaults suitable for local use.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Path: "data",
		},
		Media: MediaConfig{
			Dir:       "media",
			MaxUpload: 5 << 20,
		},
		Cache: CacheConfig{
			Backend:     "memory",
			IndexTTL:    20 * time.Second,
			MaxBytes:    32 << 20,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "postroom:",
		},
		Events: EventsConfig{
			SubjectPrefix: "postroom",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// DefaultFile is used if present. envFile names a dotenv file whose values
// fill variables not already set in the environment; a missing file is
// ignored.
func Load(path, envFile string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads defaults overlaid with a YAML file.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// applyEnv overrides values from POSTROOM_* variables.
func (c *Config) applyEnv() error {
	c.Server.Addr = getEnv("POSTROOM_ADDR", c.Server.Addr)
	c.Server.SessionSecret = getEnv("POSTROOM_SESSION_SECRET", c.Server.SessionSecret)
	c.Storage.Path = getEnv("POSTROOM_STORAGE_PATH", c.Storage.Path)
	c.Media.Dir = getEnv("POSTROOM_MEDIA_DIR", c.Media.Dir)
	c.Cache.Backend = getEnv("POSTROOM_CACHE_BACKEND", c.Cache.Backend)
	c.Cache.RedisAddr = getEnv("POSTROOM_REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.RedisPrefix = getEnv("POSTROOM_REDIS_PREFIX", c.Cache.RedisPrefix)
	c.Events.NATSURL = getEnv("POSTROOM_NATS_URL", c.Events.NATSURL)
	c.Events.SubjectPrefix = getEnv("POSTROOM_NATS_SUBJECT_PREFIX", c.Events.SubjectPrefix)
	c.Log.Level = getEnv("POSTROOM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("POSTROOM_LOG_FORMAT", c.Log.Format)

	var err error
	if c.Server.SecureCookies, err = getEnvBool("POSTROOM_SECURE_COOKIES", c.Server.SecureCookies); err != nil {
		return err
	}
	if c.Storage.InMemory, err = getEnvBool("POSTROOM_STORAGE_IN_MEMORY", c.Storage.InMemory); err != nil {
		return err
	}
	if c.Media.MaxUpload, err = getEnvInt64("POSTROOM_MEDIA_MAX_UPLOAD", c.Media.MaxUpload); err != nil {
		return err
	}
	if c.Cache.IndexTTL, err = getEnvDuration("POSTROOM_CACHE_INDEX_TTL", c.Cache.IndexTTL); err != nil {
		return err
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.SessionSecret != "" && len(c.Server.SessionSecret) < 32 {
		return fmt.Errorf("server.session_secret must be at least 32 bytes")
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Media.Dir == "" {
		return fmt.Errorf("media.dir is required")
	}
	if c.Media.MaxUpload <= 0 {
		return fmt.Errorf("media.max_upload must be positive")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be memory or redis, got %q", c.Cache.Backend)
	}
	if c.Cache.IndexTTL <= 0 {
		return fmt.Errorf("cache.index_ttl must be positive")
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// StoragePath is the Badger directory, empty for an in-memory store.
func (c *Config) StoragePath() string {
	if c.Storage.InMemory {
		return ""
	}
	return c.Storage.Path
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getEnvInt64(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	i, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
