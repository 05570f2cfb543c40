// Package config loads fluxi settings from ~/.fluxi/config.yaml and the
// FLUXI_* environment, and owns the process-wide logger.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/rshade/fluxi/internal/engine/cache"
)

// SchemaVersion is the config file version written by this build.
const SchemaVersion = "1.0.0"

// supportedSchema is the range of config file versions this build reads.
const supportedSchema = "^1"

// Cache backends.
const (
	BackendMemory    = "memory"
	BackendFile      = "file"
	BackendRistretto = "ristretto"
	BackendRedis     = "redis"
	BackendNone      = "none"
)

const (
	defaultRistrettoMaxCost = 64 << 20
	defaultRedisAddr        = "localhost:6379"
	configFileName          = "config.yaml"
	configDirPerm           = 0o700
)

// ErrUnsupportedVersion is returned when the config file's version falls
// outside the supported range.
var ErrUnsupportedVersion = errors.New("unsupported config version")

// ErrInvalidConfig is returned when a setting fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete fluxi configuration.
type Config struct {
	Version string        `yaml:"version"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
	Data    DataConfig    `yaml:"data"`

	// path is the file the config was loaded from, empty for defaults.
	path string
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	// Backend is one of memory, file, ristretto, redis or none.
	Backend string `yaml:"backend"`
	// TTL is the default entry lifetime: milliseconds or a duration string.
	TTL             string      `yaml:"ttl"`
	Dir             string      `yaml:"dir"`
	Prefix          string      `yaml:"prefix"`
	MaxCost         int64       `yaml:"max_cost"`
	Singleflight    bool        `yaml:"singleflight"`
	GenerationGuard bool        `yaml:"generation_guard"`
	Redis           RedisConfig `yaml:"redis"`
}

// RedisConfig holds the redis backend connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig controls log verbosity and the optional log file.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DataConfig locates the ledger file.
type DataConfig struct {
	File string `yaml:"file"`
}

// New returns the default configuration rooted at the config directory.
// Directory lookups that fail leave the path fields empty; callers then fall
// back to their own defaults.
func New() *Config {
	cfg := &Config{
		Version: SchemaVersion,
		Cache: CacheConfig{
			Backend: BackendFile,
			TTL:     cache.FormatDuration(cache.DefaultTTL),
			Prefix:  cache.DefaultPrefix,
			MaxCost: defaultRistrettoMaxCost,
			Redis:   RedisConfig{Addr: defaultRedisAddr},
		},
		Logging: LoggingConfig{Level: "info"},
	}

	if dir, err := GetConfigDir(); err == nil {
		cfg.Cache.Dir = filepath.Join(dir, "cache")
		cfg.Data.File = filepath.Join(dir, "ledger.json")
	}
	return cfg
}

// Load reads path over the defaults and applies environment overrides.
// An empty path means <config dir>/config.yaml; a missing default file is
// not an error, a missing explicit file is.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		dir, err := GetConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, configFileName)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		cfg.path = path
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err = checkVersion(cfg.Version); err != nil {
		return nil, err
	}
	if err = cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// checkVersion accepts an empty version as the current schema.
func checkVersion(version string) error {
	if version == "" {
		return nil
	}
	v, err := semver.NewVersion(version)
	if err != nil {
		return fmt.Errorf("%w: %q is not a semantic version", ErrUnsupportedVersion, version)
	}
	constraint, err := semver.NewConstraint(supportedSchema)
	if err != nil {
		return fmt.Errorf("parsing version constraint: %w", err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("%w: %s (supported %s)", ErrUnsupportedVersion, version, supportedSchema)
	}
	return nil
}

// applyEnv overrides file settings with FLUXI_* environment variables.
func (c *Config) applyEnv() error {
	if v := os.Getenv("FLUXI_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("FLUXI_CACHE_TTL"); v != "" {
		c.Cache.TTL = v
	}
	if v := os.Getenv("FLUXI_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("FLUXI_CACHE_PREFIX"); v != "" {
		c.Cache.Prefix = v
	}
	if v := os.Getenv("FLUXI_CACHE_SINGLEFLIGHT"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: FLUXI_CACHE_SINGLEFLIGHT=%q", ErrInvalidConfig, v)
		}
		c.Cache.Singleflight = b
	}
	if v := os.Getenv("FLUXI_REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}
	if v := os.Getenv("FLUXI_REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := os.Getenv("FLUXI_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FLUXI_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if v := os.Getenv("FLUXI_DATA_FILE"); v != "" {
		c.Data.File = v
	}
	return nil
}

// Validate checks the settings that cannot be fixed by a default.
func (c *Config) Validate() error {
	backends := []string{BackendMemory, BackendFile, BackendRistretto, BackendRedis, BackendNone}
	if !slices.Contains(backends, c.Cache.Backend) {
		return fmt.Errorf("%w: cache backend %q (want one of %s)",
			ErrInvalidConfig, c.Cache.Backend, strings.Join(backends, ", "))
	}
	if _, err := c.CacheTTL(); err != nil {
		return fmt.Errorf("%w: cache ttl: %w", ErrInvalidConfig, err)
	}
	if c.Cache.Prefix == "" {
		return fmt.Errorf("%w: cache prefix must not be empty", ErrInvalidConfig)
	}
	if c.Cache.Backend == BackendRistretto && c.Cache.MaxCost <= 0 {
		return fmt.Errorf("%w: cache max_cost must be positive", ErrInvalidConfig)
	}
	if c.Cache.Backend == BackendRedis && c.Cache.Redis.Addr == "" {
		return fmt.Errorf("%w: redis addr is required", ErrInvalidConfig)
	}
	return nil
}

// CacheTTL returns the parsed default TTL. An empty setting means the cache default.
func (c *Config) CacheTTL() (time.Duration, error) {
	if strings.TrimSpace(c.Cache.TTL) == "" {
		return cache.DefaultTTL, nil
	}
	return cache.ParseTTL(c.Cache.TTL)
}

// Path returns the file the config was loaded from, or "" for defaults.
func (c *Config) Path() string {
	return c.path
}

// Save writes the config as YAML to path, creating its directory.
func (c *Config) Save(path string) error {
	if c.Version == "" {
		c.Version = SchemaVersion
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err = os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err = os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config file %s: %w", path, err)
	}
	c.path = path
	return nil
}
