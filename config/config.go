// Package config loads deployment configuration from YAML with environment
// variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the top-level deployment configuration.
type Config struct {
	// Backend selects the checkpoint store: memory, sqlite, mysql or
	// redis.
	Backend string `yaml:"backend"`

	SQLite SQLiteConfig `yaml:"sqlite"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`

	// PolicyLevel is the router's policy tier for step budgets.
	PolicyLevel int `yaml:"policy_level"`

	// CacheSize bounds how many compiled graphs stay resident.
	CacheSize int `yaml:"cache_size"`

	// MaxSteps bounds the engine's steps per invocation.
	MaxSteps int `yaml:"max_steps"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type MySQLConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// Default returns the configuration used when no file is present: in-memory
// checkpoints, moderate cache, conservative policy level.
func Default() Config {
	return Config{
		Backend:     "memory",
		SQLite:      SQLiteConfig{Path: "stateflow.db"},
		Redis:       RedisConfig{Addr: "localhost:6379"},
		PolicyLevel: 0,
		CacheSize:   64,
		MaxSteps:    100,
	}
}

// Load reads YAML from path, layers environment overrides on top and
// validates the result. A missing file is not an error; defaults plus
// environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to env overrides
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides fields from STATEFLOW_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("STATEFLOW_BACKEND"); v != "" {
		cfg.Backend = v
	}
	if v := os.Getenv("STATEFLOW_SQLITE_PATH"); v != "" {
		cfg.SQLite.Path = v
	}
	if v := os.Getenv("STATEFLOW_MYSQL_DSN"); v != "" {
		cfg.MySQL.DSN = v
	}
	if v := os.Getenv("STATEFLOW_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("STATEFLOW_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v, ok := envInt("STATEFLOW_REDIS_DB"); ok {
		cfg.Redis.DB = v
	}
	if v, ok := envInt("STATEFLOW_POLICY_LEVEL"); ok {
		cfg.PolicyLevel = v
	}
	if v, ok := envInt("STATEFLOW_CACHE_SIZE"); ok {
		cfg.CacheSize = v
	}
	if v, ok := envInt("STATEFLOW_MAX_STEPS"); ok {
		cfg.MaxSteps = v
	}
}

func envInt(name string) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks the configuration for internal consistency.
func (c Config) Validate() error {
	switch c.Backend {
	case "memory":
	case "sqlite":
		if c.SQLite.Path == "" {
			return fmt.Errorf("config: sqlite backend requires a path")
		}
	case "mysql":
		if c.MySQL.DSN == "" {
			return fmt.Errorf("config: mysql backend requires a dsn")
		}
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("config: redis backend requires an addr")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("config: cache_size must be positive, got %d", c.CacheSize)
	}
	if c.MaxSteps <= 0 {
		return fmt.Errorf("config: max_steps must be positive, got %d", c.MaxSteps)
	}
	if c.PolicyLevel < 0 {
		return fmt.Errorf("config: policy_level cannot be negative, got %d", c.PolicyLevel)
	}
	return nil
}
