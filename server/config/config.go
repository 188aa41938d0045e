// Package config loads settings from .env, an optional YAML file and the
// environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"spotforge/server/store"
)

type Config struct {
	SpotStore       string `yaml:"spot_store"`
	DatabaseURL     string `yaml:"database_url"`
	SQLitePath      string `yaml:"sqlite_path"`
	Port            int    `yaml:"port"`
	FreqTable       string `yaml:"freq_table"`
	ValidateWorkers int    `yaml:"validate_workers"`
	AutoMigrate     bool   `yaml:"auto_migrate"`
	LogLevel        string `yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		SpotStore:       "spots.jsonl",
		Port:            8080,
		ValidateWorkers: 8,
		LogLevel:        "info",
	}
}

// Load reads .env when present, then the YAML file at path (or
// $SPOTFORGE_CONFIG when path is empty), then environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path == "" {
		path = os.Getenv("SPOTFORGE_CONFIG")
	}
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	cfg.SpotStore = getenv("SPOT_STORE", cfg.SpotStore)
	cfg.DatabaseURL = getenv("DATABASE_URL", cfg.DatabaseURL)
	cfg.SQLitePath = getenv("SQLITE_PATH", cfg.SQLitePath)
	cfg.Port = atoiDef(os.Getenv("PORT"), cfg.Port)
	cfg.FreqTable = getenv("FREQ_TABLE", cfg.FreqTable)
	cfg.ValidateWorkers = atoiDef(os.Getenv("VALIDATE_WORKERS"), cfg.ValidateWorkers)
	if v, ok := os.LookupEnv("AUTO_MIGRATE"); ok {
		cfg.AutoMigrate = asBool(v)
	}
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.ValidateWorkers <= 0 {
		errs = append(errs, fmt.Errorf("validate_workers must be positive, got %d", c.ValidateWorkers))
	}
	if _, err := zap.ParseAtomicLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if c.DatabaseURL == "" && c.SQLitePath == "" && c.SpotStore == "" {
		errs = append(errs, errors.New("no spot store configured"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

func (c Config) Addr() string { return ":" + strconv.Itoa(c.Port) }

// StoreOptions maps the config onto store.Open.
func (c Config) StoreOptions(log *zap.Logger) store.Options {
	return store.Options{
		DatabaseURL: c.DatabaseURL,
		SQLitePath:  c.SQLitePath,
		FilePath:    c.SpotStore,
		AutoMigrate: c.AutoMigrate,
		Logger:      log,
	}
}

// Backend names the store that StoreOptions selects.
func (c Config) Backend() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	}
	return "file"
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return n
}

func asBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
