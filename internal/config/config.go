// Package config provides Viper-based configuration loading for the drop simulator.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Value cache backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// TablesConfig locates drop table definition files.
type TablesConfig struct {
	// Dir is the directory holding <name>.yaml, <name>.yml or <name>.json tables.
	Dir string `mapstructure:"dir"`
}

// SimulationConfig controls the random source used for trials.
type SimulationConfig struct {
	// Seed selects a reproducible PRNG when non-zero; zero uses crypto/rand.
	Seed int64 `mapstructure:"seed"`
}

// ValuesConfig controls the item value provider and its cache.
type ValuesConfig struct {
	// Enabled turns the value summaries on or off.
	Enabled bool `mapstructure:"enabled"`
	// Backend is the cache backend: "file", "memory", "sqlite" or "postgres".
	Backend string `mapstructure:"backend"`
	// Path is the cache file for the file and sqlite backends.
	Path string `mapstructure:"path"`
	// PrefetchConcurrency bounds concurrent remote fetches during a batch lookup.
	PrefetchConcurrency int `mapstructure:"prefetch_concurrency"`
}

// WikiConfig holds the remote item metadata source settings.
type WikiConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Tables     TablesConfig     `mapstructure:"tables"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Values     ValuesConfig     `mapstructure:"values"`
	Wiki       WikiConfig       `mapstructure:"wiki"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if strings.TrimSpace(c.Tables.Dir) == "" {
		errs = append(errs, "tables.dir must not be empty")
	}
	if err := validateValues(c.Values); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Values.Enabled {
		if err := validateWiki(c.Wiki); err != nil {
			errs = append(errs, err.Error())
		}
	}
	// The database section only matters when postgres backs the value cache.
	if c.Values.Enabled && c.Values.Backend == BackendPostgres {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateValues(v ValuesConfig) error {
	var errs []string
	switch v.Backend {
	case BackendFile, BackendSQLite:
		if strings.TrimSpace(v.Path) == "" {
			errs = append(errs, fmt.Sprintf("values.path must not be empty for backend %q", v.Backend))
		}
	case BackendMemory, BackendPostgres:
	default:
		errs = append(errs, fmt.Sprintf("values.backend must be one of [file, memory, sqlite, postgres], got %q", v.Backend))
	}
	if v.PrefetchConcurrency < 1 {
		errs = append(errs, fmt.Sprintf("values.prefetch_concurrency must be >= 1, got %d", v.PrefetchConcurrency))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateWiki(w WikiConfig) error {
	var errs []string
	if w.BaseURL == "" {
		errs = append(errs, "wiki.base_url must not be empty")
	}
	if w.Timeout <= 0 {
		errs = append(errs, "wiki.timeout must be positive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	validSSL := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
	if !validSSL[d.SSLMode] {
		errs = append(errs, fmt.Sprintf("database.sslmode must be one of [disable, require, verify-ca, verify-full], got %q", d.SSLMode))
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, "database.min_conns must not exceed database.max_conns")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result. An empty path skips the file and uses
// defaults plus environment overrides only.
//
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()

	// Environment variable overrides with DROPSIM_ prefix
	v.SetEnvPrefix("DROPSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("tables.dir", "drop-tables")

	v.SetDefault("simulation.seed", 0)

	v.SetDefault("values.enabled", true)
	v.SetDefault("values.backend", BackendFile)
	v.SetDefault("values.path", "item_data.json")
	v.SetDefault("values.prefetch_concurrency", 4)

	v.SetDefault("wiki.base_url", "https://oldschool.runescape.wiki/api.php")
	v.SetDefault("wiki.timeout", "5s")
	v.SetDefault("wiki.user_agent", "DropRoller/1.0")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "droproller")
	v.SetDefault("database.password", "droproller")
	v.SetDefault("database.name", "droproller")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 0)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
