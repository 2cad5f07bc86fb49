// Package config loads server configuration from an optional YAML file and
// CONTENTMETRICS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CONTENTMETRICS"

// Config is the server configuration.
type Config struct {
	ListenAddr string `mapstructure:"listen_addr"`
	PluginID   string `mapstructure:"plugin_id"`

	Store  StoreConfig  `mapstructure:"store"`
	Schema SchemaConfig `mapstructure:"schema"`
	Auth   AuthConfig   `mapstructure:"auth"`
	Counts CountsConfig `mapstructure:"counts"`
	Log    LogConfig    `mapstructure:"log"`
	HTTP   HTTPConfig   `mapstructure:"http"`
}

// StoreConfig selects the record store.
type StoreConfig struct {
	Driver        string `mapstructure:"driver"` // postgres or sqlite
	DSN           string `mapstructure:"dsn"`
	MigrationsDir string `mapstructure:"migrations_dir"`
}

// SchemaConfig locates content-type definitions.
type SchemaConfig struct {
	Dir   string `mapstructure:"dir"`
	Watch bool   `mapstructure:"watch"`
}

// AuthConfig holds the admin credentials and token settings.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AdminEmail        string        `mapstructure:"admin_email"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
}

// CountsConfig tunes the aggregator.
type CountsConfig struct {
	Concurrency int  `mapstructure:"concurrency"`
	Debug       bool `mapstructure:"debug"`
}

// LogConfig configures logrus.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HTTPConfig holds HTTP server limits.
type HTTPConfig struct {
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen_addr", ":1337")
	v.SetDefault("plugin_id", "metrics-widget")
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.migrations_dir", "migrations")
	v.SetDefault("schema.dir", "schemas")
	v.SetDefault("schema.watch", true)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password_hash", "")
	v.SetDefault("auth.token_ttl", "1h")
	v.SetDefault("counts.concurrency", 4)
	v.SetDefault("counts.debug", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("http.rate_limit", 20.0)
	v.SetDefault("http.rate_burst", 40)
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "15s")
}

// Load reads the file at path (skipped when empty), applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
	}
	if c.Store.DSN == "" {
		errs = append(errs, errors.New("store.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}
	if c.Counts.Concurrency <= 0 {
		errs = append(errs, errors.New("counts.concurrency must be positive"))
	}
	if strings.ContainsAny(c.PluginID, "/ ") || c.PluginID == "" {
		errs = append(errs, fmt.Errorf("plugin_id %q must be a non-empty path segment", c.PluginID))
	}
	return errors.Join(errs...)
}
