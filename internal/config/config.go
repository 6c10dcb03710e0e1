// Package config loads housesplit configuration from an optional YAML file,
// a .env file and HOUSESPLIT_* environment variables, in increasing priority.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // timezone names resolve without system zoneinfo

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mmynk/housesplit/internal/models"
	"github.com/mmynk/housesplit/pkg/logging"
)

// EnvPrefix is prepended to every environment variable, e.g. HOUSESPLIT_SERVER_PORT.
const EnvPrefix = "HOUSESPLIT"

// Storage backends.
const (
	BackendSQLite   = "sqlite"
	BackendBolt     = "bolt"
	BackendPostgres = "postgres"
)

var validBackends = []string{BackendSQLite, BackendBolt, BackendPostgres}

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig `mapstructure:"server"`
	Store    StoreConfig  `mapstructure:"store"`
	Roster   []string     `mapstructure:"roster"`
	Timezone string       `mapstructure:"timezone"`
	Guard    GuardConfig  `mapstructure:"guard"`
	AMQP     AMQPConfig   `mapstructure:"amqp"`
	Log      LogConfig    `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the ledger backend
type StoreConfig struct {
	Backend          string `mapstructure:"backend"`
	SQLitePath       string `mapstructure:"sqlite_path"`
	BoltPath         string `mapstructure:"bolt_path"`
	PostgresURL      string `mapstructure:"postgres_url"`
	PostgresMaxConns int32  `mapstructure:"postgres_max_conns"`
}

// GuardConfig configures the delete guard. With neither DeleteSecret nor
// DeleteSecretHash set, deletion is disabled.
type GuardConfig struct {
	DeleteSecret     string        `mapstructure:"delete_secret"`
	DeleteSecretHash string        `mapstructure:"delete_secret_hash"`
	CapabilityKey    string        `mapstructure:"capability_key"`
	CapabilityTTL    time.Duration `mapstructure:"capability_ttl"`
}

// AMQPConfig configures the optional change-event feed
type AMQPConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`

	// RoutingKey is the direct-exchange key change events are published
	// under. Each watcher binds its own temporary queue with it.
	RoutingKey string `mapstructure:"routing_key"`
}

// LogConfig configures logging
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration. configPath may be empty, in which case only
// ./housesplit.yaml is tried and its absence is not an error.
func Load(configPath string) (*Config, error) {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("housesplit")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Roster = splitRoster(cfg.Roster)

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("store.backend", BackendSQLite)
	v.SetDefault("store.sqlite_path", "./data/housesplit.db")
	v.SetDefault("store.bolt_path", "./data/housesplit.bolt")
	v.SetDefault("store.postgres_url", "")
	v.SetDefault("store.postgres_max_conns", 10)

	v.SetDefault("roster", []string{})
	v.SetDefault("timezone", "Local")

	v.SetDefault("guard.delete_secret", "")
	v.SetDefault("guard.delete_secret_hash", "")
	v.SetDefault("guard.capability_key", "")
	v.SetDefault("guard.capability_ttl", 5*time.Minute)

	v.SetDefault("amqp.url", "")
	v.SetDefault("amqp.exchange", "housesplit")
	v.SetDefault("amqp.routing_key", "expense.changed")

	v.SetDefault("log.level", "info")
}

// splitRoster accepts both a YAML list and a single comma-separated value,
// which is what an environment variable produces.
func splitRoster(in []string) []string {
	var out []string
	for _, entry := range in {
		for _, name := range strings.Split(entry, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, name)
			}
		}
	}
	return out
}

// Members returns the roster as a models.Roster.
func (c *Config) Members() models.Roster {
	return models.Roster(c.Roster)
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DeleteEnabled reports whether a delete secret is configured.
func (c *Config) DeleteEnabled() bool {
	return c.Guard.DeleteSecret != "" || c.Guard.DeleteSecretHash != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Server.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Server.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendBolt:
		if c.Store.BoltPath == "" {
			errs = append(errs, "bolt database path cannot be empty when using bolt backend")
		}
	case BackendPostgres:
		if c.Store.PostgresURL == "" {
			errs = append(errs, "postgres URL cannot be empty when using postgres backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.Store.Backend, validBackends))
	}

	if err := c.Members().Validate(); err != nil {
		errs = append(errs, err.Error())
	}

	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if c.DeleteEnabled() && c.Guard.CapabilityTTL <= 0 {
		errs = append(errs, fmt.Sprintf("invalid capability TTL %v: must be positive", c.Guard.CapabilityTTL))
	}

	if c.AMQP.URL != "" {
		if parsedURL, err := url.Parse(c.AMQP.URL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQP.URL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQP.Exchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQP.RoutingKey == "" {
			errs = append(errs, "AMQP routing key cannot be empty when AMQP URL is provided")
		}
	}

	if !logging.KnownLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
