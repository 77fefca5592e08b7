package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
// Values come from an optional config file and environment variables,
// environment taking precedence, with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Storage
	DBPath        string
	DBBusyTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Presentation
	Locale   string
	Currency string
}

var defaults = map[string]any{
	"PORT":                        8080,
	"LOG_LEVEL":                   "info",
	"DB_PATH":                     "data/ledger.db",
	"DB_BUSY_TIMEOUT":             5 * time.Second,
	"MAX_RETRIES":                 3,
	"INITIAL_BACKOFF":             50 * time.Millisecond,
	"MAX_CONCURRENCY":             1,
	"CACHE_TTL":                   5 * time.Minute,
	"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	"LOCALE":                      "pt-BR",
	"CURRENCY":                    "BRL",
}

// New returns a viper instance with defaults registered and environment
// lookup enabled. configFile may be empty.
func New(configFile string) (*viper.Viper, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if configFile == "" {
		v.SetConfigName("ledger")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(configFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// no config file is fine, defaults and env apply
	}
	return v, nil
}

// Load reads the typed configuration out of v.
func Load(v *viper.Viper) *Config {
	return &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		DBPath:        v.GetString("DB_PATH"),
		DBBusyTimeout: v.GetDuration("DB_BUSY_TIMEOUT"),

		MaxRetries:     v.GetInt("MAX_RETRIES"),
		InitialBackoff: v.GetDuration("INITIAL_BACKOFF"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		CacheTTL: v.GetDuration("CACHE_TTL"),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),

		Locale:   v.GetString("LOCALE"),
		Currency: v.GetString("CURRENCY"),
	}
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("invalid MAX_RETRIES %d", c.MaxRetries)
	}
	return nil
}
