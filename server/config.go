package server

import (
	"errors"
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the settings of the holdings server.
type Config struct {
	Listen    string `mapstructure:"listen"`
	Currency  string `mapstructure:"currency"`
	Tradebook string `mapstructure:"tradebook"`
	NotesDir  string `mapstructure:"notes_dir"`
	LogLevel  string `mapstructure:"log_level"`
	Tracing   bool   `mapstructure:"tracing"`
}

const (
	DefaultListen   = ":8000"
	DefaultCurrency = "INR"
	DefaultLogLevel = "info"
)

// LoadConfig reads the server configuration from a file. Missing optional
// keys fall back to defaults; Tradebook and NotesDir may stay empty, the
// server then starts with no committed state and waits for an ingest.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"listen":    DefaultListen,
		"currency":  DefaultCurrency,
		"log_level": DefaultLogLevel,
		"tracing":   false,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config %q: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot parse config %q: %w", path, err)
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.Listen == "" {
		return errors.New("missing listen address in configuration")
	}
	if len(cfg.Currency) != 3 {
		return fmt.Errorf("invalid currency %q, want a 3-letter code", cfg.Currency)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q", cfg.LogLevel)
	}
	return nil
}
