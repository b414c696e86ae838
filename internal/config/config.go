package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`

	LogLevel slog.Level

	// RedisURL enables event publishing when set, e.g. redis://localhost:6379/0
	RedisURL string `env:"REDIS_URL"`

	SnippetFile   string `env:"SNIPPET_FILE" envDefault:"data/snippets.json"`
	ContentRating string `env:"CONTENT_RATING" envDefault:"R"`
	// RandomSeed makes snippet selection reproducible. Zero seeds from the clock.
	RandomSeed uint64 `env:"RANDOM_SEED" envDefault:"0"`
	// MaxInteractions caps deliveries per session. Zero disables the cap.
	MaxInteractions int `env:"MAX_INTERACTIONS" envDefault:"6"`
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	return &cfg, nil
}

// EventsEnabled reports whether a Redis URL was configured.
func (c *Config) EventsEnabled() bool {
	return c.RedisURL != ""
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
