package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/sbenjam1n/bizassess/internal/gaps"
)

// Config holds all configuration for the assess CLI.
type Config struct {
	DatabaseURL string `env:"ASSESS_DATABASE_URL" envDefault:"postgres://localhost:5432/bizassess?sslmode=disable"`
	RedisURL    string `env:"ASSESS_REDIS_URL"    envDefault:"redis://localhost:6379/0"`
	ProjectRoot string `env:"ASSESS_PROJECT_ROOT"`
	// CatalogPath overrides the embedded question catalog with a YAML file.
	CatalogPath string `env:"ASSESS_CATALOG_PATH"`

	SecondsPerQuestion int         `env:"ASSESS_SECONDS_PER_QUESTION" envDefault:"30"`
	Policy             gaps.Policy `envPrefix:"ASSESS_"`

	ScorerConsumer string        `env:"ASSESS_SCORER_CONSUMER" envDefault:"scorer_1"`
	ScoreDebounce  time.Duration `env:"ASSESS_SCORE_DEBOUNCE"  envDefault:"2s"`
}

// Load reads an optional .env file, then configuration from environment
// variables with defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment without touching .env files.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ProjectRoot == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("get working directory: %w", err)
		}
		cfg.ProjectRoot = wd
	}
	if cfg.SecondsPerQuestion <= 0 {
		return nil, fmt.Errorf("ASSESS_SECONDS_PER_QUESTION must be positive, got %d", cfg.SecondsPerQuestion)
	}
	if cfg.Policy.NotifyThreshold <= 0 || cfg.Policy.EscalateThreshold < cfg.Policy.NotifyThreshold {
		return nil, fmt.Errorf("invalid notification thresholds: notify %d, escalate %d",
			cfg.Policy.NotifyThreshold, cfg.Policy.EscalateThreshold)
	}
	return &cfg, nil
}
