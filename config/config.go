// Package config loads the application configuration from .env files and
// environment variables into a typed struct.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the central typed configuration struct.
type Config struct {
	App   AppConfig
	Log   LogConfig
	Store StoreConfig
}

type AppConfig struct {
	Name    string `env:"APP_NAME" envDefault:"Tracklet"`
	Env     string `env:"APP_ENV" envDefault:"local"` // local | production | testing
	Debug   bool   `env:"APP_DEBUG" envDefault:"true"`
	Port    string `env:"APP_PORT" envDefault:"8000"`
	SiteDir string `env:"SITE_DIR" envDefault:"./site"`
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" envDefault:"info"`
}

type StoreConfig struct {
	HistoryLimit int    `env:"STORE_HISTORY_LIMIT" envDefault:"50"`
	Persist      bool   `env:"STORE_PERSIST" envDefault:"true"`
	DataDir      string `env:"DATA_DIR" envDefault:"./data"`
}

// Load reads .env (if present) and parses the environment into a Config.
// Call once at bootstrap.
func Load(envFiles ...string) (*Config, error) {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parsing environment: %w", err)
	}
	return cfg, nil
}

// IsLocal reports whether the app runs in the local environment.
func (c *Config) IsLocal() bool { return c.App.Env == "local" }

// IsProduction reports whether the app runs in production.
func (c *Config) IsProduction() bool { return c.App.Env == "production" }

// IsTesting reports whether the app runs under tests.
func (c *Config) IsTesting() bool { return c.App.Env == "testing" }
