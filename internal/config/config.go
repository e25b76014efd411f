// Package config loads qrstudio settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the host application.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	Encoder          string        `env:"QR_ENCODER" envDefault:"yeqown"`
	RenderCacheSize  int           `env:"RENDER_CACHE_SIZE" envDefault:"20"`
	ResizeCacheSize  int           `env:"RESIZE_CACHE_SIZE" envDefault:"10"`
	ImageLoadTimeout time.Duration `env:"IMAGE_LOAD_TIMEOUT" envDefault:"5s"`
	DebounceWindow   time.Duration `env:"DEBOUNCE_WINDOW" envDefault:"300ms"`
	MaxUploadBytes   int64         `env:"MAX_UPLOAD_BYTES" envDefault:"2097152"`

	// AllowPrivateImageHosts lets logo and background URLs point at
	// loopback or internal networks.
	AllowPrivateImageHosts bool `env:"ALLOW_PRIVATE_IMAGE_HOSTS" envDefault:"false"`
}

// Load reads .env files (if present) and then the process environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// FromMap parses cfg from vars only, ignoring the process environment.
func FromMap(vars map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: vars}); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the services cannot start with.
func (c Config) Validate() error {
	switch {
	case c.RenderCacheSize <= 0:
		return fmt.Errorf("RENDER_CACHE_SIZE must be positive, got %d", c.RenderCacheSize)
	case c.ResizeCacheSize <= 0:
		return fmt.Errorf("RESIZE_CACHE_SIZE must be positive, got %d", c.ResizeCacheSize)
	case c.ImageLoadTimeout <= 0:
		return fmt.Errorf("IMAGE_LOAD_TIMEOUT must be positive, got %s", c.ImageLoadTimeout)
	case c.DebounceWindow <= 0:
		return fmt.Errorf("DEBOUNCE_WINDOW must be positive, got %s", c.DebounceWindow)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
