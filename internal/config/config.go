package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/agentflare-ai/go-jsonmerge"
)

// Config holds settings loaded from jsonmerge.yml. Command-line flags take
// precedence over every field.
type Config struct {
	Strategy string `yaml:"strategy,omitempty"`
	Format   string `yaml:"format,omitempty"`
	Workers  int    `yaml:"workers,omitempty"`
	LogLevel string `yaml:"logLevel,omitempty"`
}

// Default returns the settings used when no config file exists.
func Default() *Config {
	return &Config{
		Strategy: jsonmerge.StrategyLocal.String(),
		Format:   "json",
		Workers:  4,
		LogLevel: "info",
	}
}

// Load attempts to read jsonmerge.yml or jsonmerge.yaml from the given
// directory. Returns the default config (not an error) if no config file
// exists. Fields missing from the file keep their defaults.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"jsonmerge.yml", "jsonmerge.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		cfg := Default()
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		return cfg, nil
	}
	return Default(), nil
}

// Validate checks that every field holds a usable value.
func (c *Config) Validate() error {
	if _, err := c.MergeStrategy(); err != nil {
		return err
	}
	if c.Format != "json" && c.Format != "yaml" {
		return fmt.Errorf("unknown format %q", c.Format)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// MergeStrategy returns the configured conflict strategy.
func (c *Config) MergeStrategy() (jsonmerge.Strategy, error) {
	return jsonmerge.ParseStrategy(c.Strategy)
}

// Level returns the configured log level.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
