// Package config holds the tool's own settings, loadable from an optional
// YAML file. The fixture file itself is handled by the fixture package;
// this is only about how the tool talks to the service under test and how
// it reports.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	BaseURL     string        `yaml:"base_url"`
	FixturePath string        `yaml:"fixture_path"`
	Timeout     time.Duration `yaml:"timeout"`
	ProxyURL    string        `yaml:"proxy_url"`

	// RateLimit paces requests per second when positive; zero disables
	// pacing. Requests stay sequential either way.
	RateLimit float64 `yaml:"rate_limit_per_sec"`
	RateBurst int     `yaml:"rate_limit_burst"`

	// Format selects the report renderer: "text" or "json".
	Format  string `yaml:"format"`
	Verbose bool   `yaml:"verbose"`

	// HistoryDB enables run persistence when set.
	HistoryDB string `yaml:"history_db"`

	Logging LoggingConfig `yaml:"logging"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Defaults() *Config {
	return &Config{
		BaseURL:     "http://localhost:8080",
		FixturePath: "validation/expected.json",
		Timeout:     30 * time.Second,
		RateBurst:   1,
		Format:      "text",
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config file over the defaults. Environment variables
// in the file are expanded before parsing.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url must be an absolute URL (e.g. http://localhost:8080)")
	}
	if c.FixturePath == "" {
		return fmt.Errorf("fixture_path is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("rate_limit_per_sec must not be negative")
	}
	if c.Format != "text" && c.Format != "json" {
		return fmt.Errorf("format must be text or json")
	}
	return validateLogLevel(c.Logging.Level)
}

func validateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
}
