package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	APIBaseURL         string `env:"API_BASE_URL,required"`
	CredentialsPath    string `env:"CREDENTIALS_PATH" envDefault:"gridduel.db"`
	HTTPTimeoutSeconds int    `env:"HTTP_TIMEOUT_SECONDS" envDefault:"15"`
	SearchDebounceMS   int    `env:"SEARCH_DEBOUNCE_MS" envDefault:"500"`
	LogLevel           string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c *Config) SearchDebounce() time.Duration {
	return time.Duration(c.SearchDebounceMS) * time.Millisecond
}

func (c *Config) Validate() error {
	parsed, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("API_BASE_URL is not a valid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("API_BASE_URL must use http or https, got %q", parsed.Scheme)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT_SECONDS must be positive, got %d", c.HTTPTimeoutSeconds)
	}
	if c.SearchDebounceMS < 0 {
		return fmt.Errorf("SEARCH_DEBOUNCE_MS must not be negative, got %d", c.SearchDebounceMS)
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
