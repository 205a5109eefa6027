package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEndpointURL is the hosted prediction service.
const DefaultEndpointURL = "https://cardio-ml-824l.onrender.com/predict"

type Config struct {
	Port                 string
	EndpointURL          string
	PredictTimeout       time.Duration // 0 means no client timeout
	StrictValidation     bool
	BandsFile            string
	SessionIdleTTL       time.Duration
	SlowRequestThreshold time.Duration
	Env                  string
}

func Default() Config {
	return Config{
		Port:                 "8080",
		EndpointURL:          DefaultEndpointURL,
		PredictTimeout:       0,
		StrictValidation:     false,
		SessionIdleTTL:       30 * time.Minute,
		SlowRequestThreshold: 2 * time.Second,
		Env:                  "development",
	}
}

// Load builds the configuration from defaults, then an optional .env file,
// then the process environment. Variables already set in the environment
// win over .env entries.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Default()
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := getenv("PREDICT_ENDPOINT_URL"); v != "" {
		c.EndpointURL = v
	}
	if v := getenv("BANDS_FILE"); v != "" {
		c.BandsFile = v
	}
	if v := getenv("APP_ENV"); v != "" {
		c.Env = v
	}

	if v := getenv("STRICT_VALIDATION"); v != "" {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid STRICT_VALIDATION %q: %w", v, err)
		}
		c.StrictValidation = b
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"PREDICT_TIMEOUT", &c.PredictTimeout},
		{"SESSION_IDLE_TTL", &c.SessionIdleTTL},
		{"SLOW_REQUEST_THRESHOLD", &c.SlowRequestThreshold},
	}
	for _, d := range durations {
		v := getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", d.key, v, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate rejects settings the service cannot run with.
func (c Config) Validate() error {
	u, err := url.Parse(c.EndpointURL)
	if err != nil {
		return fmt.Errorf("invalid endpoint URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("endpoint URL %q must be an absolute http(s) URL", c.EndpointURL)
	}
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.PredictTimeout < 0 {
		return fmt.Errorf("predict timeout cannot be negative")
	}
	if c.SessionIdleTTL <= 0 {
		return fmt.Errorf("session idle TTL must be positive")
	}
	return nil
}

func (c Config) IsProd() bool {
	return c.Env == "production"
}
