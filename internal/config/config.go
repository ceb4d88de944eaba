package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr      string
	DBPath          string
	APIKeys         []string
	CORSOrigins     []string
	StatusURL       string
	ResultsURL      string
	WebhookURL      string
	NotifyEmail     string
	PollInterval    time.Duration
	StatusCacheTTL  time.Duration
	ProviderTimeout time.Duration
	MaxContactRows  int
	RateLimitRPS    int
}

// Load reads configuration from LEADPILOT_* environment variables.
// LEADPILOT_STATUS_URL is the only required value; everything else has
// a sensible default. An empty LEADPILOT_API_KEYS disables auth, an
// empty LEADPILOT_WEBHOOK_URL disables the automation webhook.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("LEADPILOT_LISTEN_ADDR", ":8080"),
		DBPath:      getEnv("LEADPILOT_DB_PATH", "leadpilot.db"),
		StatusURL:   getEnv("LEADPILOT_STATUS_URL", ""),
		ResultsURL:  getEnv("LEADPILOT_RESULTS_URL", ""),
		WebhookURL:  getEnv("LEADPILOT_WEBHOOK_URL", ""),
		NotifyEmail: getEnv("LEADPILOT_NOTIFY_EMAIL", ""),
	}

	if cfg.StatusURL == "" {
		return nil, errors.New("LEADPILOT_STATUS_URL must not be empty")
	}

	for _, k := range strings.Split(getEnv("LEADPILOT_API_KEYS", ""), ",") {
		if k = strings.TrimSpace(k); k != "" {
			cfg.APIKeys = append(cfg.APIKeys, k)
		}
	}
	for _, o := range strings.Split(getEnv("LEADPILOT_CORS_ORIGINS", ""), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error
	if cfg.PollInterval, err = getEnvDuration("LEADPILOT_POLL_INTERVAL", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.PollInterval <= 0 {
		return nil, errors.New("LEADPILOT_POLL_INTERVAL must be > 0")
	}
	if cfg.StatusCacheTTL, err = getEnvDuration("LEADPILOT_STATUS_CACHE_TTL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.StatusCacheTTL <= 0 {
		return nil, errors.New("LEADPILOT_STATUS_CACHE_TTL must be > 0")
	}
	if cfg.ProviderTimeout, err = getEnvDuration("LEADPILOT_PROVIDER_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	if cfg.MaxContactRows, err = getEnvInt("LEADPILOT_MAX_CONTACT_ROWS", 100); err != nil {
		return nil, err
	}
	if cfg.MaxContactRows < 1 {
		return nil, errors.New("LEADPILOT_MAX_CONTACT_ROWS must be > 0")
	}
	if cfg.RateLimitRPS, err = getEnvInt("LEADPILOT_RATE_LIMIT_RPS", 5); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q", key, v)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, v)
	}
	return d, nil
}
