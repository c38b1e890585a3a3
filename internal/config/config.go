package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds bot configuration loaded from the environment.
type Config struct {
	AppEnv    string
	BotPrefix string `validate:"required"`
	BotToken  string `validate:"required"`
	RedisURL  string `validate:"required,url"`

	TrackerBaseURL          string        `validate:"required,url"`
	TrackerTimeout          time.Duration `validate:"gt=0"`
	TrackerBootstrapTimeout time.Duration `validate:"gt=0"`
	FanoutConcurrency       int           `validate:"gte=1"`
	CarrierRefreshInterval  time.Duration `validate:"gte=0"`

	SessionTTL       time.Duration `validate:"gte=0"`
	SessionKeyPrefix string

	CommandRateWindow time.Duration
	CommandRateMax    int `validate:"gte=0"`

	CircuitTrackerMinReq      int
	CircuitTrackerFailureRate float64
	CircuitTrackerOpenFor     time.Duration

	OpsPort      string
	OpsRateLimit string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:                    valueOrDefault(k.String("APP_ENV"), "development"),
		BotPrefix:                 strings.TrimSpace(k.String("BOT_PREFIX")),
		BotToken:                  strings.TrimSpace(k.String("BOT_TOKEN")),
		RedisURL:                  valueOrDefault(k.String("REDIS_URL"), "redis://localhost:6379/0"),
		TrackerBaseURL:            strings.TrimRight(valueOrDefault(k.String("TRACKER_BASE_URL"), "https://apis.tracker.delivery"), "/"),
		TrackerTimeout:            parseDuration(k.String("TRACKER_TIMEOUT"), "1500ms"),
		TrackerBootstrapTimeout:   parseDuration(k.String("TRACKER_BOOTSTRAP_TIMEOUT"), "10s"),
		FanoutConcurrency:         parseInt(k.String("FANOUT_CONCURRENCY"), 8),
		CarrierRefreshInterval:    parseDuration(k.String("CARRIER_REFRESH_INTERVAL"), "0s"),
		SessionTTL:                parseDuration(k.String("SESSION_TTL"), "24h"),
		SessionKeyPrefix:          k.String("SESSION_KEY_PREFIX"),
		CommandRateWindow:         parseDuration(k.String("COMMAND_RATE_WINDOW"), "30s"),
		CommandRateMax:            parseInt(k.String("COMMAND_RATE_MAX"), 3),
		CircuitTrackerMinReq:      parseInt(k.String("CIRCUIT_TRACKER_MIN_REQ"), 20),
		CircuitTrackerFailureRate: parseFloat(k.String("CIRCUIT_TRACKER_FAILURE_RATE"), 0.9),
		CircuitTrackerOpenFor:     parseDuration(k.String("CIRCUIT_TRACKER_OPEN_FOR"), "30s"),
		OpsPort:                   opsPort(k),
		OpsRateLimit:              valueOrDefault(k.String("OPS_RATE_LIMIT"), "60-M"),
	}

	if err := validator.New().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("invalid config: %s failed %q", envName(verrs[0].Field()), verrs[0].Tag())
		}
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// OpsAddr returns the address the ops HTTP server should bind to. An empty
// result means the server is disabled.
func (c *Config) OpsAddr() string {
	port := strings.TrimSpace(c.OpsPort)
	if port == "" {
		return ""
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// opsPort distinguishes an unset OPS_PORT (default port) from an explicitly
// empty one (server disabled).
func opsPort(k *koanf.Koanf) string {
	if !k.Exists("OPS_PORT") {
		return "9090"
	}
	return strings.TrimSpace(k.String("OPS_PORT"))
}

var envNames = map[string]string{
	"BotPrefix":               "BOT_PREFIX",
	"BotToken":                "BOT_TOKEN",
	"RedisURL":                "REDIS_URL",
	"TrackerBaseURL":          "TRACKER_BASE_URL",
	"TrackerTimeout":          "TRACKER_TIMEOUT",
	"TrackerBootstrapTimeout": "TRACKER_BOOTSTRAP_TIMEOUT",
	"FanoutConcurrency":       "FANOUT_CONCURRENCY",
	"CarrierRefreshInterval":  "CARRIER_REFRESH_INTERVAL",
	"SessionTTL":              "SESSION_TTL",
	"CommandRateMax":          "COMMAND_RATE_MAX",
}

func envName(field string) string {
	if name, ok := envNames[field]; ok {
		return name
	}
	return field
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	n, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]*string, len(env))
	for key := range env {
		if prev, ok := os.LookupEnv(key); ok {
			original[key] = &prev
		} else {
			original[key] = nil
		}
		if err := os.Setenv(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func restoreEnv(values map[string]*string) error {
	var errs []string
	for key, value := range values {
		var err error
		if value == nil {
			err = os.Unsetenv(key)
		} else {
			err = os.Setenv(key, *value)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
