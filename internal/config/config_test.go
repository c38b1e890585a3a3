package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adrinerDP/madrinerbot/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"BOT_PREFIX":       "!",
		"BOT_TOKEN":        "token",
		"REDIS_URL":        "",
		"TRACKER_BASE_URL": "",
		"TRACKER_TIMEOUT":  "",
		"SESSION_TTL":      "",
	})
	require.NoError(t, err)
	require.Equal(t, "!", cfg.BotPrefix)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, "https://apis.tracker.delivery", cfg.TrackerBaseURL)
	require.Equal(t, 1500*time.Millisecond, cfg.TrackerTimeout)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 8, cfg.FanoutConcurrency)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"BOT_PREFIX":         "?",
		"BOT_TOKEN":          "token",
		"TRACKER_BASE_URL":   "http://tracker.local/",
		"TRACKER_TIMEOUT":    "2s",
		"FANOUT_CONCURRENCY": "3",
		"SESSION_TTL":        "10m",
		"COMMAND_RATE_MAX":   "0",
		"OPS_PORT":           "8081",
	})
	require.NoError(t, err)
	require.Equal(t, "http://tracker.local", cfg.TrackerBaseURL)
	require.Equal(t, 2*time.Second, cfg.TrackerTimeout)
	require.Equal(t, 3, cfg.FanoutConcurrency)
	require.Equal(t, 10*time.Minute, cfg.SessionTTL)
	require.Equal(t, 0, cfg.CommandRateMax)
	require.Equal(t, ":8081", cfg.OpsAddr())
}

func TestLoadRequiresToken(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"BOT_PREFIX": "!",
		"BOT_TOKEN":  "",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "BOT_TOKEN")
}

func TestLoadRejectsZeroConcurrency(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{
		"BOT_PREFIX":         "!",
		"BOT_TOKEN":          "token",
		"FANOUT_CONCURRENCY": "0",
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "FANOUT_CONCURRENCY")
}
