package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.01, cfg.Risk.InitialLot)
	assert.Equal(t, 5, cfg.Risk.MaxPositions)
	assert.Equal(t, 0.05, cfg.Risk.MaxDrawdown)
	assert.Equal(t, 0.04, cfg.AlertDrawdown)
	assert.Equal(t, 5000, cfg.API.Port)
	assert.Equal(t, "skylark", cfg.Providers.SentimentModel)
	assert.Equal(t, 24*time.Hour, cfg.Schedule.Evaluate)
	assert.Equal(t, 72*time.Hour, cfg.Schedule.Retrain)
	assert.Equal(t, 168*time.Hour, cfg.Schedule.ReOptimize)
	assert.Equal(t, time.Hour, cfg.Schedule.DrawdownCheck)
	assert.Equal(t, "fallback_logs.txt", cfg.Journal.FallbackPath)
	assert.Equal(t, "state", cfg.StateDir)
	assert.Equal(t, 5*time.Minute, cfg.StateSaveEvery)
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RISK_MAX_POSITIONS", "3")
	t.Setenv("RISK_MAX_LOT", "0.5")
	t.Setenv("NEWS_URLS", "https://a.example/news, ,https://b.example/news")
	t.Setenv("SCHEDULE_DRAWDOWN_CHECK", "15m")
	t.Setenv("LOG_CONSOLE", "false")
	t.Setenv("API_PORT", "not-a-number")

	cfg := Load()
	assert.Equal(t, 3, cfg.Risk.MaxPositions)
	assert.Equal(t, 0.5, cfg.Risk.MaxLot)
	assert.Equal(t, []string{"https://a.example/news", "https://b.example/news"}, cfg.Providers.NewsURLs)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.DrawdownCheck)
	assert.False(t, cfg.LogConsole)
	assert.Equal(t, 5000, cfg.API.Port)
}

func TestLoadEnvFile(t *testing.T) {
	loaded, err := LoadEnvFile(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.False(t, loaded)

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SMART_EA_TEST_TELEGRAM=abc\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("SMART_EA_TEST_TELEGRAM") })

	loaded, err = LoadEnvFile(path)
	require.NoError(t, err)
	assert.True(t, loaded)
	assert.Equal(t, "abc", os.Getenv("SMART_EA_TEST_TELEGRAM"))
}

func TestLoadFileOverlays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smart-ea.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
risk:
  max_drawdown: 0.1
  max_lot: 0.2
schedule:
  evaluate: 12h
providers:
  news_urls:
    - https://news.example/latest
journal:
  db_path: /tmp/ea.db
`), 0644))

	cfg := Load()
	require.NoError(t, LoadFile(path, cfg))
	assert.Equal(t, 0.1, cfg.Risk.MaxDrawdown)
	assert.Equal(t, 0.2, cfg.Risk.MaxLot)
	assert.Equal(t, 0.01, cfg.Risk.InitialLot)
	assert.Equal(t, 12*time.Hour, cfg.Schedule.Evaluate)
	assert.Equal(t, 72*time.Hour, cfg.Schedule.Retrain)
	assert.Equal(t, []string{"https://news.example/latest"}, cfg.Providers.NewsURLs)
	assert.Equal(t, "/tmp/ea.db", cfg.Journal.DBPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileErrors(t *testing.T) {
	cfg := Load()
	err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"), cfg)
	assert.ErrorIs(t, err, boterrors.ErrValidation)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("risk: [unclosed"), 0644))
	assert.Error(t, LoadFile(bad, cfg))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"zero lot", func(c *Config) { c.Risk.InitialLot = 0 }},
		{"no positions", func(c *Config) { c.Risk.MaxPositions = 0 }},
		{"drawdown too large", func(c *Config) { c.Risk.MaxDrawdown = 1 }},
		{"max lot below initial", func(c *Config) { c.Risk.MaxLot = 0.001 }},
		{"fallback volatility", func(c *Config) { c.Risk.VolatilityFallback = 1.5 }},
		{"inverted regime thresholds", func(c *Config) { c.Providers.RegimeTrending = 0.9 }},
		{"sentiment without key", func(c *Config) { c.Providers.SentimentURL = "https://nlp.example" }},
		{"bad port", func(c *Config) { c.API.Port = 70000 }},
		{"zero interval", func(c *Config) { c.Schedule.Retrain = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			var be *boterrors.BotError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, boterrors.ErrorCategoryConfiguration, be.Category)
		})
	}
}
