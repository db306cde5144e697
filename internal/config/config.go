package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/risk"
	"github.com/ducminhle1904/smart-ea/internal/scheduler"
)

type Config struct {
	Environment string `yaml:"environment"`
	LogLevel    string `yaml:"log_level"`
	LogDir      string `yaml:"log_dir"`
	LogConsole  bool   `yaml:"log_console"`

	Risk          risk.Config `yaml:"risk"`
	RiskPerTrade  float64     `yaml:"risk_per_trade"`
	AlertDrawdown float64     `yaml:"alert_drawdown"`

	Providers     ProvidersConfig     `yaml:"providers"`
	Journal       JournalConfig       `yaml:"journal"`
	API           APIConfig           `yaml:"api"`
	Notifications NotificationsConfig `yaml:"notifications"`

	Schedule     scheduler.Intervals `yaml:"schedule"`
	RetrainEvery time.Duration       `yaml:"retrain_every"`

	// StateDir holds the saved selector and risk snapshot. Empty disables
	// persistence.
	StateDir       string        `yaml:"state_dir"`
	StateSaveEvery time.Duration `yaml:"state_save_every"`
}

type ProvidersConfig struct {
	Timeout time.Duration `yaml:"timeout"`

	VolatilityURL string `yaml:"volatility_url"`
	// Regime thresholds over volatility.
	RegimeHighVolatility float64 `yaml:"regime_high_volatility"`
	RegimeTrending       float64 `yaml:"regime_trending"`

	NewsURLs          []string      `yaml:"news_urls"`
	SentimentURL      string        `yaml:"sentiment_url"`
	SentimentAPIKey   string        `yaml:"sentiment_api_key"`
	SentimentModel    string        `yaml:"sentiment_model"`
	SentimentCacheTTL time.Duration `yaml:"sentiment_cache_ttl"`

	GraphURL   string `yaml:"graph_url"`
	HistoryURL string `yaml:"history_url"`
}

type JournalConfig struct {
	DBPath       string `yaml:"db_path"`
	PostgRESTURL string `yaml:"postgrest_url"`
	PostgRESTKey string `yaml:"postgrest_key"`
	FallbackPath string `yaml:"fallback_path"`
}

type APIConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // gin mode: release, debug, test
}

type NotificationsConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
}

// Load builds a Config from environment variables with defaults.
func Load() *Config {
	def := risk.DefaultConfig()
	iv := scheduler.DefaultIntervals()

	return &Config{
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogDir:      getEnv("LOG_DIR", "logs"),
		LogConsole:  getEnvBool("LOG_CONSOLE", true),

		Risk: risk.Config{
			InitialLot:         getEnvFloat("RISK_INITIAL_LOT", def.InitialLot),
			MaxPositions:       getEnvInt("RISK_MAX_POSITIONS", def.MaxPositions),
			MaxDrawdown:        getEnvFloat("RISK_MAX_DRAWDOWN", def.MaxDrawdown),
			PauseRatio:         getEnvFloat("RISK_PAUSE_RATIO", def.PauseRatio),
			MaxLot:             getEnvFloat("RISK_MAX_LOT", def.MaxLot),
			VolatilityFallback: getEnvFloat("RISK_VOLATILITY_FALLBACK", def.VolatilityFallback),
		},
		RiskPerTrade:  getEnvFloat("RISK_PER_TRADE", risk.DefaultRiskPerTrade),
		AlertDrawdown: getEnvFloat("ALERT_DRAWDOWN", risk.DefaultAlertDrawdown),

		Providers: ProvidersConfig{
			Timeout:              getEnvDuration("PROVIDER_TIMEOUT", 5*time.Second),
			VolatilityURL:        getEnv("VOLATILITY_URL", ""),
			RegimeHighVolatility: getEnvFloat("REGIME_HIGH_VOLATILITY", 0.7),
			RegimeTrending:       getEnvFloat("REGIME_TRENDING", 0.4),
			NewsURLs:             getEnvList("NEWS_URLS", nil),
			SentimentURL:         getEnv("SENTIMENT_URL", ""),
			SentimentAPIKey:      getEnv("BYTEPLUS_API_KEY", ""),
			SentimentModel:       getEnv("SENTIMENT_MODEL", "skylark"),
			SentimentCacheTTL:    getEnvDuration("SENTIMENT_CACHE_TTL", 5*time.Minute),
			GraphURL:             getEnv("GRAPH_URL", ""),
			HistoryURL:           getEnv("HISTORY_URL", ""),
		},

		Journal: JournalConfig{
			DBPath:       getEnv("JOURNAL_DB_PATH", "smart_ea.db"),
			PostgRESTURL: getEnv("POSTGREST_URL", ""),
			PostgRESTKey: getEnv("POSTGREST_API_KEY", ""),
			FallbackPath: getEnv("FALLBACK_LOG_PATH", "fallback_logs.txt"),
		},

		API: APIConfig{
			Port: getEnvInt("API_PORT", 5000),
			Mode: getEnv("GIN_MODE", "release"),
		},

		Notifications: NotificationsConfig{
			TelegramToken:  getEnv("TELEGRAM_TOKEN", ""),
			TelegramChatID: getEnv("TELEGRAM_CHAT_ID", ""),
		},

		Schedule: scheduler.Intervals{
			Evaluate:      getEnvDuration("SCHEDULE_EVALUATE", iv.Evaluate),
			Retrain:       getEnvDuration("SCHEDULE_RETRAIN", iv.Retrain),
			ReOptimize:    getEnvDuration("SCHEDULE_REOPTIMIZE", iv.ReOptimize),
			DrawdownCheck: getEnvDuration("SCHEDULE_DRAWDOWN_CHECK", iv.DrawdownCheck),
		},
		RetrainEvery: getEnvDuration("RETRAIN_EVERY", 48*time.Hour),

		StateDir:       getEnv("STATE_DIR", "state"),
		StateSaveEvery: getEnvDuration("STATE_SAVE_EVERY", 5*time.Minute),
	}
}

// LoadEnvFile loads variables from path into the process environment. A
// missing file is not an error; the result reports whether it was loaded.
func LoadEnvFile(path string) (bool, error) {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		return false, fmt.Errorf("load env file %s: %w", path, err)
	}
	return true, nil
}

// LoadFile overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return boterrors.NewConfigurationError("config", "LoadFile", fmt.Sprintf("read %s: %v", path, err))
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return boterrors.NewConfigurationError("config", "LoadFile", fmt.Sprintf("parse %s: %v", path, err))
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(c.Risk.InitialLot > 0, "risk.initial_lot must be positive, got %v", c.Risk.InitialLot)
	check(c.Risk.MaxPositions >= 1, "risk.max_positions must be at least 1, got %d", c.Risk.MaxPositions)
	check(c.Risk.MaxDrawdown > 0 && c.Risk.MaxDrawdown < 1, "risk.max_drawdown must be in (0,1), got %v", c.Risk.MaxDrawdown)
	check(c.Risk.PauseRatio > 0 && c.Risk.PauseRatio <= 1, "risk.pause_ratio must be in (0,1], got %v", c.Risk.PauseRatio)
	check(c.Risk.MaxLot == 0 || c.Risk.MaxLot >= c.Risk.InitialLot, "risk.max_lot must be 0 or at least initial_lot, got %v", c.Risk.MaxLot)
	check(c.Risk.VolatilityFallback >= 0 && c.Risk.VolatilityFallback <= 1, "risk.volatility_fallback must be in [0,1], got %v", c.Risk.VolatilityFallback)
	check(c.RiskPerTrade > 0 && c.RiskPerTrade <= 1, "risk_per_trade must be in (0,1], got %v", c.RiskPerTrade)
	check(c.AlertDrawdown > 0 && c.AlertDrawdown < 1, "alert_drawdown must be in (0,1), got %v", c.AlertDrawdown)

	check(c.Providers.Timeout > 0, "providers.timeout must be positive")
	check(c.Providers.RegimeTrending < c.Providers.RegimeHighVolatility,
		"providers.regime_trending (%v) must be below regime_high_volatility (%v)",
		c.Providers.RegimeTrending, c.Providers.RegimeHighVolatility)
	check(c.Providers.SentimentURL == "" || c.Providers.SentimentAPIKey != "",
		"providers.sentiment_url requires BYTEPLUS_API_KEY")

	check(c.API.Port > 0 && c.API.Port < 65536, "api.port out of range: %d", c.API.Port)
	check(c.Schedule.Evaluate > 0 && c.Schedule.Retrain > 0 && c.Schedule.ReOptimize > 0 && c.Schedule.DrawdownCheck > 0,
		"schedule intervals must be positive")
	check(c.RetrainEvery > 0, "retrain_every must be positive")
	check(c.StateDir == "" || c.StateSaveEvery > 0, "state_save_every must be positive")
	check(c.Journal.FallbackPath != "", "journal.fallback_path must be set")

	if len(problems) > 0 {
		return boterrors.NewConfigurationError("config", "Validate", strings.Join(problems, "; "))
	}
	return nil
}

// TelegramEnabled reports whether Telegram alerts are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Notifications.TelegramToken != "" && c.Notifications.TelegramChatID != ""
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvList(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
