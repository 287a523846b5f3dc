package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Log struct {
		Level       string `yaml:"level"`
		Environment string `yaml:"environment"`
	} `yaml:"log"`
	Cache struct {
		Dir                string        `yaml:"dir"`
		Backend            string        `yaml:"backend"`
		HistoryStart       string        `yaml:"history_start"`
		HistoricalInterval time.Duration `yaml:"historical_interval"`
		RealtimeInterval   time.Duration `yaml:"realtime_interval"`
		TradingStart       string        `yaml:"trading_start"`
		TradingEnd         string        `yaml:"trading_end"`
		Timezone           string        `yaml:"timezone"`
		FetchTimeout       time.Duration `yaml:"fetch_timeout"`
		Instruments        []string      `yaml:"instruments"`
	} `yaml:"cache"`
	DataSource struct {
		Provider string `yaml:"provider"` // broker, yahoo or mock
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"data_source"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Schedule struct {
		PrewarmCron string `yaml:"prewarm_cron"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Proxy string `yaml:"proxy"`
}

// Load reads a .env file if present, then the YAML file at path (a missing
// file is allowed), then applies environment variable overrides and defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.Log.Environment = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_INSTRUMENTS"); v != "" {
		cfg.Cache.Instruments = splitList(v)
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("BROKER_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("BROKER_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_PREWARM"); v != "" {
		cfg.Schedule.PrewarmCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Environment == "" {
		cfg.Log.Environment = "production"
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = "cache"
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "parquet"
	}
	if cfg.Cache.HistoryStart == "" {
		cfg.Cache.HistoryStart = "2024-01-01"
	}
	if cfg.Cache.HistoricalInterval == 0 {
		cfg.Cache.HistoricalInterval = time.Hour
	}
	if cfg.Cache.RealtimeInterval == 0 {
		cfg.Cache.RealtimeInterval = 60 * time.Second
	}
	if cfg.Cache.TradingStart == "" {
		cfg.Cache.TradingStart = "08:45"
	}
	if cfg.Cache.TradingEnd == "" {
		cfg.Cache.TradingEnd = "14:00"
	}
	if cfg.Cache.Timezone == "" {
		cfg.Cache.Timezone = "Asia/Taipei"
	}
	if cfg.Cache.FetchTimeout == 0 {
		cfg.Cache.FetchTimeout = 30 * time.Second
	}
	if len(cfg.Cache.Instruments) == 0 {
		cfg.Cache.Instruments = []string{"TSE", "OTC"}
	}
	if cfg.DataSource.Provider == "" {
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Provider = "broker"
		} else {
			cfg.DataSource.Provider = "yahoo"
		}
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/taiexcache.db"
	}
	if cfg.Schedule.PrewarmCron == "" {
		cfg.Schedule.PrewarmCron = "0 30 7 * * 1-5"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8050"
	}

	return cfg, nil
}

// Validate checks that every setting is usable.
func (c *Config) Validate() error {
	if c.Cache.HistoricalInterval <= 0 {
		return fmt.Errorf("cache.historical_interval must be positive")
	}
	if c.Cache.RealtimeInterval <= 0 {
		return fmt.Errorf("cache.realtime_interval must be positive")
	}
	if c.Cache.FetchTimeout <= 0 {
		return fmt.Errorf("cache.fetch_timeout must be positive")
	}
	start, err := time.Parse("15:04", c.Cache.TradingStart)
	if err != nil {
		return fmt.Errorf("cache.trading_start: %w", err)
	}
	end, err := time.Parse("15:04", c.Cache.TradingEnd)
	if err != nil {
		return fmt.Errorf("cache.trading_end: %w", err)
	}
	if !start.Before(end) {
		return fmt.Errorf("cache.trading_start must be before cache.trading_end")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := c.HistoryStart(); err != nil {
		return err
	}
	if len(c.Cache.Instruments) == 0 {
		return fmt.Errorf("cache.instruments must not be empty")
	}
	switch c.Cache.Backend {
	case "parquet", "redis", "none":
	default:
		return fmt.Errorf("cache.backend %q unknown (parquet, redis, none)", c.Cache.Backend)
	}
	switch c.DataSource.Provider {
	case "broker":
		if c.DataSource.BaseURL == "" {
			return fmt.Errorf("data_source.base_url is required for the broker provider")
		}
	case "yahoo", "mock":
	default:
		return fmt.Errorf("data_source.provider %q unknown (broker, yahoo, mock)", c.DataSource.Provider)
	}
	return nil
}

// Location resolves cache.timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Cache.Timezone)
	if err != nil {
		return nil, fmt.Errorf("cache.timezone: %w", err)
	}
	return loc, nil
}

// HistoryStart parses cache.history_start in the configured timezone.
func (c *Config) HistoryStart() (time.Time, error) {
	loc, err := c.Location()
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.ParseInLocation("2006-01-02", c.Cache.HistoryStart, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("cache.history_start: %w", err)
	}
	return t, nil
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
