package config

import (
	"fmt"
	"time"

	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Polygon   PolygonConfig   `yaml:"polygon"`
	Fred      FredConfig      `yaml:"fred"`
	Advisor   AdvisorConfig   `yaml:"advisor"`
	Portfolio PortfolioConfig `yaml:"portfolio"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Schedule  ScheduleConfig  `yaml:"schedule"`
	Web       WebConfig       `yaml:"web"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type PolygonConfig struct {
	APIKey string `yaml:"api_key"`
}

type FredConfig struct {
	APIKey string `yaml:"api_key"`
}

type AdvisorConfig struct {
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type PortfolioConfig struct {
	Tickers  []string            `yaml:"tickers"`
	Universe map[string][]string `yaml:"universe"`
	MaxUsers int                 `yaml:"max_users"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type ScheduleConfig struct {
	Enabled      bool   `yaml:"enabled"`
	AnalysisCron string `yaml:"analysis_cron"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Advisor.BaseURL == "" {
		cfg.Advisor.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.Advisor.Model == "" {
		cfg.Advisor.Model = "deepseek-chat"
	}
	if cfg.Advisor.TimeoutSeconds == 0 {
		cfg.Advisor.TimeoutSeconds = 120
	}
	if len(cfg.Portfolio.Tickers) == 0 {
		cfg.Portfolio.Tickers = []string{"WGMI", "MARA", "RIOT", "BITX", "RIOX", "CIFU", "BMNU", "MSTX"}
	}
	if len(cfg.Portfolio.Universe) == 0 {
		cfg.Portfolio.Universe = map[string][]string{
			"Bitcoin Miners": {"WGMI", "MARA", "RIOT", "RIOX", "CIFU", "BMNU", "CLSK", "HUT", "IREN", "CORZ", "BTBT"},
			"Bitcoin ETFs":   {"BITX", "MSTX", "IBIT", "FBTC"},
		}
	}
	if cfg.Portfolio.MaxUsers == 0 {
		cfg.Portfolio.MaxUsers = 5
	}
	if cfg.Schedule.AnalysisCron == "" {
		// Weekdays at 21:30 UTC, after the US close
		cfg.Schedule.AnalysisCron = "0 30 21 * * 1-5"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

func (c *Config) Validate() error {
	if c.Polygon.APIKey == "" {
		return fmt.Errorf("polygon.api_key is required")
	}
	if c.Advisor.APIKey == "" {
		return fmt.Errorf("advisor.api_key is required")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	return nil
}

// UniverseFlat returns every ticker in the universe as a single list.
func (c *Config) UniverseFlat() []string {
	var out []string
	for _, tickers := range c.Portfolio.Universe {
		out = append(out, tickers...)
	}
	return out
}

// InUniverse reports whether ticker is part of the configured universe.
func (c *Config) InUniverse(ticker string) bool {
	for _, tickers := range c.Portfolio.Universe {
		for _, t := range tickers {
			if t == ticker {
				return true
			}
		}
	}
	return false
}

func (c *Config) AdvisorTimeout() time.Duration {
	return time.Duration(c.Advisor.TimeoutSeconds) * time.Second
}
