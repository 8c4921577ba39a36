package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Symbol     string `yaml:"symbol" validate:"required"`
	DataSource struct {
		PriceSource       string `yaml:"price_source" validate:"oneof=alphavantage yahoo mock"`
		ChainSource       string `yaml:"chain_source" validate:"oneof=alphavantage mock"`
		BaseURL           string `yaml:"base_url" validate:"omitempty,url"`
		APIKey            string `yaml:"api_key"`
		RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
	} `yaml:"data_source"`
	Analysis struct {
		HVWindowDays         int `yaml:"hv_window_days" validate:"gte=2"`
		HorizonDays          int `yaml:"horizon_days" validate:"gte=1"`
		TargetExpirationDays int `yaml:"target_expiration_days" validate:"gte=1"`
		MaxOptionRequests    int `yaml:"max_option_requests" validate:"gte=0"`
		FetchIntervalDays    int `yaml:"fetch_interval_days" validate:"gte=0"`
		RetentionDays        int `yaml:"retention_days" validate:"gte=1"`
	} `yaml:"analysis"`
	Output struct {
		ChartPath    string `yaml:"chart_path"`
		ExportPath   string `yaml:"export_path"`
		ExportFormat string `yaml:"export_format" validate:"omitempty,oneof=csv json parquet"`
	} `yaml:"output"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron       string `yaml:"cron"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
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
	if v := os.Getenv("SYMBOL"); v != "" {
		cfg.Symbol = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("PRICE_SOURCE"); v != "" {
		cfg.DataSource.PriceSource = v
	}
	if v := os.Getenv("CHAIN_SOURCE"); v != "" {
		cfg.DataSource.ChainSource = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		cfg.Schedule.RunOnStart = v == "true"
	}
	if v := os.Getenv("MAX_OPTION_REQUESTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Analysis.MaxOptionRequests = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Symbol == "" {
		c.Symbol = "SPY"
	}
	c.Symbol = strings.ToUpper(c.Symbol)
	if c.DataSource.PriceSource == "" {
		c.DataSource.PriceSource = "alphavantage"
	}
	if c.DataSource.ChainSource == "" {
		c.DataSource.ChainSource = "alphavantage"
	}
	if c.DataSource.RequestsPerMinute == 0 {
		c.DataSource.RequestsPerMinute = 5 // free tier
	}
	if c.Analysis.HVWindowDays == 0 {
		c.Analysis.HVWindowDays = 30
	}
	if c.Analysis.HorizonDays == 0 {
		c.Analysis.HorizonDays = 30
	}
	if c.Analysis.TargetExpirationDays == 0 {
		c.Analysis.TargetExpirationDays = 30
	}
	if c.Analysis.MaxOptionRequests == 0 {
		c.Analysis.MaxOptionRequests = 24
	}
	if c.Analysis.FetchIntervalDays == 0 {
		c.Analysis.FetchIntervalDays = 14
	}
	if c.Analysis.RetentionDays == 0 {
		c.Analysis.RetentionDays = 365
	}
	if c.Output.ChartPath == "" {
		c.Output.ChartPath = "accuracy_comparison.png"
	}
	if c.Output.ExportFormat == "" {
		c.Output.ExportFormat = "csv"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/volsentinel.db"
	}
}

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()+paramSuffix(fe.Param())))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	usesAV := c.DataSource.PriceSource == "alphavantage" || c.DataSource.ChainSource == "alphavantage"
	if usesAV && c.DataSource.APIKey == "" {
		return fmt.Errorf("data_source.api_key is required for alphavantage")
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	return nil
}

func paramSuffix(p string) string {
	if p == "" {
		return ""
	}
	return "=" + p
}

// TelegramEnabled reports whether notifications are configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
