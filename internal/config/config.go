package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"daily-tasks/internal/service"
)

// Config keeps runtime settings for the planner.
type Config struct {
	TelegramToken  string
	AllowedChatID  int64
	DatabaseURL    string
	DailyRunAt     string
	ReloadInterval time.Duration
	LogLevel       string
	LogFormat      string
	MetricsAddr    string
}

// Load reads configuration from environment variables and an optional
// dailytasks.yaml (./ or ./config), with sane defaults. An explicit file
// path must exist.
func Load(file string) (Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("dailytasks")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := Config{
		TelegramToken:  strings.TrimSpace(v.GetString("telegram_token")),
		AllowedChatID:  v.GetInt64("allowed_chat_id"),
		DatabaseURL:    strings.TrimSpace(v.GetString("database_url")),
		DailyRunAt:     strings.TrimSpace(v.GetString("daily_run_at")),
		ReloadInterval: v.GetDuration("reload_interval"),
		LogLevel:       strings.TrimSpace(v.GetString("log_level")),
		LogFormat:      strings.TrimSpace(v.GetString("log_format")),
		MetricsAddr:    strings.TrimSpace(v.GetString("metrics_addr")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_tasks.db"
	}

	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram_token", "")
	v.SetDefault("allowed_chat_id", 0)
	v.SetDefault("database_url", "daily_tasks.db")
	v.SetDefault("daily_run_at", "00:00")
	v.SetDefault("reload_interval", "0s")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("metrics_addr", "")
}

// Validate rejects settings the scheduler or logger cannot use.
func (c Config) Validate() error {
	if err := service.ValidateDailyTime(c.DailyRunAt); err != nil {
		return fmt.Errorf("DAILY_RUN_AT: %w", err)
	}
	if c.ReloadInterval < 0 {
		return fmt.Errorf("RELOAD_INTERVAL must not be negative")
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be console or json, got %q", c.LogFormat)
	}
	return nil
}
