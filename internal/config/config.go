package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/vaskrneup/NepseTools/internal/logging"
)

// JobConfig declares one crossover watch: the two windows, the instruments
// to check, and the recipients to notify.
type JobConfig struct {
	Name        string   `yaml:"name"`
	BigWindow   int      `yaml:"big_window"`
	SmallWindow int      `yaml:"small_window"`
	Symbols     []string `yaml:"symbols"`
	Recipients  []string `yaml:"recipients"`
}

// Config holds all application configuration.
type Config struct {
	Mail struct {
		SMTPHost    string `yaml:"smtp_host"`
		SMTPPort    int    `yaml:"smtp_port"`
		Sender      string `yaml:"sender"`
		Password    string `yaml:"password"`
		DialTimeout int    `yaml:"dial_timeout_seconds"`
	} `yaml:"mail"`
	DataSource struct {
		BaseURL        string `yaml:"base_url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"data_source"`
	Store struct {
		CSVPath      string `yaml:"csv_path"`
		LookbackDays int    `yaml:"lookback_days"`
	} `yaml:"store"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Chart struct {
		OutputDir    string `yaml:"output_dir"`
		TailSessions int    `yaml:"tail_sessions"`
	} `yaml:"chart"`
	Schedule struct {
		DailyCron string `yaml:"daily_cron"`
	} `yaml:"schedule"`
	Log   logging.Config `yaml:"log"`
	Proxy string         `yaml:"proxy"`
	Jobs  []JobConfig    `yaml:"jobs"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides. The environment names match the original deployment's .env
// surface.
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
	if v := os.Getenv("MAIL_EMAIL"); v != "" {
		cfg.Mail.Sender = v
	}
	if v := os.Getenv("MAIL_PASSWORD"); v != "" {
		cfg.Mail.Password = v
	}
	if v := os.Getenv("MAIL_SMTP_SERVER_ADDRESS"); v != "" {
		cfg.Mail.SMTPHost = v
	}
	if v := os.Getenv("MAIL_SMTP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Mail.SMTPPort = port
		}
	}
	if v := os.Getenv("SHARE_PRICE_STORAGE_LOCATION"); v != "" {
		cfg.Store.CSVPath = v
	}
	if v := os.Getenv("PRICE_API_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("PRICE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("CRON_DAILY"); v != "" {
		cfg.Schedule.DailyCron = v
	}

	// Defaults
	if cfg.Mail.SMTPPort == 0 {
		cfg.Mail.SMTPPort = 465
	}
	if cfg.Mail.DialTimeout == 0 {
		cfg.Mail.DialTimeout = 30
	}
	if cfg.DataSource.TimeoutSeconds == 0 {
		cfg.DataSource.TimeoutSeconds = 30
	}
	if cfg.Store.CSVPath == "" {
		cfg.Store.CSVPath = "data/share_prices.csv"
	}
	if cfg.Store.LookbackDays == 0 {
		cfg.Store.LookbackDays = 400
	}
	if cfg.Chart.OutputDir == "" {
		cfg.Chart.OutputDir = "data/charts"
	}
	if cfg.Chart.TailSessions == 0 {
		cfg.Chart.TailSessions = 180
	}
	if cfg.Schedule.DailyCron == "" {
		// After the exchange closes and the daily sheet is published.
		cfg.Schedule.DailyCron = "0 0 16 * * 0-4"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if !cfg.Log.Console && cfg.Log.FilePath == "" {
		cfg.Log.Console = true
	}

	return cfg, nil
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if c.Mail.Sender == "" {
		return fmt.Errorf("mail.sender is required")
	}
	if c.Mail.Password == "" {
		return fmt.Errorf("mail.password is required")
	}
	if c.Mail.SMTPHost == "" {
		return fmt.Errorf("mail.smtp_host is required")
	}
	if c.DataSource.BaseURL == "" {
		return fmt.Errorf("data_source.base_url is required")
	}
	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job is required")
	}
	for i, j := range c.Jobs {
		if j.BigWindow <= 0 || j.SmallWindow <= 0 {
			return fmt.Errorf("jobs[%d]: window sizes must be positive", i)
		}
		if j.BigWindow == j.SmallWindow {
			return fmt.Errorf("jobs[%d]: big and small windows must differ", i)
		}
		if len(j.Symbols) == 0 {
			return fmt.Errorf("jobs[%d]: symbols are required", i)
		}
		if len(j.Recipients) == 0 {
			return fmt.Errorf("jobs[%d]: recipients are required", i)
		}
	}
	return nil
}
