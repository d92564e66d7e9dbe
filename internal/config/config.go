package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	yamlenv "github.com/ifuryst/go-yaml-env"

	"github.com/heraldbot/herald/pkg/logger"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logger     logger.Config    `yaml:"logger"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Generation GenerationConfig `yaml:"generation"`
	Authoring  AuthoringConfig  `yaml:"authoring"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Admin      AdminConfig      `yaml:"admin"`
}

type ServerConfig struct {
	Port     int    `yaml:"port"`
	Host     string `yaml:"host"`
	Mode     string `yaml:"mode"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username" validate:"required"`
	Password string `yaml:"password"`
	Database string `yaml:"database" validate:"required"`
	SSLMode  string `yaml:"ssl_mode"`
	TimeZone string `yaml:"timezone"`
}

type TelegramConfig struct {
	Token         string `yaml:"token" validate:"required"`
	APIBaseURL    string `yaml:"api_base_url"`
	WebhookSecret string `yaml:"webhook_secret"`
	Timeout       string `yaml:"timeout"`
}

type GenerationConfig struct {
	APIKey  string `yaml:"api_key" validate:"required"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

type AuthoringConfig struct {
	MaxGenerationAttempts int `yaml:"max_generation_attempts"`
	MaxTitleLength        int `yaml:"max_title_length"`
	MaxBodyLength         int `yaml:"max_body_length"`
}

type SchedulerConfig struct {
	PollInterval string `yaml:"poll_interval"`
	Enabled      bool   `yaml:"enabled"`
}

type AdminConfig struct {
	// BootstrapID is always treated as Administrator regardless of the
	// role store, so the bot can never become un-administrable.
	BootstrapID int64  `yaml:"bootstrap_id" validate:"required"`
	TOTPSecret  string `yaml:"totp_secret"`
}

func LoadConfig(configPath string) (*Config, error) {
	cfg, err := yamlenv.LoadConfig[Config](configPath)
	if err != nil {
		return nil, err
	}

	// Set default values
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 5380
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "debug"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.TimeZone == "" {
		cfg.Database.TimeZone = "UTC"
	}
	if cfg.Telegram.APIBaseURL == "" {
		cfg.Telegram.APIBaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == "" {
		cfg.Telegram.Timeout = "30s"
	}
	if cfg.Generation.BaseURL == "" {
		cfg.Generation.BaseURL = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4o"
	}
	if cfg.Generation.Timeout == "" {
		cfg.Generation.Timeout = "120s"
	}
	if cfg.Authoring.MaxGenerationAttempts == 0 {
		cfg.Authoring.MaxGenerationAttempts = 3
	}
	if cfg.Authoring.MaxTitleLength == 0 {
		cfg.Authoring.MaxTitleLength = 255
	}
	if cfg.Authoring.MaxBodyLength == 0 {
		cfg.Authoring.MaxBodyLength = 1000
	}
	if cfg.Scheduler.PollInterval == "" {
		cfg.Scheduler.PollInterval = "1m"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
