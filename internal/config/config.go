// Package config provides configuration loading, validation, and management
// for the relay bot. It handles reading from YAML files, environment
// variables, default values, and validating configuration parameters.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config defines the application configuration parameters for all components
// of the bot, including logging, Telegram settings, AI integration, database
// configuration, and scheduled tasks.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	AI        AIConfig        `mapstructure:"ai"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `mapstructure:"json"`
}

// TelegramConfig holds the bot token and the fixed message texts sent to users.
type TelegramConfig struct {
	Token    string         `mapstructure:"token" validate:"required"`
	Messages MessagesConfig `mapstructure:"messages"`
}

// MessagesConfig holds the user-visible fixed texts.
type MessagesConfig struct {
	Welcome        string `mapstructure:"welcome"         validate:"required"`
	ContextDeleted string `mapstructure:"context_deleted" validate:"required"`
	GeneralError   string `mapstructure:"general_error"   validate:"required"`
}

// AIConfig holds settings for the text-generation backend.
type AIConfig struct {
	Backend        string        `mapstructure:"backend"         validate:"oneof=huggingface gemini"`
	Token          string        `mapstructure:"token"           validate:"required"`
	BaseURL        string        `mapstructure:"base_url"        validate:"url"`
	Model          string        `mapstructure:"model"           validate:"required"`
	Timeout        time.Duration `mapstructure:"timeout"         validate:"min=1s,max=10m"`
	MaxRetries     int           `mapstructure:"max_retries"     validate:"min=0,max=5"`
	FallbackAnswer string        `mapstructure:"fallback_answer" validate:"required"`
}

// DatabaseConfig holds the SQLite database settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path" validate:"required"`
}

// SchedulerConfig holds the scheduled task definitions, keyed by task name.
type SchedulerConfig struct {
	Tasks map[string]TaskConfig `mapstructure:"tasks"`
}

// TaskConfig defines a single scheduled task entry.
type TaskConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// LoadConfig loads and validates configuration in order of precedence:
// 1. Default values
// 2. The YAML file at configPath (optional)
// 3. BOT_* environment variables
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, defaults and env vars still apply
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", DefaultLogLevel)
	v.SetDefault("logger.json", DefaultLogJSON)

	// Secrets default to empty so the keys are known to viper and can be
	// supplied purely through BOT_* environment variables.
	v.SetDefault("telegram.token", "")
	v.SetDefault("ai.token", "")

	v.SetDefault("database.path", DefaultDBPath)

	v.SetDefault("ai.backend", DefaultAIBackend)
	v.SetDefault("ai.base_url", DefaultAIBaseURL)
	v.SetDefault("ai.model", DefaultAIModel)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("ai.max_retries", DefaultAIMaxRetries)
	v.SetDefault("ai.fallback_answer", DefaultAIFallbackAnswer)

	v.SetDefault("telegram.messages.welcome", DefaultMsgWelcome)
	v.SetDefault("telegram.messages.context_deleted", DefaultMsgContextDeleted)
	v.SetDefault("telegram.messages.general_error", DefaultMsgGeneralError)
}
