package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("applies defaults over a minimal file", func(t *testing.T) {
		path := writeConfigFile(t, `
telegram:
  token: "tg-token"
ai:
  token: "hf-token"
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Telegram.Token != "tg-token" {
			t.Errorf("telegram token = %q, want tg-token", cfg.Telegram.Token)
		}
		if cfg.AI.Backend != "huggingface" {
			t.Errorf("ai backend = %q, want huggingface", cfg.AI.Backend)
		}
		if cfg.AI.BaseURL != DefaultAIBaseURL {
			t.Errorf("ai base url = %q, want %q", cfg.AI.BaseURL, DefaultAIBaseURL)
		}
		if cfg.AI.Model != "gpt2" {
			t.Errorf("ai model = %q, want gpt2", cfg.AI.Model)
		}
		if cfg.AI.Timeout != DefaultAITimeout {
			t.Errorf("ai timeout = %v, want %v", cfg.AI.Timeout, DefaultAITimeout)
		}
		if cfg.AI.MaxRetries != 0 {
			t.Errorf("ai max retries = %d, want 0", cfg.AI.MaxRetries)
		}
		if cfg.Logger.Level != "info" {
			t.Errorf("log level = %q, want info", cfg.Logger.Level)
		}
		if cfg.Database.Path != DefaultDBPath {
			t.Errorf("db path = %q, want %q", cfg.Database.Path, DefaultDBPath)
		}
		if cfg.Telegram.Messages.ContextDeleted == "" {
			t.Error("expected default context deleted message")
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := writeConfigFile(t, `
logger:
  level: debug
  json: true
telegram:
  token: "tg-token"
  messages:
    welcome: "hi"
ai:
  token: "hf-token"
  backend: gemini
  model: gemini-2.0-flash
  timeout: 30s
  max_retries: 2
database:
  path: /tmp/bot.db
scheduler:
  tasks:
    sql_maintenance:
      enabled: true
      schedule: "0 0 3 * * *"
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}

		if cfg.Logger.Level != "debug" || !cfg.Logger.JSON {
			t.Errorf("logger = %+v, want debug/json", cfg.Logger)
		}
		if cfg.AI.Backend != "gemini" || cfg.AI.Model != "gemini-2.0-flash" {
			t.Errorf("ai = %+v, want gemini backend", cfg.AI)
		}
		if cfg.AI.Timeout != 30*time.Second {
			t.Errorf("ai timeout = %v, want 30s", cfg.AI.Timeout)
		}
		if cfg.AI.MaxRetries != 2 {
			t.Errorf("ai max retries = %d, want 2", cfg.AI.MaxRetries)
		}
		if cfg.Telegram.Messages.Welcome != "hi" {
			t.Errorf("welcome = %q, want hi", cfg.Telegram.Messages.Welcome)
		}
		task, ok := cfg.Scheduler.Tasks["sql_maintenance"]
		if !ok || !task.Enabled || task.Schedule != "0 0 3 * * *" {
			t.Errorf("scheduler task = %+v, want enabled cron entry", task)
		}
	})

	t.Run("missing file falls back to defaults and env", func(t *testing.T) {
		t.Setenv("BOT_TELEGRAM_TOKEN", "env-tg-token")
		t.Setenv("BOT_AI_TOKEN", "env-hf-token")

		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.Telegram.Token != "env-tg-token" {
			t.Errorf("telegram token = %q, want env-tg-token", cfg.Telegram.Token)
		}
		if cfg.AI.Token != "env-hf-token" {
			t.Errorf("ai token = %q, want env-hf-token", cfg.AI.Token)
		}
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
		}{
			{
				name:    "missing telegram token",
				content: "ai:\n  token: hf\n",
			},
			{
				name:    "missing ai token",
				content: "telegram:\n  token: tg\n",
			},
			{
				name:    "unknown backend",
				content: "telegram:\n  token: tg\nai:\n  token: hf\n  backend: replicate\n",
			},
			{
				name:    "bad log level",
				content: "telegram:\n  token: tg\nai:\n  token: hf\nlogger:\n  level: verbose\n",
			},
			{
				name:    "timeout out of range",
				content: "telegram:\n  token: tg\nai:\n  token: hf\n  timeout: 1ms\n",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				path := writeConfigFile(t, tt.content)
				if _, err := LoadConfig(path); err == nil {
					t.Error("expected validation error")
				}
			})
		}
	})
}
