package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func baseConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Gemini.APIKey = "key"
	return cfg
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := baseConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}

	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, expected longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Gemini.ChatModel == "" || cfg.Gemini.ImageModel == "" {
		t.Fatal("expected model defaults")
	}
	if cfg.Gemini.MaxOutputTokens != 300 {
		t.Fatalf("max_output_tokens = %d, expected 300", cfg.Gemini.MaxOutputTokens)
	}
	if cfg.Quota.DailyTokenLimit != 300 {
		t.Fatalf("daily_token_limit = %d, expected 300", cfg.Quota.DailyTokenLimit)
	}
	if cfg.Quota.MaxPromptChars != 1000 || cfg.Quota.MaxImagePromptChars != 300 {
		t.Fatalf("prompt caps = %d/%d, expected 1000/300",
			cfg.Quota.MaxPromptChars, cfg.Quota.MaxImagePromptChars)
	}
	if cfg.Image.AspectRatio != "1:1" {
		t.Fatalf("aspect_ratio = %q, expected 1:1", cfg.Image.AspectRatio)
	}
}

func TestLoadReadsDatabaseSection(t *testing.T) {
	yaml := `
telegram:
  token: "123:abc"
gemini:
  api_key: key
database:
  host: db.internal
  port: "5433"
  user: gembot
  password: secret
  name: gembot
  sslmode: require
  max_connections: 7
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	db := cfg.Database
	if db.Host != "db.internal" || db.Port != "5433" || db.Name != "gembot" {
		t.Fatalf("database section = %+v, expected yaml values", db)
	}
	if db.SSLMode != "require" || db.MaxConnections != 7 {
		t.Fatalf("database options = %+v, expected yaml values", db)
	}
}

func TestNormalizeRequiredFields(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.Token = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing telegram token")
	}

	cfg = baseConfig()
	cfg.Gemini.APIKey = ""
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for missing gemini api key")
	}
}

func TestNormalizeRunModeAlias(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.RunMode = "Polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, expected polling alias to map to longpoll", cfg.Telegram.RunMode)
	}

	cfg = baseConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "run_mode") {
		t.Fatalf("expected run_mode error, got %v", err)
	}
}

func TestNormalizeWebhookValidation(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}

	cfg = baseConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	cfg.Webhook.URL = "https://bot.example.com/hook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8443
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeHealthPort(t *testing.T) {
	cfg := baseConfig()
	cfg.Health.Enabled = true
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for enabled health endpoint without port")
	}

	cfg.Health.Port = 8081
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRateLimitExcludes(t *testing.T) {
	cfg := baseConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Message ", "callback"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.RateLimit.ExcludeUpdates[0] != UpdateMessage {
		t.Fatalf("exclude[0] = %q, expected normalized %q", cfg.RateLimit.ExcludeUpdates[0], UpdateMessage)
	}

	cfg = baseConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unsupported exclude value")
	}
}
