package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// GeminiConfig holds generation provider settings.
type GeminiConfig struct {
	APIKey          string  `yaml:"api_key" envconfig:"GEMINI_KEY"`
	ChatModel       string  `yaml:"chat_model" envconfig:"GEMINI_CHAT_MODEL"`
	ImageModel      string  `yaml:"image_model" envconfig:"GEMINI_IMAGE_MODEL"`
	MaxOutputTokens int     `yaml:"max_output_tokens" envconfig:"GEMINI_MAX_OUTPUT_TOKENS"`
	Temperature     float64 `yaml:"temperature" envconfig:"GEMINI_TEMPERATURE"`
	TimeoutSeconds  int     `yaml:"timeout_seconds" envconfig:"GEMINI_TIMEOUT_SECONDS"`
}

// QuotaConfig bounds per-user daily consumption and prompt sizes.
type QuotaConfig struct {
	DailyTokenLimit int `yaml:"daily_token_limit" envconfig:"QUOTA_DAILY_TOKEN_LIMIT"`
	MaxPromptChars  int `yaml:"max_prompt_chars" envconfig:"QUOTA_MAX_PROMPT_CHARS"`
	// MaxImagePromptChars caps /img prompts; image prompts are shorter by policy.
	MaxImagePromptChars int `yaml:"max_image_prompt_chars" envconfig:"QUOTA_MAX_IMAGE_PROMPT_CHARS"`
}

// ImageConfig toggles image-mode deployments.
type ImageConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"IMAGE_ENABLED"`
	// AspectRatio is the default W:H ratio when the prompt does not select one.
	AspectRatio string `yaml:"aspect_ratio" envconfig:"IMAGE_ASPECT_RATIO"`
}

// HealthConfig controls the optional liveness endpoint.
type HealthConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"HEALTH_ENABLED"`
	Port    int  `yaml:"port" envconfig:"HEALTH_PORT"`
}

// DatabaseConfig holds Postgres connection settings for the usage ledger store.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
)

// RateLimitConfig holds settings for the per-user message interval limiter.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// Config aggregates the full application configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Database  DatabaseConfig  `yaml:"database"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Quota     QuotaConfig     `yaml:"quota"`
	Image     ImageConfig     `yaml:"image"`
	Health    HealthConfig    `yaml:"health"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}
	if cfg.Gemini.APIKey == "" {
		return fmt.Errorf("gemini api key is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	if cfg.Gemini.ChatModel == "" {
		cfg.Gemini.ChatModel = "gemini-2.0-flash"
	}
	if cfg.Gemini.ImageModel == "" {
		cfg.Gemini.ImageModel = "imagen-3.0-generate-002"
	}
	if cfg.Gemini.MaxOutputTokens <= 0 {
		cfg.Gemini.MaxOutputTokens = 300
	}
	if cfg.Gemini.Temperature <= 0 {
		cfg.Gemini.Temperature = 0.9
	}
	if cfg.Gemini.TimeoutSeconds <= 0 {
		cfg.Gemini.TimeoutSeconds = 60
	}

	if cfg.Quota.DailyTokenLimit <= 0 {
		cfg.Quota.DailyTokenLimit = 300
	}
	if cfg.Quota.MaxPromptChars <= 0 {
		cfg.Quota.MaxPromptChars = 1000
	}
	if cfg.Quota.MaxImagePromptChars <= 0 {
		cfg.Quota.MaxImagePromptChars = 300
	}

	if cfg.Image.AspectRatio == "" {
		cfg.Image.AspectRatio = "1:1"
	}

	if cfg.Health.Enabled && cfg.Health.Port <= 0 {
		return fmt.Errorf("health.port must be > 0 when health.enabled is true")
	}

	allowed := map[string]struct{}{
		UpdateCallback: {},
		UpdateMessage:  {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}
	return nil
}
