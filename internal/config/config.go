package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Blocker       BlockerConfig       `yaml:"blocker"`
	History       HistoryConfig       `yaml:"history"`
	Auth          AuthConfig          `yaml:"auth"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port string `yaml:"port"`
	Mode string `yaml:"mode"` // debug/release
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Type string `yaml:"type"` // sqlite
	Path string `yaml:"path"`
}

// BlockerConfig tunes the decision engine
type BlockerConfig struct {
	// QuotePageURL is the fallback destination when a budget has no
	// redirect URL of its own
	QuotePageURL string `yaml:"quote_page_url"`
	Debounce     string `yaml:"debounce"`      // e.g. "200ms"
	TickInterval string `yaml:"tick_interval"` // e.g. "1s"
	// NotifyThresholds are remaining-time marks (seconds) at which a
	// user-visible warning fires
	NotifyThresholds []int `yaml:"notify_thresholds"`
}

// DebounceDuration parses the debounce with a 200ms default
func (b *BlockerConfig) DebounceDuration() time.Duration {
	if d, err := time.ParseDuration(b.Debounce); err == nil && d > 0 {
		return d
	}
	return 200 * time.Millisecond
}

// TickDuration parses the accounting interval with a 1s default
func (b *BlockerConfig) TickDuration() time.Duration {
	if d, err := time.ParseDuration(b.TickInterval); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// Thresholds returns the notify marks with the 5m/1m/10s defaults
func (b *BlockerConfig) Thresholds() []int {
	if len(b.NotifyThresholds) > 0 {
		return b.NotifyThresholds
	}
	return []int{300, 60, 10}
}

// HistoryConfig controls historical statistics retention
type HistoryConfig struct {
	RetentionDays int    `yaml:"retention_days"`
	PruneSchedule string `yaml:"prune_schedule"` // Cron expression
}

// AuthConfig represents auth configuration
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// NotificationsConfig represents notification configuration
type NotificationsConfig struct {
	Webhook  WebhookConfig  `yaml:"webhook"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// WebhookConfig represents webhook notification configuration
type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
}

// TelegramConfig represents Telegram notification configuration
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   string `yaml:"chat_id"`
	// SOCKS5Proxy optionally routes Telegram API calls, e.g. "127.0.0.1:7890"
	SOCKS5Proxy string `yaml:"socks5_proxy"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
