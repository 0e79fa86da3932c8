package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"bitepath/internal/grocery"
)

// Config holds the configuration for the application.
type Config struct {
	DatabasePath string
	StateDir     string
	UserID       string
	// UnitSystem overrides the profile preference when set.
	UnitSystem grocery.UnitSystem

	LogLevel  string
	LogFormat string

	// Telegram Config
	TelegramBotToken       string
	TelegramWebhookURL     string
	TelegramAllowedUserIDs []int64
	Port                   string
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// NewFromEnv creates a new Config object from environment variables.
func NewFromEnv() (*Config, error) {
	cfg := &Config{
		DatabasePath:       getEnv("BITEPATH_DB_PATH", "data/bitepath.db"),
		StateDir:           getEnv("BITEPATH_STATE_DIR", "data/state"),
		UserID:             getEnv("BITEPATH_USER_ID", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "console"),
		TelegramBotToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		Port:               getEnv("PORT", "8080"),
	}

	if s := os.Getenv("BITEPATH_UNIT_SYSTEM"); s != "" {
		system, err := grocery.ParseUnitSystem(s)
		if err != nil {
			return nil, fmt.Errorf("BITEPATH_UNIT_SYSTEM: %w", err)
		}
		cfg.UnitSystem = system
	}

	switch cfg.LogFormat {
	case "json", "console":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or console, got %q", cfg.LogFormat)
	}

	if ids := os.Getenv("TELEGRAM_ALLOWED_USER_IDS"); ids != "" {
		for _, part := range strings.Split(ids, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_ALLOWED_USER_IDS: invalid user id %q", part)
			}
			cfg.TelegramAllowedUserIDs = append(cfg.TelegramAllowedUserIDs, id)
		}
	}

	return cfg, nil
}

// RequireTelegram checks the settings only the bot needs.
func (c *Config) RequireTelegram() error {
	if c.TelegramBotToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN environment variable not set")
	}
	if c.TelegramWebhookURL == "" {
		return fmt.Errorf("TELEGRAM_WEBHOOK_URL environment variable not set")
	}
	return nil
}

// IsTelegramUserAllowed reports whether id may talk to the bot. An empty list allows everyone.
func (c *Config) IsTelegramUserAllowed(id int64) bool {
	if len(c.TelegramAllowedUserIDs) == 0 {
		return true
	}
	for _, allowed := range c.TelegramAllowedUserIDs {
		if allowed == id {
			return true
		}
	}
	return false
}
