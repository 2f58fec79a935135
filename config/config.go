package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration. Everything comes from the
// environment; a local .env file is loaded first when present.
type Config struct {
	ServerConfig       ServerConfig
	BitunixConfig      BitunixConfig
	DatabaseConfig     DatabaseConfig
	RedisConfig        RedisConfig
	VaultConfig        VaultConfig
	NotificationConfig NotificationConfig
	LoggingConfig      LoggingConfig
	TradingConfig      TradingConfig
}

// ServerConfig holds webhook listener settings.
type ServerConfig struct {
	Host           string
	Port           int
	ProductionMode bool
}

// BitunixConfig holds exchange API settings. Credentials may instead come
// from Vault when that is enabled.
type BitunixConfig struct {
	APIKey    string
	SecretKey string
	BaseURL   string
}

// DatabaseConfig holds the PostgreSQL pair-configuration store settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN renders the pgx connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds cache settings.
type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
}

// VaultConfig holds the optional secret store settings.
type VaultConfig struct {
	Enabled    bool
	Address    string
	Token      string
	MountPath  string
	SecretPath string
}

// NotificationConfig holds the outbound alert channels.
type NotificationConfig struct {
	Enabled  bool
	Telegram TelegramConfig
	Discord  DiscordConfig
}

type TelegramConfig struct {
	Enabled  bool
	BotToken string
	ChatID   string
}

type DiscordConfig struct {
	Enabled    bool
	WebhookURL string
}

// LoggingConfig controls the zerolog root logger.
type LoggingConfig struct {
	Level      string // debug, info, warn, error
	JSONFormat bool
}

// TradingConfig holds executor-level knobs.
type TradingConfig struct {
	MarginCoin        string
	MaxQueuePerSymbol int
}

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.ServerConfig.Host = getEnvOrDefault("SERVER_HOST", "0.0.0.0")
	cfg.ServerConfig.Port = getEnvIntOrDefault("SERVER_PORT", 5001)
	cfg.ServerConfig.ProductionMode = getEnvOrDefault("SERVER_PRODUCTION", "true") == "true"

	cfg.BitunixConfig.APIKey = getEnvOrDefault("BITUNIX_API_KEY", "")
	cfg.BitunixConfig.SecretKey = getEnvOrDefault("BITUNIX_SECRET_KEY", "")
	cfg.BitunixConfig.BaseURL = getEnvOrDefault("BITUNIX_BASE_URL", "")

	cfg.DatabaseConfig.Host = getEnvOrDefault("DB_HOST", "localhost")
	cfg.DatabaseConfig.Port = getEnvIntOrDefault("DB_PORT", 5432)
	cfg.DatabaseConfig.User = getEnvOrDefault("DB_USER", "postgres")
	cfg.DatabaseConfig.Password = getEnvOrDefault("DB_PASSWORD", "")
	cfg.DatabaseConfig.Database = getEnvOrDefault("DB_NAME", "bitunix_bot")
	cfg.DatabaseConfig.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	cfg.RedisConfig.Enabled = getEnvOrDefault("REDIS_ENABLED", "false") == "true"
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDRESS", "localhost:6379")
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", "")
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", 0)

	cfg.VaultConfig.Enabled = getEnvOrDefault("VAULT_ENABLED", "false") == "true"
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", "http://localhost:8200")
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", "")
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", "secret")
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", "bitunix-bot/api-keys")

	cfg.NotificationConfig.Enabled = getEnvOrDefault("NOTIFICATIONS_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.Enabled = getEnvOrDefault("TELEGRAM_ENABLED", "false") == "true"
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", "")
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", "")
	cfg.NotificationConfig.Discord.Enabled = getEnvOrDefault("DISCORD_ENABLED", "false") == "true"
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", "")

	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.LoggingConfig.JSONFormat = getEnvOrDefault("LOG_JSON", "true") == "true"

	cfg.TradingConfig.MarginCoin = getEnvOrDefault("MARGIN_COIN", "USDT")
	cfg.TradingConfig.MaxQueuePerSymbol = getEnvIntOrDefault("MAX_QUEUE_PER_SYMBOL", 500)

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
