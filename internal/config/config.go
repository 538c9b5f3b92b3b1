package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultConfigPath = "configs/config.yaml"

// Config is the main struct that holds all configuration for the application.
type Config struct {
	Logger        LoggerConfig        `mapstructure:"logger"`
	HTTP          HTTPConfig          `mapstructure:"http"`
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	RabbitMQ      RabbitMQConfig      `mapstructure:"rabbitmq"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Notifiers     NotifiersConfig     `mapstructure:"notifiers"`
	Watchlist     WatchlistConfig     `mapstructure:"watchlist"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Consumer      ConsumerConfig      `mapstructure:"consumer"`
}

// LoggerConfig holds logging-specific settings.
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// HTTPConfig holds HTTP server-specific settings.
type HTTPConfig struct {
	Port            string        `mapstructure:"port"`
	GinMode         string        `mapstructure:"gin_mode"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// PostgresConfig holds all settings for the PostgreSQL database connection.
type PostgresConfig struct {
	DSN  string     `mapstructure:"dsn"`
	Pool PoolConfig `mapstructure:"pool"`
}

// PoolConfig defines the connection pool settings for the database.
type PoolConfig struct {
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RabbitMQConfig holds all settings for the RabbitMQ connection.
type RabbitMQConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig holds all settings for the Redis connection.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NotifiersConfig holds configurations for all notification channels.
type NotifiersConfig struct {
	// Mode can be "development" or "production".
	// In "development" mode, every session presents through the LogNotifier.
	Mode     string         `mapstructure:"mode"`
	Email    EmailConfig    `mapstructure:"email"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// EmailConfig holds SMTP settings for the email notifier.
type EmailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	Subject  string `mapstructure:"subject"`
}

// TelegramConfig holds settings for the Telegram notifier.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// WatchlistConfig toggles the watchlist feature.
type WatchlistConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// NotificationsConfig holds settings for queued offline notifications.
type NotificationsConfig struct {
	OfflineEnabled    bool          `mapstructure:"offline_enabled"`
	MaxDeliverPerJoin int           `mapstructure:"max_deliver_per_join"`
	ClaimTTL          time.Duration `mapstructure:"claim_ttl"`
	// MessagesFile optionally overrides the built-in message templates.
	MessagesFile string `mapstructure:"messages_file"`
}

// ConsumerConfig holds settings for the events consumer.
type ConsumerConfig struct {
	Workers     int           `mapstructure:"workers"`
	MaxRetries  int           `mapstructure:"max_retries"`
	BaseBackoff time.Duration `mapstructure:"base_backoff"`
}

// NewConfig loads .env (if present), then the YAML file named by CONFIG_PATH
// (configs/config.yaml by default) and environment variables.
func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = defaultConfigPath
	}
	return Load(path)
}

// Load parses the YAML file at path and environment variables to return a configuration struct.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)

	v.SetDefault("logger.level", "info")
	v.SetDefault("http.port", ":8080")
	v.SetDefault("http.gin_mode", "release")
	v.SetDefault("http.request_timeout", 5*time.Second)
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("notifiers.mode", "development")
	v.SetDefault("notifiers.email.subject", "Auction watchlist")
	v.SetDefault("watchlist.enabled", true)
	v.SetDefault("notifications.offline_enabled", true)
	v.SetDefault("notifications.max_deliver_per_join", 50)
	v.SetDefault("notifications.claim_ttl", 30*time.Second)
	v.SetDefault("notifications.messages_file", "")
	v.SetDefault("consumer.workers", 4)
	v.SetDefault("consumer.max_retries", 5)
	v.SetDefault("consumer.base_backoff", 5*time.Second)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
