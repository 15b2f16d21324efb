package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Kafka ingestion
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"transactions"`
	KafkaGroupID string   `env:"KAFKA_GROUP_ID" envDefault:"transaction-aggregator"`
	KafkaWorkers int      `env:"KAFKA_WORKERS" envDefault:"2"`

	// Admin HTTP API
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Period lifecycle
	PeriodTimezone string        `env:"PERIOD_TIMEZONE" envDefault:"UTC"`
	FlushCron      string        `env:"FLUSH_CRON" envDefault:"0 5 * * * *"`
	FlushBacklog   bool          `env:"FLUSH_BACKLOG" envDefault:"true"`
	StatusInterval time.Duration `env:"STATUS_INTERVAL" envDefault:"5m"`

	// AWS
	AWSRegion      string        `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpoint    string        `env:"AWS_ENDPOINT"`
	ReportsBucket  string        `env:"REPORTS_BUCKET"`
	SummaryTable   string        `env:"SUMMARY_TABLE"`
	ProjectName    string        `env:"PROJECT_NAME" envDefault:"etl"`
	FeatureFlagTTL time.Duration `env:"FEATURE_FLAG_TTL" envDefault:"1m"`

	// Postgres summary store
	DatabaseURL string `env:"DATABASE_URL"`

	// Ingestion validation
	StrictValidation bool `env:"STRICT_VALIDATION" envDefault:"false"`

	// Telegram notifications
	TelegramBotToken  string `env:"TELEGRAM_BOT_TOKEN"`
	LogTelegramChatID int64  `env:"LOG_TELEGRAM_CHAT_ID"`
	LogTopicError     int    `env:"LOG_TOPIC_ERROR"`
	LogTopicReport    int    `env:"LOG_TOPIC_REPORT"`
}

func Load() (*Config, error) {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.KafkaWorkers < 1 {
		return fmt.Errorf("KAFKA_WORKERS must be at least 1, got %d", c.KafkaWorkers)
	}
	if c.StatusInterval <= 0 {
		return fmt.Errorf("STATUS_INTERVAL must be positive, got %s", c.StatusInterval)
	}
	if c.ReportsBucket == "" && c.SummaryTable == "" && c.DatabaseURL == "" {
		return fmt.Errorf("configure at least one of REPORTS_BUCKET, SUMMARY_TABLE or DATABASE_URL")
	}
	return nil
}

// Location is the timezone period keys are computed in.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.PeriodTimezone)
	if err != nil {
		return nil, fmt.Errorf("load PERIOD_TIMEZONE %q: %w", c.PeriodTimezone, err)
	}
	return loc, nil
}

func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != "" && c.LogTelegramChatID != 0
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
