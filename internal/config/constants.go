package config

import "time"

const (
	// Kafka reader tuning
	KafkaMinBytes = 1
	KafkaMaxBytes = 10e6
	KafkaMaxWait  = 500 * time.Millisecond

	// Backoff after a failed fetch or commit
	KafkaRetryDelay = 2 * time.Second

	// HTTP server timeouts
	HTTPReadTimeout     = 15 * time.Second
	HTTPWriteTimeout    = 30 * time.Second
	HTTPIdleTimeout     = 60 * time.Second
	HTTPShutdownTimeout = 30 * time.Second
	MaxRequestBodyBytes = 1 << 20

	// Sink calls made from a flush
	SinkTimeout = 2 * time.Minute

	// Postgres pool
	DBMaxConns = 10
	DBMinConns = 1

	// Telegram limits
	TelegramSendTimeout = 10 * time.Second
)
