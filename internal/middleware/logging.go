package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/set-night/txrollup/internal/ingest"
)

// Logging returns middleware that logs message processing time.
func Logging() ingest.Middleware {
	return func(next ingest.HandlerFunc) ingest.HandlerFunc {
		return func(ctx context.Context, msg kafka.Message) error {
			start := time.Now()

			err := next(ctx, msg)

			slog.Debug("message processed",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"key", string(msg.Key),
				"duration", time.Since(start),
				"ok", err == nil,
			)
			return err
		}
	}
}
