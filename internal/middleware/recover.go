package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/segmentio/kafka-go"
	"github.com/set-night/txrollup/internal/ingest"
)

// Recover returns middleware that turns a panic in the handler into an error.
func Recover() ingest.Middleware {
	return func(next ingest.HandlerFunc) ingest.HandlerFunc {
		return func(ctx context.Context, msg kafka.Message) (err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("panic recovered in handler",
						"panic", r,
						"topic", msg.Topic,
						"offset", msg.Offset,
						"stack", string(debug.Stack()),
					)
					err = fmt.Errorf("handler panic: %v", r)
				}
			}()
			return next(ctx, msg)
		}
	}
}
