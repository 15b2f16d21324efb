package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/set-night/txrollup/internal/domain"
)

// Named is a report sink with a label for logs and errors.
type Named interface {
	Name() string
	Deliver(ctx context.Context, summary domain.Summary) error
}

// Fanout delivers a summary to every sink in order. All sinks are required:
// the first failure is returned and the rest are not attempted.
type Fanout struct {
	sinks   []Named
	timeout time.Duration
}

// NewFanout bounds a whole delivery by timeout; zero means no bound.
func NewFanout(timeout time.Duration, sinks ...Named) *Fanout {
	return &Fanout{sinks: sinks, timeout: timeout}
}

func (f *Fanout) Len() int { return len(f.sinks) }

func (f *Fanout) Deliver(ctx context.Context, summary domain.Summary) error {
	if len(f.sinks) == 0 {
		return domain.ErrNoSinks
	}

	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	for _, s := range f.sinks {
		start := time.Now()
		if err := s.Deliver(ctx, summary); err != nil {
			return fmt.Errorf("%s: %w", s.Name(), err)
		}
		slog.Debug("sink delivered", "sink", s.Name(), "period", summary.Period, "duration", time.Since(start))
	}
	return nil
}
