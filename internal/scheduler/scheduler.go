package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/set-night/txrollup/internal/service"
)

// Flusher is the part of the aggregator the scheduler drives.
type Flusher interface {
	RunFlushCycle(ctx context.Context) (service.FlushResult, error)
	FlushBacklog(ctx context.Context) ([]service.FlushResult, error)
	ReportOccupancy() map[string]int
	CurrentPeriodKey() string
	PreviousPeriodKey() string
}

// Notifier receives flush outcomes.
type Notifier interface {
	FlushSucceeded(ctx context.Context, r service.FlushResult)
	FlushFailed(ctx context.Context, period string, err error)
	BacklogFlushed(ctx context.Context, results []service.FlushResult)
}

type Options struct {
	// FlushSpec is a six-field cron expression (seconds first).
	FlushSpec      string
	Location       *time.Location
	StatusInterval time.Duration
	// Backlog also flushes every older buffered period on each run.
	Backlog bool
}

// Scheduler runs the hourly flush on a cron schedule and logs buffer
// occupancy on a fixed interval.
type Scheduler struct {
	flusher  Flusher
	notifier Notifier
	opts     Options
	cron     *cron.Cron
	ctx      context.Context
}

// New validates the cron expression. notifier may be nil.
func New(flusher Flusher, notifier Notifier, opts Options) (*Scheduler, error) {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StatusInterval <= 0 {
		return nil, fmt.Errorf("status interval must be positive, got %s", opts.StatusInterval)
	}

	s := &Scheduler{
		flusher:  flusher,
		notifier: notifier,
		opts:     opts,
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(opts.Location)),
		ctx:      context.Background(),
	}
	if _, err := s.cron.AddFunc(opts.FlushSpec, func() { s.Flush(s.ctx) }); err != nil {
		return nil, fmt.Errorf("parse flush schedule %q: %w", opts.FlushSpec, err)
	}
	return s, nil
}

// Run blocks until ctx is cancelled, then waits for a running flush to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	slog.Info("scheduler started", "flush_schedule", s.opts.FlushSpec, "status_interval", s.opts.StatusInterval, "backlog", s.opts.Backlog)

	ticker := time.NewTicker(s.opts.StatusInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			<-s.cron.Stop().Done()
			slog.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.ReportStatus()
		}
	}
}

// Flush runs one scheduled flush: the previous period, then, when that
// succeeded and backlog is enabled, every older buffered period.
func (s *Scheduler) Flush(ctx context.Context) {
	runID := uuid.NewString()
	log := slog.With("run_id", runID)
	log.Info("starting hourly transaction aggregation")

	result, err := s.flusher.RunFlushCycle(ctx)
	if err != nil {
		log.Error("failed to aggregate previous hour", "period", result.Period, "error", err)
		s.notifyFailed(ctx, result.Period, err)
	} else {
		s.notifySucceeded(ctx, result)
		// older periods left behind by a failed delivery
		if s.opts.Backlog {
			s.flushBacklog(ctx, log)
		}
	}

	s.ReportStatus()
	log.Info("hourly aggregation finished")
}

func (s *Scheduler) flushBacklog(ctx context.Context, log *slog.Logger) {
	results, err := s.flusher.FlushBacklog(ctx)
	if len(results) > 0 {
		log.Info("backlog flushed", "periods", len(results))
		if s.notifier != nil {
			s.notifier.BacklogFlushed(ctx, results)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("backlog flush stopped", "error", err)
		s.notifyFailed(ctx, "backlog", err)
	}
}

// ReportStatus logs the buffer occupancy when anything is buffered.
func (s *Scheduler) ReportStatus() {
	occupancy := s.flusher.ReportOccupancy()

	total := 0
	periods := make([]string, 0, len(occupancy))
	for p, n := range occupancy {
		total += n
		periods = append(periods, p)
	}
	if total == 0 {
		return
	}
	sort.Strings(periods)

	slog.Info("aggregation status",
		"periods", periods,
		"total_transactions", total,
		"current_period", s.flusher.CurrentPeriodKey(),
		"current_count", occupancy[s.flusher.CurrentPeriodKey()],
		"previous_count", occupancy[s.flusher.PreviousPeriodKey()],
	)
}

func (s *Scheduler) notifySucceeded(ctx context.Context, r service.FlushResult) {
	if s.notifier != nil {
		s.notifier.FlushSucceeded(ctx, r)
	}
}

func (s *Scheduler) notifyFailed(ctx context.Context, period string, err error) {
	if s.notifier != nil {
		s.notifier.FlushFailed(ctx, period, err)
	}
}
