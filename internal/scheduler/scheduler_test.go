package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/set-night/txrollup/internal/config"
	"github.com/set-night/txrollup/internal/domain"
	"github.com/set-night/txrollup/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	cycleResult  service.FlushResult
	cycleErr     error
	backlog      []service.FlushResult
	backlogErr   error
	cycles       int
	backlogCalls int
	occupancy    map[string]int
	statusReads  int
}

func (f *fakeFlusher) RunFlushCycle(context.Context) (service.FlushResult, error) {
	f.cycles++
	return f.cycleResult, f.cycleErr
}

func (f *fakeFlusher) FlushBacklog(context.Context) ([]service.FlushResult, error) {
	f.backlogCalls++
	return f.backlog, f.backlogErr
}

func (f *fakeFlusher) ReportOccupancy() map[string]int {
	f.statusReads++
	return f.occupancy
}

func (f *fakeFlusher) CurrentPeriodKey() string  { return "2024-03-15-15" }
func (f *fakeFlusher) PreviousPeriodKey() string { return "2024-03-15-14" }

type fakeNotifier struct {
	succeeded []service.FlushResult
	failed    []string
	backlogs  int
}

func (n *fakeNotifier) FlushSucceeded(_ context.Context, r service.FlushResult) {
	n.succeeded = append(n.succeeded, r)
}

func (n *fakeNotifier) FlushFailed(_ context.Context, period string, _ error) {
	n.failed = append(n.failed, period)
}

func (n *fakeNotifier) BacklogFlushed(context.Context, []service.FlushResult) { n.backlogs++ }

func newTestScheduler(t *testing.T, f Flusher, n Notifier, backlog bool) *Scheduler {
	t.Helper()
	s, err := New(f, n, Options{FlushSpec: "0 5 * * * *", StatusInterval: time.Minute, Backlog: backlog})
	require.NoError(t, err)
	return s
}

func TestNewRejectsBadSchedule(t *testing.T) {
	_, err := New(&fakeFlusher{}, nil, Options{FlushSpec: "every hour", StatusInterval: time.Minute})
	assert.Error(t, err)

	// five fields are not enough once seconds are enabled
	_, err = New(&fakeFlusher{}, nil, Options{FlushSpec: "5 * * * *", StatusInterval: time.Minute})
	assert.Error(t, err)

	_, err = New(&fakeFlusher{}, nil, Options{FlushSpec: "0 5 * * * *"})
	assert.Error(t, err)
}

func TestFlushNotifiesSuccess(t *testing.T) {
	f := &fakeFlusher{cycleResult: service.FlushResult{Period: "2024-03-15-14", Summarized: true, Transactions: 4}}
	n := &fakeNotifier{}

	newTestScheduler(t, f, n, false).Flush(context.Background())

	assert.Equal(t, 1, f.cycles)
	assert.Zero(t, f.backlogCalls)
	assert.Equal(t, 1, f.statusReads, "buffer status is logged after the job")
	require.Len(t, n.succeeded, 1)
	assert.Equal(t, "2024-03-15-14", n.succeeded[0].Period)
	assert.Empty(t, n.failed)
}

func TestFlushNotifiesFailure(t *testing.T) {
	f := &fakeFlusher{
		cycleResult: service.FlushResult{Period: "2024-03-15-14"},
		cycleErr:    errors.New("sink down"),
	}
	n := &fakeNotifier{}

	newTestScheduler(t, f, n, false).Flush(context.Background())

	assert.Equal(t, []string{"2024-03-15-14"}, n.failed)
	assert.Empty(t, n.succeeded)
}

func TestFlushRunsBacklogWhenEnabled(t *testing.T) {
	f := &fakeFlusher{
		cycleResult: service.FlushResult{Period: "2024-03-15-14"},
		backlog:     []service.FlushResult{{Period: "2024-03-15-12", Summarized: true}},
		backlogErr:  errors.New("sink down"),
	}
	n := &fakeNotifier{}

	newTestScheduler(t, f, n, true).Flush(context.Background())

	assert.Equal(t, 1, f.backlogCalls)
	assert.Equal(t, 1, n.backlogs)
	assert.Equal(t, []string{"backlog"}, n.failed)
}

func TestFlushWithoutNotifier(t *testing.T) {
	f := &fakeFlusher{cycleErr: errors.New("sink down")}
	assert.NotPanics(t, func() {
		newTestScheduler(t, f, nil, true).Flush(context.Background())
	})
}

func TestReportStatus(t *testing.T) {
	f := &fakeFlusher{occupancy: map[string]int{}}
	s := newTestScheduler(t, f, nil, false)
	assert.NotPanics(t, s.ReportStatus)

	f.occupancy = map[string]int{"2024-03-15-14": 3, "2024-03-15-15": 2}
	assert.NotPanics(t, s.ReportStatus)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestScheduler(t, &fakeFlusher{occupancy: map[string]int{}}, nil, false)
	s.opts.StatusInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestFlushSkipsBacklogWhenCycleFails(t *testing.T) {
	f := &fakeFlusher{cycleErr: errors.New("sink down")}

	newTestScheduler(t, f, nil, true).Flush(context.Background())

	assert.Equal(t, 1, f.cycles)
	assert.Zero(t, f.backlogCalls)
}

type toggleSink struct {
	err       error
	delivered []string
}

func (s *toggleSink) Deliver(_ context.Context, summary domain.Summary) error {
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, summary.Period)
	return nil
}

func TestFailedPeriodRecoveredOnNextRun(t *testing.T) {
	cfg := &config.Config{}
	require.NoError(t, env.Parse(cfg))

	now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
	clock := service.NewClockFunc(func() time.Time { return now }, time.UTC)
	sink := &toggleSink{err: errors.New("bucket unreachable")}
	agg := service.NewAggregatorService(service.NewPeriodBuffer(clock), clock, sink, nil)

	s, err := New(agg, nil, Options{
		FlushSpec:      cfg.FlushCron,
		StatusInterval: cfg.StatusInterval,
		Backlog:        cfg.FlushBacklog,
	})
	require.NoError(t, err)

	agg.Insert(domain.Transaction{ID: "tx-1", AccountID: "acc-1", Amount: decimal.NewFromInt(10), Type: domain.TxTypeTED})

	now = time.Date(2024, 3, 15, 15, 5, 0, 0, time.UTC)
	s.Flush(context.Background())
	assert.Equal(t, map[string]int{"2024-03-15-14": 1}, agg.ReportOccupancy())

	sink.err = nil
	now = time.Date(2024, 3, 15, 16, 5, 0, 0, time.UTC)
	s.Flush(context.Background())

	assert.Empty(t, agg.ReportOccupancy())
	assert.Equal(t, []string{"2024-03-15-14"}, sink.delivered)
}
