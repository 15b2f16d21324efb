package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/set-night/txrollup/internal/metrics"
	"github.com/shopspring/decimal"
)

// ReportSink persists a computed summary. A nil error means the summary is
// durable and the period may be cleared.
type ReportSink interface {
	Deliver(ctx context.Context, summary domain.Summary) error
}

// FlushResult describes one flush of one period.
type FlushResult struct {
	Period       string          `json:"period"`
	Summarized   bool            `json:"summarized"`
	Transactions int64           `json:"transactions"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Duration     time.Duration   `json:"duration"`
}

// AggregatorService owns the period lifecycle: writes go to the current
// period, and a flush summarizes a closed period, hands the summary to the
// sink and only then clears it.
type AggregatorService struct {
	buffer *PeriodBuffer
	clock  *Clock
	sink   ReportSink
	meters *metrics.Metrics

	// serializes flushes; inserts never take it
	flushMu sync.Mutex
}

// NewAggregatorService builds the service. meters may be nil.
func NewAggregatorService(buffer *PeriodBuffer, clock *Clock, sink ReportSink, meters *metrics.Metrics) *AggregatorService {
	return &AggregatorService{buffer: buffer, clock: clock, sink: sink, meters: meters}
}

func (s *AggregatorService) Insert(tx domain.Transaction) {
	s.buffer.Insert(tx)
	s.meters.TransactionAggregated()
}

func (s *AggregatorService) CurrentPeriodKey() string {
	return s.clock.CurrentPeriod()
}

func (s *AggregatorService) PreviousPeriodKey() string {
	return s.clock.PreviousPeriod()
}

// Summarize computes the summary of a buffered period without clearing it.
func (s *AggregatorService) Summarize(period string) (domain.Summary, bool) {
	txs, ok := s.buffer.Snapshot(period)
	if !ok {
		slog.Debug("no transactions found for period", "period", period)
		return domain.Summary{}, false
	}
	return CalculateSummary(period, txs, s.clock.Now())
}

// RunFlushCycle flushes the previous period. An empty period is not an error.
func (s *AggregatorService) RunFlushCycle(ctx context.Context) (FlushResult, error) {
	return s.FlushPeriod(ctx, s.PreviousPeriodKey())
}

// FlushPeriod summarizes period, delivers the summary and clears the period.
// When delivery fails the period is left intact for a later attempt and the
// error wraps domain.ErrSinkDelivery.
func (s *AggregatorService) FlushPeriod(ctx context.Context, period string) (FlushResult, error) {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	start := time.Now()
	result := FlushResult{Period: period, TotalAmount: decimal.Zero}

	summary, ok := s.Summarize(period)
	if !ok {
		slog.Info("no transactions found for period, skipping report", "period", period)
		return result, nil
	}

	slog.Info("generated summary",
		"period", period,
		"transactions", summary.TotalTransactions,
		"total_amount", summary.TotalAmount.String(),
	)

	if err := s.sink.Deliver(ctx, summary); err != nil {
		s.meters.ReportFailed(time.Since(start))
		slog.Error("report delivery failed, keeping period buffered", "period", period, "error", err)
		return result, fmt.Errorf("%w: period %s: %w", domain.ErrSinkDelivery, period, err)
	}

	s.buffer.Clear(period)

	result.Summarized = true
	result.Transactions = summary.TotalTransactions
	result.TotalAmount = summary.TotalAmount
	result.Duration = time.Since(start)
	s.meters.ReportGenerated(result.Duration)

	slog.Info("period flushed", "period", period, "transactions", result.Transactions, "duration", result.Duration)
	return result, nil
}

// FlushBacklog flushes every buffered period older than the current one in
// chronological order, stopping at the first delivery failure.
func (s *AggregatorService) FlushBacklog(ctx context.Context) ([]FlushResult, error) {
	current := s.CurrentPeriodKey()

	var results []FlushResult
	for _, period := range s.buffer.Periods() {
		if period >= current {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		result, err := s.FlushPeriod(ctx, period)
		if err != nil {
			return results, err
		}
		results = append(results, result)
	}
	return results, nil
}

// ReportOccupancy returns the transaction count of every buffered period.
func (s *AggregatorService) ReportOccupancy() map[string]int {
	return s.buffer.Occupancy()
}
