package service

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/set-night/txrollup/internal/domain"
)

type periodList struct {
	mu  sync.Mutex
	txs []domain.Transaction
}

// PeriodBuffer accumulates transactions per period key. Inserts for
// different periods never contend; inserts for the same period only contend
// on that period's list for the duration of an append.
//
// Clear removes the list from the map. A transaction appended to a list
// after Snapshot but before Clear is dropped along with it.
type PeriodBuffer struct {
	clock   *Clock
	periods sync.Map // period key -> *periodList
}

func NewPeriodBuffer(clock *Clock) *PeriodBuffer {
	return &PeriodBuffer{clock: clock}
}

// Insert appends tx to the list of the current wall-clock period.
func (b *PeriodBuffer) Insert(tx domain.Transaction) {
	period := b.clock.CurrentPeriod()
	list := b.list(period)

	list.mu.Lock()
	list.txs = append(list.txs, tx)
	size := len(list.txs)
	list.mu.Unlock()

	slog.Debug("transaction buffered", "id", tx.ID, "period", period, "buffer_size", size)
}

func (b *PeriodBuffer) list(period string) *periodList {
	if l, ok := b.periods.Load(period); ok {
		return l.(*periodList)
	}
	l, _ := b.periods.LoadOrStore(period, &periodList{})
	return l.(*periodList)
}

// Snapshot returns a copy of the transactions buffered for period. The bool
// is false when the period has no transactions.
func (b *PeriodBuffer) Snapshot(period string) ([]domain.Transaction, bool) {
	l, ok := b.periods.Load(period)
	if !ok {
		return nil, false
	}
	list := l.(*periodList)

	list.mu.Lock()
	defer list.mu.Unlock()
	if len(list.txs) == 0 {
		return nil, false
	}
	out := make([]domain.Transaction, len(list.txs))
	copy(out, list.txs)
	return out, true
}

// Clear drops every transaction of period. Clearing an absent period is a no-op.
func (b *PeriodBuffer) Clear(period string) {
	b.periods.Delete(period)
}

// Occupancy maps each buffered period to its transaction count.
func (b *PeriodBuffer) Occupancy() map[string]int {
	out := make(map[string]int)
	b.periods.Range(func(k, v any) bool {
		list := v.(*periodList)
		list.mu.Lock()
		out[k.(string)] = len(list.txs)
		list.mu.Unlock()
		return true
	})
	return out
}

// Periods returns the buffered period keys in chronological order.
func (b *PeriodBuffer) Periods() []string {
	var keys []string
	b.periods.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys
}
