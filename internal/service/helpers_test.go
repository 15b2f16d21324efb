package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fakeClock) Clock() *Clock {
	return NewClockFunc(f.Now, time.UTC)
}

type recordingSink struct {
	mu        sync.Mutex
	summaries []domain.Summary
	err       error
}

func (s *recordingSink) Deliver(_ context.Context, summary domain.Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.summaries = append(s.summaries, summary)
	return nil
}

var errSinkDown = errors.New("sink down")

func newTx(id, account, amount string, typ domain.TxType) domain.Transaction {
	return domain.Transaction{
		ID:          id,
		AccountID:   account,
		Amount:      decimal.RequireFromString(amount),
		Type:        typ,
		Description: "test " + id,
		Timestamp:   time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC),
	}
}

func newPixTx(id, account, amount string, keyType domain.PixKeyType) domain.Transaction {
	tx := newTx(id, account, amount, domain.TxTypePix)
	tx.PixData = &domain.PixData{
		PixKey:     "key-" + id,
		PixKeyType: keyType,
		EndToEndID: "E2E" + id,
	}
	return tx
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
