package repository

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/set-night/txrollup/internal/domain"
)

// TxBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SummaryRepository stores delivered summaries. A period delivered twice
// keeps only the latest rows.
type SummaryRepository struct {
	db TxBeginner
}

func NewSummaryRepository(db TxBeginner) *SummaryRepository {
	return &SummaryRepository{db: db}
}

func (r *SummaryRepository) Name() string { return "postgres" }

func (r *SummaryRepository) Deliver(ctx context.Context, s domain.Summary) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO period_summaries (period, total_transactions, total_amount, pix_transactions, pix_amount, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (period) DO UPDATE SET
			total_transactions = EXCLUDED.total_transactions,
			total_amount       = EXCLUDED.total_amount,
			pix_transactions   = EXCLUDED.pix_transactions,
			pix_amount         = EXCLUDED.pix_amount,
			generated_at       = EXCLUDED.generated_at,
			delivered_at       = NOW()`,
		s.Period, s.TotalTransactions, s.TotalAmount, s.PixStats.TotalPixTransactions, s.PixStats.TotalPixAmount, s.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert period summary: %w", err)
	}

	for _, table := range []string{"period_type_stats", "period_top_accounts", "period_pix_key_counts"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table+" WHERE period = $1", s.Period); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	batch := &pgx.Batch{}
	for _, t := range domain.TxTypes {
		stats, ok := s.TransactionsByType[t]
		if !ok {
			continue
		}
		batch.Queue(`INSERT INTO period_type_stats (period, tx_type, tx_count, total_amount, average_amount) VALUES ($1, $2, $3, $4, $5)`,
			s.Period, string(t), stats.Count, stats.TotalAmount, stats.AverageAmount)
	}
	for i, a := range s.TopAccounts {
		batch.Queue(`INSERT INTO period_top_accounts (period, rank, account_id, transaction_count, total_amount) VALUES ($1, $2, $3, $4, $5)`,
			s.Period, i+1, a.AccountID, a.TransactionCount, a.TotalAmount)
	}
	for _, k := range domain.PixKeyTypes {
		n, ok := s.PixStats.PixByKeyType[k]
		if !ok {
			continue
		}
		batch.Queue(`INSERT INTO period_pix_key_counts (period, pix_key_type, tx_count) VALUES ($1, $2, $3)`,
			s.Period, string(k), n)
	}

	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert summary details: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.Info("saved summary to postgres", "period", s.Period, "top_accounts", len(s.TopAccounts))
	return nil
}
