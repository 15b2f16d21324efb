package repository

import (
	"context"
	"io/fs"
	"os"
	"testing"
	"time"

	txrollup "github.com/set-night/txrollup"
	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a real database when TEST_DATABASE_URL is set.
func TestSummaryRepositoryDeliver(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	migrationsFS, err := fs.Sub(txrollup.MigrationsFS, "migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(url, migrationsFS))

	pool, err := NewPool(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewSummaryRepository(pool)
	period := "2099-01-01-00"
	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, "DELETE FROM period_summaries WHERE period = $1", period)
	})

	summary := domain.Summary{
		Period:            period,
		TotalTransactions: 2,
		TotalAmount:       decimal.RequireFromString("30.10"),
		TransactionsByType: map[domain.TxType]domain.TypeStats{
			domain.TxTypePix: {Count: 2, TotalAmount: decimal.RequireFromString("30.10"), AverageAmount: decimal.RequireFromString("15.05")},
		},
		TopAccounts: []domain.AccountStats{
			{AccountID: "acc-1", TransactionCount: 2, TotalAmount: decimal.RequireFromString("30.10")},
		},
		PixStats: domain.PixStats{
			TotalPixTransactions: 2,
			TotalPixAmount:       decimal.RequireFromString("30.10"),
			PixByKeyType:         map[domain.PixKeyType]int64{domain.PixKeyPhone: 2},
		},
		GeneratedAt: time.Date(2099, 1, 1, 1, 5, 0, 0, time.UTC),
	}

	require.NoError(t, repo.Deliver(ctx, summary))

	// redelivery replaces the child rows
	summary.TopAccounts = nil
	require.NoError(t, repo.Deliver(ctx, summary))

	var total decimal.Decimal
	require.NoError(t, pool.QueryRow(ctx, "SELECT total_amount FROM period_summaries WHERE period = $1", period).Scan(&total))
	assert.True(t, decimal.RequireFromString("30.10").Equal(total))

	var accounts, keyCounts int
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM period_top_accounts WHERE period = $1", period).Scan(&accounts))
	require.NoError(t, pool.QueryRow(ctx, "SELECT COUNT(*) FROM period_pix_key_counts WHERE period = $1", period).Scan(&keyCounts))
	assert.Zero(t, accounts)
	assert.Equal(t, 1, keyCounts)
}
