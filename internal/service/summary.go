package service

import (
	"sort"
	"time"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	// TopAccountsLimit caps Summary.TopAccounts.
	TopAccountsLimit = 10

	averagePlaces = 2
)

// CalculateSummary rolls txs up into a Summary for period. It returns false
// when txs is empty; callers must treat that as "no data" rather than a
// zero-valued summary.
func CalculateSummary(period string, txs []domain.Transaction, generatedAt time.Time) (domain.Summary, bool) {
	if len(txs) == 0 {
		return domain.Summary{}, false
	}

	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}

	return domain.Summary{
		Period:             period,
		TotalTransactions:  int64(len(txs)),
		TotalAmount:        total,
		TransactionsByType: statsByType(txs),
		TopAccounts:        topAccounts(txs, TopAccountsLimit),
		PixStats:           pixStats(txs),
		GeneratedAt:        generatedAt,
	}, true
}

// statsByType only reports types that were observed.
func statsByType(txs []domain.Transaction) map[domain.TxType]domain.TypeStats {
	counts := make(map[domain.TxType]int64)
	sums := make(map[domain.TxType]decimal.Decimal)
	for _, tx := range txs {
		counts[tx.Type]++
		sums[tx.Type] = sums[tx.Type].Add(tx.Amount)
	}

	out := make(map[domain.TxType]domain.TypeStats, len(counts))
	for t, n := range counts {
		out[t] = domain.TypeStats{
			Count:         n,
			TotalAmount:   sums[t],
			AverageAmount: average(sums[t], n),
		}
	}
	return out
}

// average rounds half away from zero to two places, which is half-up for
// the positive amounts seen in practice.
func average(sum decimal.Decimal, count int64) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(count), averagePlaces)
}

// topAccounts ranks accounts by total amount, descending. Accounts with equal
// totals keep the order in which they first appear in txs.
func topAccounts(txs []domain.Transaction, limit int) []domain.AccountStats {
	index := make(map[string]int)
	var accounts []domain.AccountStats
	for _, tx := range txs {
		i, ok := index[tx.AccountID]
		if !ok {
			i = len(accounts)
			index[tx.AccountID] = i
			accounts = append(accounts, domain.AccountStats{AccountID: tx.AccountID, TotalAmount: decimal.Zero})
		}
		accounts[i].TransactionCount++
		accounts[i].TotalAmount = accounts[i].TotalAmount.Add(tx.Amount)
	}

	sort.SliceStable(accounts, func(a, b int) bool {
		return accounts[a].TotalAmount.GreaterThan(accounts[b].TotalAmount)
	})
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts
}

// pixStats counts every PIX transaction in the totals, but only those with a
// known key type in PixByKeyType.
func pixStats(txs []domain.Transaction) domain.PixStats {
	stats := domain.PixStats{
		TotalPixAmount: decimal.Zero,
		PixByKeyType:   make(map[domain.PixKeyType]int64),
	}
	for _, tx := range txs {
		if tx.Type != domain.TxTypePix {
			continue
		}
		stats.TotalPixTransactions++
		stats.TotalPixAmount = stats.TotalPixAmount.Add(tx.Amount)
		if tx.PixData != nil && tx.PixData.PixKeyType.Valid() {
			stats.PixByKeyType[tx.PixData.PixKeyType]++
		}
	}
	return stats
}
