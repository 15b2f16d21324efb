package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var generatedAt = time.Date(2024, 3, 15, 15, 5, 0, 0, time.UTC)

func TestCalculateSummary(t *testing.T) {
	t.Run("empty input is absent", func(t *testing.T) {
		_, ok := CalculateSummary("2024-03-15-14", nil, generatedAt)
		assert.False(t, ok)

		_, ok = CalculateSummary("2024-03-15-14", []domain.Transaction{}, generatedAt)
		assert.False(t, ok)
	})

	t.Run("totals and per type stats", func(t *testing.T) {
		txs := []domain.Transaction{
			newPixTx("1", "acc-1", "100.00", domain.PixKeyCPF),
			newTx("2", "acc-2", "500.00", domain.TxTypeTED),
		}

		s, ok := CalculateSummary("2024-03-15-14", txs, generatedAt)
		require.True(t, ok)

		assert.Equal(t, "2024-03-15-14", s.Period)
		assert.Equal(t, int64(2), s.TotalTransactions)
		assert.True(t, dec("600.00").Equal(s.TotalAmount), s.TotalAmount.String())
		assert.Equal(t, generatedAt, s.GeneratedAt)

		require.Len(t, s.TransactionsByType, 2)
		pix := s.TransactionsByType[domain.TxTypePix]
		assert.Equal(t, int64(1), pix.Count)
		assert.True(t, dec("100.00").Equal(pix.TotalAmount))
		assert.True(t, dec("100.00").Equal(pix.AverageAmount))
		ted := s.TransactionsByType[domain.TxTypeTED]
		assert.Equal(t, int64(1), ted.Count)
		assert.True(t, dec("500.00").Equal(ted.TotalAmount))
		assert.True(t, dec("500.00").Equal(ted.AverageAmount))

		_, hasDOC := s.TransactionsByType[domain.TxTypeDOC]
		assert.False(t, hasDOC)
	})

	t.Run("average rounds half up to two places", func(t *testing.T) {
		tests := []struct {
			amounts []string
			want    string
		}{
			{[]string{"10.00", "10.01"}, "10.01"},       // 10.005
			{[]string{"10.00", "10.00", "10.01"}, "10"}, // 10.00333
			{[]string{"0.01", "0.02"}, "0.02"},          // 0.015
			{[]string{"1", "1", "2"}, "1.33"},
			{[]string{"2", "2", "1"}, "1.67"},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprint(tt.amounts), func(t *testing.T) {
				var txs []domain.Transaction
				for i, a := range tt.amounts {
					txs = append(txs, newTx(fmt.Sprint(i), "acc", a, domain.TxTypeDOC))
				}
				s, ok := CalculateSummary("p", txs, generatedAt)
				require.True(t, ok)
				got := s.TransactionsByType[domain.TxTypeDOC].AverageAmount
				assert.True(t, dec(tt.want).Equal(got), "got %s want %s", got, tt.want)
			})
		}
	})

	t.Run("no precision lost in sums", func(t *testing.T) {
		var txs []domain.Transaction
		for i := 0; i < 1000; i++ {
			txs = append(txs, newTx(fmt.Sprint(i), "acc", "0.10", domain.TxTypeCredit))
		}
		s, ok := CalculateSummary("p", txs, generatedAt)
		require.True(t, ok)
		assert.True(t, dec("100").Equal(s.TotalAmount))
	})

	t.Run("top accounts ranked by total", func(t *testing.T) {
		txs := []domain.Transaction{
			newTx("1", "A", "1000.00", domain.TxTypeTED),
			newTx("2", "B", "2000.00", domain.TxTypeDOC),
			newTx("3", "A", "500.00", domain.TxTypePix),
		}
		s, ok := CalculateSummary("p", txs, generatedAt)
		require.True(t, ok)

		require.Len(t, s.TopAccounts, 2)
		assert.Equal(t, "B", s.TopAccounts[0].AccountID)
		assert.True(t, dec("2000.00").Equal(s.TopAccounts[0].TotalAmount))
		assert.Equal(t, int64(1), s.TopAccounts[0].TransactionCount)
		assert.Equal(t, "A", s.TopAccounts[1].AccountID)
		assert.True(t, dec("1500.00").Equal(s.TopAccounts[1].TotalAmount))
		assert.Equal(t, int64(2), s.TopAccounts[1].TransactionCount)
	})

	t.Run("top accounts capped at ten with first seen tie break", func(t *testing.T) {
		var txs []domain.Transaction
		for i := 0; i < 15; i++ {
			txs = append(txs, newTx(fmt.Sprint(i), fmt.Sprintf("acc-%02d", i), "50.00", domain.TxTypeCredit))
		}
		txs = append(txs, newTx("big", "acc-14", "1.00", domain.TxTypeCredit))

		s, ok := CalculateSummary("p", txs, generatedAt)
		require.True(t, ok)

		require.Len(t, s.TopAccounts, TopAccountsLimit)
		assert.Equal(t, "acc-14", s.TopAccounts[0].AccountID)
		for i := 1; i < TopAccountsLimit; i++ {
			assert.Equal(t, fmt.Sprintf("acc-%02d", i-1), s.TopAccounts[i].AccountID)
		}
	})

	t.Run("pix stats by key type", func(t *testing.T) {
		txs := []domain.Transaction{
			newPixTx("1", "A", "10.00", domain.PixKeyCPF),
			newPixTx("2", "B", "20.00", domain.PixKeyCPF),
			newPixTx("3", "C", "30.00", domain.PixKeyEmail),
			newTx("4", "D", "40.00", domain.TxTypeTED),
		}
		s, ok := CalculateSummary("p", txs, generatedAt)
		require.True(t, ok)

		assert.Equal(t, int64(3), s.PixStats.TotalPixTransactions)
		assert.True(t, dec("60.00").Equal(s.PixStats.TotalPixAmount))
		assert.Equal(t, map[domain.PixKeyType]int64{
			domain.PixKeyCPF:   2,
			domain.PixKeyEmail: 1,
		}, s.PixStats.PixByKeyType)
	})

	t.Run("pix without key type counted in totals only", func(t *testing.T) {
		noData := newTx("1", "A", "10.00", domain.TxTypePix)
		noKeyType := newPixTx("2", "B", "15.00", "")
		withKey := newPixTx("3", "C", "5.00", domain.PixKeyPhone)

		s, ok := CalculateSummary("p", []domain.Transaction{noData, noKeyType, withKey}, generatedAt)
		require.True(t, ok)

		assert.Equal(t, int64(3), s.PixStats.TotalPixTransactions)
		assert.True(t, dec("30.00").Equal(s.PixStats.TotalPixAmount))
		assert.Equal(t, map[domain.PixKeyType]int64{domain.PixKeyPhone: 1}, s.PixStats.PixByKeyType)
	})

	t.Run("no pix transactions", func(t *testing.T) {
		s, ok := CalculateSummary("p", []domain.Transaction{newTx("1", "A", "1.00", domain.TxTypeDebit)}, generatedAt)
		require.True(t, ok)
		assert.Zero(t, s.PixStats.TotalPixTransactions)
		assert.True(t, s.PixStats.TotalPixAmount.IsZero())
		assert.Empty(t, s.PixStats.PixByKeyType)
	})

	t.Run("duplicates are counted twice", func(t *testing.T) {
		tx := newTx("dup", "A", "7.00", domain.TxTypeDOC)
		s, ok := CalculateSummary("p", []domain.Transaction{tx, tx}, generatedAt)
		require.True(t, ok)
		assert.Equal(t, int64(2), s.TotalTransactions)
		assert.True(t, dec("14.00").Equal(s.TotalAmount))
	})
}

func TestCalculateSummaryInvariants(t *testing.T) {
	types := domain.TxTypes
	keyTypes := append([]domain.PixKeyType{""}, domain.PixKeyTypes...)

	var txs []domain.Transaction
	for i := 0; i < 300; i++ {
		typ := types[i%len(types)]
		account := fmt.Sprintf("acc-%d", i%23)
		amount := decimal.New(int64(i*37%10007+1), -2).String()
		if typ == domain.TxTypePix && i%7 == 0 {
			txs = append(txs, newTx(fmt.Sprint(i), account, amount, typ))
			continue
		}
		if typ == domain.TxTypePix {
			txs = append(txs, newPixTx(fmt.Sprint(i), account, amount, keyTypes[i%len(keyTypes)]))
			continue
		}
		txs = append(txs, newTx(fmt.Sprint(i), account, amount, typ))
	}

	s, ok := CalculateSummary("p", txs, generatedAt)
	require.True(t, ok)

	var count int64
	sum := decimal.Zero
	for _, st := range s.TransactionsByType {
		count += st.Count
		sum = sum.Add(st.TotalAmount)
	}
	assert.Equal(t, s.TotalTransactions, count)
	assert.True(t, s.TotalAmount.Equal(sum))

	assert.LessOrEqual(t, len(s.TopAccounts), TopAccountsLimit)
	assert.LessOrEqual(t, len(s.TopAccounts), 23)
	for i := 1; i < len(s.TopAccounts); i++ {
		assert.True(t, s.TopAccounts[i-1].TotalAmount.GreaterThanOrEqual(s.TopAccounts[i].TotalAmount))
	}

	var pixCount int64
	for _, tx := range txs {
		if tx.Type == domain.TxTypePix {
			pixCount++
		}
	}
	assert.Equal(t, pixCount, s.PixStats.TotalPixTransactions)
	var keyed int64
	for _, n := range s.PixStats.PixByKeyType {
		keyed += n
	}
	assert.Less(t, keyed, s.PixStats.TotalPixTransactions)

	again, ok := CalculateSummary("p", txs, generatedAt.Add(time.Minute))
	require.True(t, ok)
	again.GeneratedAt = s.GeneratedAt
	assert.Equal(t, s, again)
}
