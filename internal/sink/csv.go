package sink

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/set-night/txrollup/internal/domain"
)

// SummaryCSV renders a summary as metric,value rows.
func SummaryCSV(s domain.Summary) ([]byte, error) {
	rows := [][]string{
		{"metric", "value"},
		{"period", s.Period},
		{"total_transactions", strconv.FormatInt(s.TotalTransactions, 10)},
		{"total_amount", s.TotalAmount.String()},
		{"generated_at", s.GeneratedAt.Format(time.RFC3339)},
	}

	for _, t := range domain.TxTypes {
		stats, ok := s.TransactionsByType[t]
		if !ok {
			continue
		}
		name := strings.ToLower(string(t))
		rows = append(rows,
			[]string{name + "_count", strconv.FormatInt(stats.Count, 10)},
			[]string{name + "_amount", stats.TotalAmount.String()},
			[]string{name + "_average", stats.AverageAmount.String()},
		)
	}

	rows = append(rows,
		[]string{"pix_total_transactions", strconv.FormatInt(s.PixStats.TotalPixTransactions, 10)},
		[]string{"pix_total_amount", s.PixStats.TotalPixAmount.String()},
	)
	for _, k := range domain.PixKeyTypes {
		count, ok := s.PixStats.PixByKeyType[k]
		if !ok {
			continue
		}
		rows = append(rows, []string{"pix_" + strings.ToLower(string(k)) + "_count", strconv.FormatInt(count, 10)})
	}

	return writeCSV(rows)
}

// TopAccountsCSV renders the ranked accounts of a summary.
func TopAccountsCSV(s domain.Summary) ([]byte, error) {
	rows := [][]string{{"account_id", "transaction_count", "total_amount"}}
	for _, a := range s.TopAccounts {
		rows = append(rows, []string{a.AccountID, strconv.FormatInt(a.TransactionCount, 10), a.TotalAmount.String()})
	}
	return writeCSV(rows)
}

func writeCSV(rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return nil, fmt.Errorf("write csv: %w", err)
	}
	return buf.Bytes(), nil
}
