package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Summary is the rollup of one period. Every field except GeneratedAt is a
// pure function of the transactions it was computed from.
type Summary struct {
	Period             string               `json:"period"`
	TotalTransactions  int64                `json:"totalTransactions"`
	TotalAmount        decimal.Decimal      `json:"totalAmount"`
	TransactionsByType map[TxType]TypeStats `json:"transactionsByType"`
	TopAccounts        []AccountStats       `json:"topAccounts"`
	PixStats           PixStats             `json:"pixStats"`
	GeneratedAt        time.Time            `json:"generatedAt"`
}

type TypeStats struct {
	Count         int64           `json:"count"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	AverageAmount decimal.Decimal `json:"averageAmount"`
}

type AccountStats struct {
	AccountID        string          `json:"accountId"`
	TransactionCount int64           `json:"transactionCount"`
	TotalAmount      decimal.Decimal `json:"totalAmount"`
}

type PixStats struct {
	TotalPixTransactions int64                `json:"totalPixTransactions"`
	TotalPixAmount       decimal.Decimal      `json:"totalPixAmount"`
	PixByKeyType         map[PixKeyType]int64 `json:"pixByKeyType"`
}
