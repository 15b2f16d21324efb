package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/set-night/txrollup/internal/domain"
)

// PutItemAPI is the part of *dynamodb.Client the summary table writer uses.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Amounts are stored as strings so no precision is lost to DynamoDB numbers.
type summaryItem struct {
	Period             string                   `dynamodbav:"period"`
	TotalTransactions  int64                    `dynamodbav:"totalTransactions"`
	TotalAmount        string                   `dynamodbav:"totalAmount"`
	TransactionsByType map[string]typeStatsItem `dynamodbav:"transactionsByType"`
	TopAccounts        []accountItem            `dynamodbav:"topAccounts"`
	PixTransactions    int64                    `dynamodbav:"pixTransactions"`
	PixAmount          string                   `dynamodbav:"pixAmount"`
	PixByKeyType       map[string]int64         `dynamodbav:"pixByKeyType"`
	GeneratedAt        string                   `dynamodbav:"generatedAt"`
}

type typeStatsItem struct {
	Count         int64  `dynamodbav:"count"`
	TotalAmount   string `dynamodbav:"totalAmount"`
	AverageAmount string `dynamodbav:"averageAmount"`
}

type accountItem struct {
	AccountID        string `dynamodbav:"accountId"`
	TransactionCount int64  `dynamodbav:"transactionCount"`
	TotalAmount      string `dynamodbav:"totalAmount"`
}

func newSummaryItem(s domain.Summary) summaryItem {
	item := summaryItem{
		Period:             s.Period,
		TotalTransactions:  s.TotalTransactions,
		TotalAmount:        s.TotalAmount.String(),
		TransactionsByType: make(map[string]typeStatsItem, len(s.TransactionsByType)),
		TopAccounts:        make([]accountItem, 0, len(s.TopAccounts)),
		PixTransactions:    s.PixStats.TotalPixTransactions,
		PixAmount:          s.PixStats.TotalPixAmount.String(),
		PixByKeyType:       make(map[string]int64, len(s.PixStats.PixByKeyType)),
		GeneratedAt:        s.GeneratedAt.Format(time.RFC3339Nano),
	}
	for t, stats := range s.TransactionsByType {
		item.TransactionsByType[string(t)] = typeStatsItem{
			Count:         stats.Count,
			TotalAmount:   stats.TotalAmount.String(),
			AverageAmount: stats.AverageAmount.String(),
		}
	}
	for _, a := range s.TopAccounts {
		item.TopAccounts = append(item.TopAccounts, accountItem{
			AccountID:        a.AccountID,
			TransactionCount: a.TransactionCount,
			TotalAmount:      a.TotalAmount.String(),
		})
	}
	for k, n := range s.PixStats.PixByKeyType {
		item.PixByKeyType[string(k)] = n
	}
	return item
}

// DynamoSummaries keeps one item per period, keyed by the period string.
// Delivering the same period again overwrites the item.
type DynamoSummaries struct {
	client PutItemAPI
	table  string
}

func NewDynamoSummaries(client PutItemAPI, table string) *DynamoSummaries {
	return &DynamoSummaries{client: client, table: table}
}

func (d *DynamoSummaries) Name() string { return "dynamodb" }

func (d *DynamoSummaries) Deliver(ctx context.Context, summary domain.Summary) error {
	av, err := attributevalue.MarshalMap(newSummaryItem(summary))
	if err != nil {
		return fmt.Errorf("marshal summary item: %w", err)
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.table),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put summary item: %w", err)
	}

	slog.Info("saved summary to dynamodb", "period", summary.Period, "table", d.table)
	return nil
}
