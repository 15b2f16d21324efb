package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/set-night/txrollup/internal/domain"
)

// PutObjectAPI is the part of *s3.Client the report writer uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Reports writes each summary as a JSON report with two CSV companions
// under reports/YYYY/MM/DD/HH/. Only the JSON write decides success.
type S3Reports struct {
	client PutObjectAPI
	bucket string
	loc    *time.Location
}

func NewS3Reports(client PutObjectAPI, bucket string, loc *time.Location) *S3Reports {
	if loc == nil {
		loc = time.UTC
	}
	return &S3Reports{client: client, bucket: bucket, loc: loc}
}

func (r *S3Reports) Name() string { return "s3" }

// Prefix is the key folder for reports written at t.
func (r *S3Reports) Prefix(t time.Time) string {
	return "reports/" + t.In(r.loc).Format("2006/01/02/15") + "/"
}

func (r *S3Reports) Deliver(ctx context.Context, summary domain.Summary) error {
	body, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	prefix := r.Prefix(summary.GeneratedAt)
	runID := uuid.NewString()

	key := prefix + "transaction-summary-" + summary.Period + ".json"
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"report-type":        "transaction-summary",
			"period":             summary.Period,
			"generated-at":       summary.GeneratedAt.Format(time.RFC3339),
			"total-transactions": strconv.FormatInt(summary.TotalTransactions, 10),
			"total-amount":       summary.TotalAmount.String(),
			"run-id":             runID,
		},
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	slog.Info("saved report to s3", "period", summary.Period, "bucket", r.bucket, "key", key)

	r.putCSV(ctx, prefix+"transaction-summary-"+summary.Period+".csv", runID, summary, SummaryCSV)
	r.putCSV(ctx, prefix+"top-accounts-"+summary.Period+".csv", runID, summary, TopAccountsCSV)
	return nil
}

func (r *S3Reports) putCSV(ctx context.Context, key, runID string, summary domain.Summary, render func(domain.Summary) ([]byte, error)) {
	body, err := render(summary)
	if err != nil {
		slog.Error("failed to render csv report", "period", summary.Period, "key", key, "error", err)
		return
	}

	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("text/csv"),
		Metadata:    map[string]string{"run-id": runID},
	})
	if err != nil {
		slog.Error("failed to save csv report", "period", summary.Period, "key", key, "error", err)
		return
	}
	slog.Info("saved csv report to s3", "period", summary.Period, "key", key)
}
