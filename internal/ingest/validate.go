package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
)

// MaxAmount is the largest single transaction accepted under strict validation.
var MaxAmount = decimal.NewFromInt(100000)

// FlagSource reports remotely managed feature flags.
type FlagSource interface {
	PixEnabled(ctx context.Context) bool
}

// Validator applies the business rules upstream producers enforce. It is
// optional: without it only structurally valid messages are required.
type Validator struct {
	flags FlagSource
}

func NewValidator(flags FlagSource) *Validator {
	return &Validator{flags: flags}
}

func (v *Validator) Validate(ctx context.Context, tx domain.Transaction) error {
	var problems []string

	if !tx.Amount.IsPositive() {
		problems = append(problems, "amount must be greater than zero")
	}
	if tx.Amount.GreaterThan(MaxAmount) {
		problems = append(problems, "amount exceeds maximum limit")
	}
	if strings.TrimSpace(tx.AccountID) == "" {
		problems = append(problems, "account id cannot be blank")
	}

	if tx.Type == domain.TxTypePix {
		if v.flags != nil && !v.flags.PixEnabled(ctx) {
			slog.Warn("transaction validation failed", "id", tx.ID, "error", domain.ErrPixDisabled)
			return fmt.Errorf("%w: %w", domain.ErrInvalidTransaction, domain.ErrPixDisabled)
		}
		switch {
		case tx.PixData == nil:
			problems = append(problems, "pix data is required for pix transactions")
		default:
			if strings.TrimSpace(tx.PixData.PixKey) == "" {
				problems = append(problems, "pix key cannot be blank")
			}
			if strings.TrimSpace(tx.PixData.EndToEndID) == "" {
				problems = append(problems, "end-to-end id cannot be blank")
			}
		}
	}

	if len(problems) > 0 {
		slog.Warn("transaction validation failed", "id", tx.ID, "problems", problems)
		return fmt.Errorf("%w: %s", domain.ErrInvalidTransaction, strings.Join(problems, "; "))
	}
	return nil
}
