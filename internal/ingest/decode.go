package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/set-night/txrollup/internal/domain"
	"github.com/shopspring/decimal"
)

// timestampLayouts are tried in order. The first is the zone-less form the
// upstream producer emits.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

type wirePixData struct {
	PixKey     string `json:"pixKey"`
	PixKeyType string `json:"pixKeyType"`
	EndToEndID string `json:"endToEndId"`
}

type wireTransaction struct {
	ID          string           `json:"id"`
	AccountID   string           `json:"accountId"`
	Amount      *decimal.Decimal `json:"amount"`
	Type        string           `json:"type"`
	Description string           `json:"description"`
	Timestamp   string           `json:"timestamp"`
	PixData     *wirePixData     `json:"pixData"`
}

// Decoder turns wire messages into transactions. Zone-less timestamps are
// read in loc.
type Decoder struct {
	loc *time.Location
}

func NewDecoder(loc *time.Location) *Decoder {
	if loc == nil {
		loc = time.UTC
	}
	return &Decoder{loc: loc}
}

// Decode parses one message. Every error wraps domain.ErrInvalidTransaction.
func (d *Decoder) Decode(data []byte) (domain.Transaction, error) {
	var w wireTransaction
	if err := json.Unmarshal(data, &w); err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: decode json: %v", domain.ErrInvalidTransaction, err)
	}

	var missing []string
	if strings.TrimSpace(w.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(w.AccountID) == "" {
		missing = append(missing, "accountId")
	}
	if w.Amount == nil {
		missing = append(missing, "amount")
	}
	if w.Type == "" {
		missing = append(missing, "type")
	}
	if w.Timestamp == "" {
		missing = append(missing, "timestamp")
	}
	if len(missing) > 0 {
		return domain.Transaction{}, fmt.Errorf("%w: missing %s", domain.ErrInvalidTransaction, strings.Join(missing, ", "))
	}

	txType, err := domain.ParseTxType(strings.ToUpper(w.Type))
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: %w %q", domain.ErrInvalidTransaction, err, w.Type)
	}

	ts, err := d.parseTimestamp(w.Timestamp)
	if err != nil {
		return domain.Transaction{}, err
	}

	tx := domain.Transaction{
		ID:          w.ID,
		AccountID:   w.AccountID,
		Amount:      *w.Amount,
		Type:        txType,
		Description: w.Description,
		Timestamp:   ts,
	}

	if w.PixData != nil {
		pix := &domain.PixData{
			PixKey:     w.PixData.PixKey,
			EndToEndID: w.PixData.EndToEndID,
		}
		if w.PixData.PixKeyType != "" {
			keyType, err := domain.ParsePixKeyType(strings.ToUpper(w.PixData.PixKeyType))
			if err != nil {
				return domain.Transaction{}, fmt.Errorf("%w: %w %q", domain.ErrInvalidTransaction, err, w.PixData.PixKeyType)
			}
			pix.PixKeyType = keyType
		}
		tx.PixData = pix
	}

	return tx, nil
}

func (d *Decoder) parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, d.loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bad timestamp %q", domain.ErrInvalidTransaction, s)
}
