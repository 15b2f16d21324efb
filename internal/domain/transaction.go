package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxType string

const (
	TxTypePix    TxType = "PIX"
	TxTypeTED    TxType = "TED"
	TxTypeDOC    TxType = "DOC"
	TxTypeCredit TxType = "CREDIT"
	TxTypeDebit  TxType = "DEBIT"
)

// TxTypes lists every transaction type in report order.
var TxTypes = []TxType{TxTypePix, TxTypeTED, TxTypeDOC, TxTypeCredit, TxTypeDebit}

func (t TxType) Valid() bool {
	switch t {
	case TxTypePix, TxTypeTED, TxTypeDOC, TxTypeCredit, TxTypeDebit:
		return true
	default:
		return false
	}
}

func ParseTxType(s string) (TxType, error) {
	t := TxType(s)
	if !t.Valid() {
		return "", ErrUnknownTxType
	}
	return t, nil
}

type PixKeyType string

const (
	PixKeyCPF    PixKeyType = "CPF"
	PixKeyCNPJ   PixKeyType = "CNPJ"
	PixKeyEmail  PixKeyType = "EMAIL"
	PixKeyPhone  PixKeyType = "PHONE"
	PixKeyRandom PixKeyType = "RANDOM"
)

// PixKeyTypes lists every PIX key type in report order.
var PixKeyTypes = []PixKeyType{PixKeyCPF, PixKeyCNPJ, PixKeyEmail, PixKeyPhone, PixKeyRandom}

func (k PixKeyType) Valid() bool {
	switch k {
	case PixKeyCPF, PixKeyCNPJ, PixKeyEmail, PixKeyPhone, PixKeyRandom:
		return true
	default:
		return false
	}
}

func ParsePixKeyType(s string) (PixKeyType, error) {
	k := PixKeyType(s)
	if !k.Valid() {
		return "", ErrUnknownPixKeyType
	}
	return k, nil
}

type PixData struct {
	PixKey     string     `json:"pixKey"`
	PixKeyType PixKeyType `json:"pixKeyType,omitempty"`
	EndToEndID string     `json:"endToEndId"`
}

// Transaction is one observed financial event. Timestamp is informational;
// the period a transaction is aggregated under is decided at insertion time.
type Transaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	PixData     *PixData        `json:"pixData,omitempty"`
}
