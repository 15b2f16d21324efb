package domain

import "errors"

var (
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrUnknownTxType      = errors.New("unknown transaction type")
	ErrUnknownPixKeyType  = errors.New("unknown pix key type")
	ErrPixDisabled        = errors.New("pix transactions are disabled")
	ErrInvalidPeriod      = errors.New("invalid period key")
	ErrEmptyPeriod        = errors.New("no transactions buffered for period")
	ErrSinkDelivery       = errors.New("report sink delivery failed")
	ErrNoSinks            = errors.New("no report sinks configured")
)
