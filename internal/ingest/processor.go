package ingest

import (
	"context"

	"github.com/set-night/txrollup/internal/domain"
)

// Inserter receives every accepted transaction exactly once.
type Inserter interface {
	Insert(tx domain.Transaction)
}

// Processor decodes, validates and inserts one wire message. It is shared by
// the Kafka consumer and the HTTP ingestion endpoint.
type Processor struct {
	decoder   *Decoder
	validator *Validator
	target    Inserter
}

// NewProcessor builds a Processor. validator may be nil.
func NewProcessor(decoder *Decoder, validator *Validator, target Inserter) *Processor {
	return &Processor{decoder: decoder, validator: validator, target: target}
}

func (p *Processor) Process(ctx context.Context, data []byte) (domain.Transaction, error) {
	tx, err := p.decoder.Decode(data)
	if err != nil {
		return domain.Transaction{}, err
	}
	if p.validator != nil {
		if err := p.validator.Validate(ctx, tx); err != nil {
			return domain.Transaction{}, err
		}
	}
	p.target.Insert(tx)
	return tx, nil
}
