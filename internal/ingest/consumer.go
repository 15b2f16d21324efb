package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/set-night/txrollup/internal/config"
	"golang.org/x/sync/errgroup"
)

// HandlerFunc handles one Kafka message.
type HandlerFunc func(ctx context.Context, msg kafka.Message) error

// Middleware wraps a HandlerFunc.
type Middleware func(next HandlerFunc) HandlerFunc

// Reader is the part of *kafka.Reader the consumer uses.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer runs a pool of group readers. Each message is committed after it
// is handled, whether or not handling succeeded, so a poison message never
// blocks its partition.
type Consumer struct {
	newReader  func() Reader
	workers    int
	handler    HandlerFunc
	retryDelay time.Duration
}

func NewConsumer(newReader func() Reader, workers int, processor *Processor, middlewares ...Middleware) *Consumer {
	handler := func(ctx context.Context, msg kafka.Message) error {
		_, err := processor.Process(ctx, msg.Value)
		return err
	}
	// first middleware is outermost
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	if workers < 1 {
		workers = 1
	}
	return &Consumer{
		newReader:  newReader,
		workers:    workers,
		handler:    handler,
		retryDelay: config.KafkaRetryDelay,
	}
}

// NewKafkaReaderFactory returns a constructor for group readers on cfg's topic.
func NewKafkaReaderFactory(cfg *config.Config) func() Reader {
	return func() Reader {
		return kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.KafkaBrokers,
			GroupID:     cfg.KafkaGroupID,
			Topic:       cfg.KafkaTopic,
			MinBytes:    config.KafkaMinBytes,
			MaxBytes:    config.KafkaMaxBytes,
			MaxWait:     config.KafkaMaxWait,
			StartOffset: kafka.FirstOffset,
		})
	}
}

// Run blocks until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		worker := i
		g.Go(func() error {
			return c.work(ctx, worker)
		})
	}
	slog.Info("kafka consumer started", "workers", c.workers)
	return g.Wait()
}

func (c *Consumer) work(ctx context.Context, worker int) error {
	r := c.newReader()
	defer func() {
		if err := r.Close(); err != nil {
			slog.Error("close kafka reader", "worker", worker, "error", err)
		}
	}()

	for {
		msg, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("fetch kafka message", "worker", worker, "error", err)
			if !c.sleep(ctx) {
				return nil
			}
			continue
		}

		if err := c.handler(ctx, msg); err != nil {
			slog.Error("failed to process message for aggregation",
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}

		if err := r.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("commit kafka message", "worker", worker, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) sleep(ctx context.Context) bool {
	t := time.NewTimer(c.retryDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
