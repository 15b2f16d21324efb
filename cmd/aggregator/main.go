package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	txrollup "github.com/set-night/txrollup"
	"github.com/set-night/txrollup/internal/api"
	"github.com/set-night/txrollup/internal/config"
	"github.com/set-night/txrollup/internal/flags"
	"github.com/set-night/txrollup/internal/ingest"
	"github.com/set-night/txrollup/internal/metrics"
	"github.com/set-night/txrollup/internal/middleware"
	"github.com/set-night/txrollup/internal/repository"
	"github.com/set-night/txrollup/internal/scheduler"
	"github.com/set-night/txrollup/internal/service"
	"github.com/set-night/txrollup/internal/sink"
	"github.com/set-night/txrollup/internal/telegram"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Setup structured logging
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("failed to load period timezone", "error", err)
		os.Exit(1)
	}

	// Setup context with graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var awsCfg aws.Config
	if cfg.ReportsBucket != "" || cfg.SummaryTable != "" || cfg.StrictValidation {
		awsCfg, err = sink.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			slog.Error("failed to load aws config", "error", err)
			os.Exit(1)
		}
	}

	// Report sinks
	var sinks []sink.Named
	if cfg.ReportsBucket != "" {
		sinks = append(sinks, sink.NewS3Reports(sink.NewS3Client(awsCfg, cfg.AWSEndpoint), cfg.ReportsBucket, loc))
	}
	if cfg.SummaryTable != "" {
		sinks = append(sinks, sink.NewDynamoSummaries(sink.NewDynamoDBClient(awsCfg), cfg.SummaryTable))
	}
	if cfg.DatabaseURL != "" {
		pool, err := connectDatabase(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to prepare database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		sinks = append(sinks, repository.NewSummaryRepository(pool))
	}
	fanout := sink.NewFanout(config.SinkTimeout, sinks...)
	slog.Info("report sinks configured", "count", fanout.Len())

	// Aggregation core
	meters := metrics.New()
	clock := service.NewClock(loc)
	aggregator := service.NewAggregatorService(service.NewPeriodBuffer(clock), clock, fanout, meters)

	var validator *ingest.Validator
	if cfg.StrictValidation {
		validator = ingest.NewValidator(flags.NewStore(ssm.NewFromConfig(awsCfg), cfg.ProjectName, cfg.FeatureFlagTTL))
	}
	processor := ingest.NewProcessor(ingest.NewDecoder(loc), validator, aggregator)

	// Operator notifications
	var notifier scheduler.Notifier
	if cfg.TelegramEnabled() {
		b, err := bot.New(cfg.TelegramBotToken)
		if err != nil {
			slog.Error("failed to create telegram bot", "error", err)
			os.Exit(1)
		}
		notifier = telegram.NewNotifier(b, cfg)
	}

	sched, err := scheduler.New(aggregator, notifier, scheduler.Options{
		FlushSpec:      cfg.FlushCron,
		Location:       loc,
		StatusInterval: cfg.StatusInterval,
		Backlog:        cfg.FlushBacklog,
	})
	if err != nil {
		slog.Error("failed to create scheduler", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(aggregator, processor, loc, meters.Handler()),
		ReadTimeout:  config.HTTPReadTimeout,
		WriteTimeout: config.HTTPWriteTimeout,
		IdleTimeout:  config.HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return sched.Run(gctx)
	})

	if cfg.KafkaEnabled() {
		consumer := ingest.NewConsumer(ingest.NewKafkaReaderFactory(cfg), cfg.KafkaWorkers, processor,
			middleware.Recover(),
			middleware.Logging(),
		)
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	} else {
		slog.Warn("KAFKA_BROKERS not set, only http ingestion is available")
	}

	g.Go(func() error {
		slog.Info("starting http server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.HTTPShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("aggregator stopped with error", "error", err)
		os.Exit(1)
	}

	occupancy := aggregator.ReportOccupancy()
	if len(occupancy) > 0 {
		slog.Warn("unflushed periods discarded on shutdown", "periods", occupancy)
	}
	slog.Info("aggregator stopped gracefully")
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

func connectDatabase(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	migrationsFS, err := fs.Sub(txrollup.MigrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, err
	}
	if err := repository.RunMigrations(databaseURL, migrationsFS); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
