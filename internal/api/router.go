package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/set-night/txrollup/internal/domain"
	"github.com/set-night/txrollup/internal/service"
)

// Aggregator is the part of the aggregator service the admin API exposes.
type Aggregator interface {
	Summarize(period string) (domain.Summary, bool)
	RunFlushCycle(ctx context.Context) (service.FlushResult, error)
	FlushPeriod(ctx context.Context, period string) (service.FlushResult, error)
	ReportOccupancy() map[string]int
	CurrentPeriodKey() string
	PreviousPeriodKey() string
}

// Ingester accepts one wire-format transaction.
type Ingester interface {
	Process(ctx context.Context, data []byte) (domain.Transaction, error)
}

// NewRouter wires the admin and ingestion routes. Period keys in paths are
// read in loc. metrics is served at /metrics when non-nil.
func NewRouter(agg Aggregator, ingester Ingester, loc *time.Location, metrics http.Handler) http.Handler {
	if loc == nil {
		loc = time.UTC
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := &Handler{agg: agg, ingester: ingester, loc: loc}

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/system/health", h.Health)

		r.Get("/buffer", h.Buffer)
		r.Post("/flush", h.Flush)

		r.Route("/periods/{period}", func(r chi.Router) {
			r.Get("/summary", h.PeriodSummary)
			r.Post("/flush", h.FlushPeriod)
		})

		r.Post("/transactions", h.IngestTransaction)
	})

	return r
}
