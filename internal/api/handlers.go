package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/set-night/txrollup/internal/config"
	"github.com/set-night/txrollup/internal/domain"
	"github.com/set-night/txrollup/internal/service"
)

type Handler struct {
	agg      Aggregator
	ingester Ingester
	loc      *time.Location
}

type HealthResponse struct {
	Status string `json:"status"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{Status: "healthy"})
}

type BufferResponse struct {
	Periods           map[string]int `json:"periods"`
	TotalTransactions int            `json:"totalTransactions"`
	Current           string         `json:"current"`
	Previous          string         `json:"previous"`
}

// Buffer reports how many transactions each buffered period holds.
func (h *Handler) Buffer(w http.ResponseWriter, r *http.Request) {
	occupancy := h.agg.ReportOccupancy()
	total := 0
	for _, n := range occupancy {
		total += n
	}
	respondJSON(w, http.StatusOK, BufferResponse{
		Periods:           occupancy,
		TotalTransactions: total,
		Current:           h.agg.CurrentPeriodKey(),
		Previous:          h.agg.PreviousPeriodKey(),
	})
}

// PeriodSummary previews the summary of a buffered period without flushing it.
func (h *Handler) PeriodSummary(w http.ResponseWriter, r *http.Request) {
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}

	summary, ok := h.agg.Summarize(period)
	if !ok {
		respondError(w, http.StatusNotFound, "period not buffered", fmt.Errorf("%w: %s", domain.ErrEmptyPeriod, period))
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Flush runs the regular flush of the previous period.
func (h *Handler) Flush(w http.ResponseWriter, r *http.Request) {
	result, err := h.agg.RunFlushCycle(r.Context())
	h.respondFlush(w, result, err)
}

// FlushPeriod flushes one closed period. The current period is still
// receiving writes and is refused.
func (h *Handler) FlushPeriod(w http.ResponseWriter, r *http.Request) {
	period, ok := h.periodParam(w, r)
	if !ok {
		return
	}
	if period >= h.agg.CurrentPeriodKey() {
		respondError(w, http.StatusConflict, "period is still open", nil)
		return
	}

	result, err := h.agg.FlushPeriod(r.Context(), period)
	h.respondFlush(w, result, err)
}

func (h *Handler) respondFlush(w http.ResponseWriter, result service.FlushResult, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, result)
	case errors.Is(err, domain.ErrSinkDelivery):
		respondError(w, http.StatusBadGateway, "report delivery failed", err)
	default:
		respondError(w, http.StatusInternalServerError, "flush failed", err)
	}
}

type IngestResponse struct {
	ID     string `json:"id"`
	Period string `json:"period"`
}

// IngestTransaction accepts a transaction in the same wire format the Kafka
// topic carries.
func (h *Handler) IngestTransaction(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, config.MaxRequestBodyBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
		return
	}

	tx, err := h.ingester.Process(r.Context(), body)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidTransaction) {
			respondError(w, http.StatusBadRequest, "invalid transaction", err)
			return
		}
		respondError(w, http.StatusInternalServerError, "ingest failed", err)
		return
	}

	respondJSON(w, http.StatusAccepted, IngestResponse{ID: tx.ID, Period: h.agg.CurrentPeriodKey()})
}

func (h *Handler) periodParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	period := chi.URLParam(r, "period")
	if _, err := domain.ParsePeriodKey(period, h.loc); err != nil {
		respondError(w, http.StatusBadRequest, "invalid period", err)
		return "", false
	}
	return period, true
}
