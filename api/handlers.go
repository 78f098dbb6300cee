/*
handlers.go - HTTP API handlers for the claims-ratio report

PURPOSE:
  Exposes the reconciliation engine via REST. Handles HTTP request/response,
  filter parsing and validation, the read-through report cache, and delegates
  the computation to engine.Pipeline.

ENDPOINTS:
  GET  /api/reports/sinistralidade            Full report tree
  GET  /api/reports/sinistralidade/months     Monthly aggregates only
  GET  /api/reports/sinistralidade/by/{dim}   One dimension (organization,
                                              plan, age_bracket)
  GET  /api/filters                           Distinct organizations/plans
  POST /api/cache/invalidate                  Drop all cached reports
  GET  /healthz                               Liveness

QUERY PARAMETERS (report endpoints):
  operator      required; the operadora in scope
  from, to      required; competence range as YYYY-MM
  organization  optional; restrict to one entidade
  plan          optional
  cpf           optional
  kind          optional beneficiary kind (titular/dependente)

ERROR HANDLING:
  - 400: Validation errors (missing operator, malformed months) - rejected
         before any computation starts
  - 504: Report exceeded the configured deadline; retryable
  - 500: Source feed failures
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/plansaude/sinistro-engine/cache"
	"github.com/plansaude/sinistro-engine/engine"
	"github.com/plansaude/sinistro-engine/observability"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// OptionLister provides distinct filter values; implemented by the sqlite
// and postgres stores. Nil when the source cannot enumerate (memory).
type OptionLister interface {
	Organizations(ctx context.Context, operator string) ([]string, error)
	Plans(ctx context.Context, operator string) ([]string, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Source   engine.RecordSource
	Options  OptionLister
	Pipeline *engine.Pipeline
	Cache    *cache.InMemory[*ReportDTO]
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Timeout  time.Duration
}

// NewHandler wires a handler around a record source.
func NewHandler(source engine.RecordSource, pipeline *engine.Pipeline, reportCache *cache.InMemory[*ReportDTO], metrics *observability.Metrics, logger *zap.Logger, timeout time.Duration) *Handler {
	h := &Handler{
		Source:   source,
		Pipeline: pipeline,
		Cache:    reportCache,
		Metrics:  metrics,
		Logger:   logger,
		Timeout:  timeout,
	}
	if lister, ok := source.(OptionLister); ok {
		h.Options = lister
	}
	return h
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GetReport returns the full aggregate tree.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// GetMonths returns the monthly aggregates only.
func (h *Handler) GetMonths(w http.ResponseWriter, r *http.Request) {
	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report.ByMonth)
}

// GetDimension returns the slices for one dimension.
func (h *Handler) GetDimension(w http.ResponseWriter, r *http.Request) {
	var slices func(*ReportDTO) []SliceDTO
	switch engine.Dimension(chi.URLParam(r, "dimension")) {
	case engine.DimOrganization:
		slices = func(d *ReportDTO) []SliceDTO { return d.ByOrganization }
	case engine.DimPlan:
		slices = func(d *ReportDTO) []SliceDTO { return d.ByPlan }
	case engine.DimAgeBracket:
		slices = func(d *ReportDTO) []SliceDTO { return d.ByAgeBracket }
	default:
		writeError(w, http.StatusBadRequest, "Unknown dimension", nil)
		return
	}

	report, ok := h.reportFor(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, slices(report))
}

// reportFor parses the filter, serves from cache when possible, and runs the
// pipeline otherwise. Writes the error response itself on failure.
func (h *Handler) reportFor(w http.ResponseWriter, r *http.Request) (*ReportDTO, bool) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), err)
		return nil, false
	}

	key := filter.Fingerprint()
	if cached, ok := h.Cache.Get(key); ok {
		h.Metrics.CacheHits.Inc()
		return cached, true
	}
	h.Metrics.CacheMisses.Inc()

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	start := time.Now()
	report, err := h.compute(ctx, filter)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			writeError(w, http.StatusGatewayTimeout, "Report deadline exceeded, retry later", err)
		case engine.IsClientError(err):
			writeError(w, http.StatusBadRequest, err.Error(), err)
		default:
			h.Logger.Error("report failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to compute report", err)
		}
		return nil, false
	}
	h.Metrics.ReportDuration.WithLabelValues("feeds").Observe(time.Since(start).Seconds())
	h.Metrics.DriftFindings.Add(float64(report.DriftFindings))

	h.Cache.Set(key, report)
	return report, true
}

func (h *Handler) compute(ctx context.Context, filter engine.Filter) (*ReportDTO, error) {
	enrollments, err := h.Source.Enrollments(ctx, filter)
	if err != nil {
		return nil, err
	}
	claims, err := h.Source.Claims(ctx, filter)
	if err != nil {
		return nil, err
	}

	report, err := h.Pipeline.Run(ctx, engine.NewSnapshot(enrollments, claims))
	if err != nil {
		return nil, err
	}
	return toReportDTO(report), nil
}

// =============================================================================
// FILTER AND CACHE HANDLERS
// =============================================================================

// GetFilters returns the distinct organizations and plans for dropdowns.
func (h *Handler) GetFilters(w http.ResponseWriter, r *http.Request) {
	operator := r.URL.Query().Get("operator")
	if operator == "" {
		writeError(w, http.StatusBadRequest, "operator is required", nil)
		return
	}
	if h.Options == nil {
		writeJSON(w, http.StatusOK, FiltersDTO{Organizations: []string{}, Plans: []string{}})
		return
	}

	orgs, err := h.Options.Organizations(r.Context(), operator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list organizations", err)
		return
	}
	plans, err := h.Options.Plans(r.Context(), operator)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list plans", err)
		return
	}
	if orgs == nil {
		orgs = []string{}
	}
	if plans == nil {
		plans = []string{}
	}
	writeJSON(w, http.StatusOK, FiltersDTO{Organizations: orgs, Plans: plans})
}

// InvalidateCache drops every cached report. Called after upstream ingestion.
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.Cache.Flush()
	h.Logger.Info("report cache invalidated")
	w.WriteHeader(http.StatusNoContent)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseFilter(r *http.Request) (engine.Filter, error) {
	q := r.URL.Query()

	filter := engine.Filter{
		Operator:     q.Get("operator"),
		Organization: q.Get("organization"),
		Plan:         q.Get("plan"),
		CPF:          engine.CPF(q.Get("cpf")),
		Kind:         q.Get("kind"),
	}

	var err error
	if from := q.Get("from"); from != "" {
		if filter.From, err = engine.ParseMonth(from); err != nil {
			return engine.Filter{}, err
		}
	}
	if to := q.Get("to"); to != "" {
		if filter.To, err = engine.ParseMonth(to); err != nil {
			return engine.Filter{}, err
		}
	}

	if err := filter.Validate(); err != nil {
		return engine.Filter{}, err
	}
	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil && engine.IsClientError(err) {
		resp.Code = "validation_error"
	}
	writeJSON(w, status, resp)
}
