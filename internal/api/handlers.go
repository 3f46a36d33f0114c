// Package api exposes HTTP handlers for the healthstats service.
package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"example.com/healthstats/internal/analytics"
	"example.com/healthstats/internal/domain"
	"example.com/healthstats/internal/export"
	"example.com/healthstats/internal/ingest"
	"example.com/healthstats/internal/insights"
)

// Ingestor runs the ingestion pipeline over an export file.
type Ingestor interface {
	Run(ctx context.Context, path string) (*ingest.Summary, error)
}

// InsightGenerator produces prose observations from structured summaries.
type InsightGenerator interface {
	GenerateInsights(ctx context.Context, insightCtx insights.Context) (*insights.Report, error)
	CheckConnection(ctx context.Context) bool
}

// Handler coordinates HTTP requests with the ingestion pipeline, repository,
// and analytics layers.
type Handler struct {
	ingestor  Ingestor
	repo      domain.Repository
	analytics *analytics.Analytics
	llm       InsightGenerator
	maxUpload int64
	logger    *log.Logger
}

// NewHandler builds a Handler.
func NewHandler(ingestor Ingestor, repo domain.Repository, analyticsLayer *analytics.Analytics, llm InsightGenerator, maxUpload int64) *Handler {
	return &Handler{
		ingestor:  ingestor,
		repo:      repo,
		analytics: analyticsLayer,
		llm:       llm,
		maxUpload: maxUpload,
		logger:    log.New(log.Writer(), "[api] ", log.LstdFlags),
	}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/health-data", h.uploadHealthData)
	mux.HandleFunc("/v1/sleep", h.sleepRecords)
	mux.HandleFunc("/v1/activity", h.activityRecords)
	mux.HandleFunc("/v1/vitals", h.vitalsRecords)
	mux.HandleFunc("/v1/metrics/derived", h.derivedMetrics)
	mux.HandleFunc("/v1/analytics/sleep-summary", h.sleepSummary)
	mux.HandleFunc("/v1/analytics/activity-summary", h.activitySummary)
	mux.HandleFunc("/v1/analytics/correlations", h.correlations)
	mux.HandleFunc("/v1/insights/generate", h.generateInsights)
	mux.HandleFunc("/v1/stats", h.stats)
	mux.HandleFunc("/healthz", h.healthz)
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	status := HealthStatus{Status: "healthy", Database: "connected", Ollama: "disconnected"}
	if h.llm != nil && h.llm.CheckConnection(r.Context()) {
		status.Ollama = "connected"
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) uploadHealthData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing file field")
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".xml") && !strings.HasSuffix(name, ".zip") {
		writeError(w, http.StatusBadRequest, "validation_failed", "file must be .xml or .zip")
		return
	}

	scratch, err := os.CreateTemp("", "healthstats-upload-*"+filepath.Ext(name))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	defer os.Remove(scratch.Name())

	if _, err := io.Copy(scratch, file); err != nil {
		scratch.Close()
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if err := scratch.Close(); err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	summary, err := h.ingestor.Run(r.Context(), scratch.Name())
	if err != nil {
		h.logger.Printf("ingest failed for %s: %v", header.Filename, err)
		writeError(w, ingestStatus(err), "ingest_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message: "Data uploaded successfully",
		RunID:   summary.RunID,
		RecordsAdded: RecordCounts{
			Sleep:          summary.SleepAdded,
			Activity:       summary.ActivityAdded,
			Vitals:         summary.VitalsAdded,
			DerivedMetrics: summary.MetricsComputed,
		},
	})
}

// ingestStatus maps pipeline failures to HTTP statuses: malformed input is the
// uploader's problem, everything else is ours.
func ingestStatus(err error) int {
	if errors.Is(err, export.ErrMissingDocument) || errors.Is(err, export.ErrMalformedTimestamp) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *Handler) sleepRecords(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}
	from, to := window(days)

	records, err := h.repo.ListSleepRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	views := make([]SleepView, 0, len(records))
	for _, record := range records {
		views = append(views, toSleepView(record))
	}
	writeJSON(w, http.StatusOK, RecordsResponse[SleepView]{Records: views, Count: len(views)})
}

func (h *Handler) activityRecords(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}
	from, to := window(days)

	records, err := h.repo.ListActivityRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	views := make([]ActivityView, 0, len(records))
	for _, record := range records {
		views = append(views, toActivityView(record))
	}
	writeJSON(w, http.StatusOK, RecordsResponse[ActivityView]{Records: views, Count: len(views)})
}

func (h *Handler) vitalsRecords(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}
	from, to := window(days)

	records, err := h.repo.ListVitalsRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	views := make([]VitalsView, 0, len(records))
	for _, record := range records {
		views = append(views, toVitalsView(record))
	}
	writeJSON(w, http.StatusOK, RecordsResponse[VitalsView]{Records: views, Count: len(views)})
}

func (h *Handler) derivedMetrics(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}
	from, to := window(days)

	records, err := h.repo.ListDerivedMetricsRange(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	views := make([]DerivedMetricsView, 0, len(records))
	for _, record := range records {
		views = append(views, toDerivedMetricsView(record))
	}
	writeJSON(w, http.StatusOK, RecordsResponse[DerivedMetricsView]{Records: views, Count: len(views)})
}

func (h *Handler) sleepSummary(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}

	summary, err := h.analytics.SleepSummary(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "not_found", "no sleep data found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) activitySummary(w http.ResponseWriter, r *http.Request) {
	days, ok := daysParam(w, r, 365)
	if !ok {
		return
	}

	summary, err := h.analytics.ActivitySummary(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if summary == nil {
		writeError(w, http.StatusNotFound, "not_found", "no activity data found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) correlations(w http.ResponseWriter, r *http.Request) {
	correlations, err := h.analytics.Correlations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, correlations)
}

func (h *Handler) generateInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}
	days, ok := daysParam(w, r, 30)
	if !ok {
		return
	}

	sleepSummary, err := h.analytics.SleepSummary(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	if sleepSummary == nil {
		writeError(w, http.StatusNotFound, "not_found", "insufficient data for insights")
		return
	}

	activitySummary, err := h.analytics.ActivitySummary(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	patterns, err := h.analytics.NotablePatterns(r.Context(), days)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}
	correlations, err := h.analytics.Correlations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	insightCtx := insights.Context{
		SleepSummary:    sleepSummary,
		ActivitySummary: activitySummary,
		NotablePatterns: patterns,
		Correlations:    correlations,
	}
	if days < 30 {
		if monthly, err := h.analytics.SleepSummary(r.Context(), 30); err == nil && monthly != nil {
			insightCtx.SleepAverage30 = &monthly.Average
		}
	}

	report, err := h.llm.GenerateInsights(r.Context(), insightCtx)
	if err != nil {
		// An unreachable model degrades the response, it does not fail it.
		writeJSON(w, http.StatusOK, InsightsResponse{
			Error:       err.Error(),
			Insights:    []insights.Insight{},
			Summary:     "Unable to connect to local LLM. Ensure Ollama is running.",
			GeneratedAt: time.Now().UTC(),
			Context:     insightCtx,
		})
		return
	}

	writeJSON(w, http.StatusOK, InsightsResponse{
		Insights:    report.Insights,
		Summary:     report.Summary,
		Model:       report.Model,
		GeneratedAt: time.Now().UTC(),
		Context:     insightCtx,
	})
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
		return
	}

	resp := StatsResponse{}
	resp.TotalRecords.Sleep = stats.SleepCount
	resp.TotalRecords.Activity = stats.ActivityCount
	resp.TotalRecords.Vitals = stats.VitalsCount
	if stats.FirstDate != nil {
		first := stats.FirstDate.String()
		resp.DateRange.FirstDate = &first
	}
	if stats.LastDate != nil {
		last := stats.LastDate.String()
		resp.DateRange.LastDate = &last
	}
	writeJSON(w, http.StatusOK, resp)
}

// daysParam parses the days query parameter, defaulting to 7 and rejecting
// values outside [1, max].
func daysParam(w http.ResponseWriter, r *http.Request, max int) (int, bool) {
	days := 7
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > max {
			writeError(w, http.StatusBadRequest, "validation_failed", "days must be between 1 and "+strconv.Itoa(max))
			return 0, false
		}
		days = parsed
	}
	return days, true
}

func window(days int) (domain.Date, domain.Date) {
	to := domain.DateOf(time.Now())
	return to.AddDays(-days), to
}
