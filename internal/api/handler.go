package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gyaneshwarpardhi/pgparser/internal/catalog"
	"github.com/gyaneshwarpardhi/pgparser/internal/engine"
	"github.com/gyaneshwarpardhi/pgparser/internal/job"
	"github.com/gyaneshwarpardhi/pgparser/internal/metrics"
)

const (
	maxBatchSize = 100
	maxBodyBytes = 8 << 20
)

// ReloadFunc reopens the catalog sources.
type ReloadFunc func(ctx context.Context) (catalog.Catalog, error)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng    *engine.Engine
	reload ReloadFunc
	logger *slog.Logger
	mux    *http.ServeMux
}

// New creates an HTTP handler and registers all routes. A nil reload
// disables POST /v1/catalog/reload.
func New(eng *engine.Engine, reload ReloadFunc, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{eng: eng, reload: reload, logger: logger, mux: http.NewServeMux()}

	h.mux.HandleFunc("POST /v1/translate", h.translate)
	h.mux.HandleFunc("POST /v1/validate", h.validate)
	h.mux.HandleFunc("POST /v1/jobs", h.submitJobs)
	h.mux.HandleFunc("GET /v1/jobs/{id}", h.getJob)
	h.mux.HandleFunc("GET /v1/processes", h.listProcesses)
	h.mux.HandleFunc("GET /v1/processes/{id}", h.getProcess)
	h.mux.HandleFunc("POST /v1/catalog/reload", h.reloadCatalog)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(logger, h.mux)
}

// POST /v1/translate?sort=<strategy>: synchronous translation.
func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, job.KindTranslate)
}

// POST /v1/validate: synchronous translation and validation.
func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	h.runSync(w, r, job.KindValidate)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, kind job.Kind) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("read body: %s", err))
		return
	}
	if len(body) == 0 {
		writeError(w, http.StatusBadRequest, "request body must hold a process graph document")
		return
	}
	req := job.NewRequest(kind, body)
	req.Sort = r.URL.Query().Get("sort")

	res, err := h.eng.Run(r.Context(), req)
	if err != nil {
		writeError(w, runStatus(err), err.Error())
		return
	}
	if res.Failed() {
		writeJSON(w, statusFor(res.ErrorKind), res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// batchItem is one entry of POST /v1/jobs.
type batchItem struct {
	Kind       job.Kind               `json:"kind"`
	Sort       string                 `json:"sort"`
	Parameters map[string]interface{} `json:"parameters"`
	Document   json.RawMessage        `json:"document"`
}

// POST /v1/jobs: async batch submission (up to 100 documents).
func (h *Handler) submitJobs(w http.ResponseWriter, r *http.Request) {
	var items []batchItem
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&items); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %s", err))
		return
	}
	if len(items) == 0 {
		writeError(w, http.StatusBadRequest, "batch must contain at least one job")
		return
	}
	if len(items) > maxBatchSize {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("batch size %d exceeds max %d", len(items), maxBatchSize))
		return
	}
	for i, it := range items {
		if len(it.Document) == 0 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("jobs[%d]: document is required", i))
			return
		}
	}

	ids := make([]string, 0, len(items))
	queued := 0
	for _, it := range items {
		kind := it.Kind
		if kind == "" {
			kind = job.KindTranslate
		}
		req := job.NewRequest(kind, it.Document)
		req.Sort = it.Sort
		req.Parameters = it.Parameters
		if h.eng.Submit(req) {
			queued++
		}
		ids = append(ids, req.ID)
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"ids":      ids,
		"total":    len(items),
		"queued":   queued,
		"rejected": len(items) - queued,
	})
}

// GET /v1/jobs/{id}: stored result of an async job.
func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	res, ok := h.eng.Result(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("job %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /v1/processes: ids known to the active catalog.
func (h *Handler) listProcesses(w http.ResponseWriter, r *http.Request) {
	cat := h.eng.Catalog()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"processes":   cat.ProcessIDs(),
		"collections": cat.CollectionIDs(),
	})
}

// GET /v1/processes/{id}: one process definition.
func (h *Handler) getProcess(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	p, err := h.eng.Catalog().LookupProcess(id)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeJSON(w, http.StatusOK, p)
	}
}

// POST /v1/catalog/reload: reopen catalog sources and swap them in.
func (h *Handler) reloadCatalog(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		writeError(w, http.StatusNotImplemented, "catalog reload is not configured")
		return
	}
	cat, err := h.reload(r.Context())
	if err != nil {
		metrics.CatalogReloads.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.eng.SwapCatalog(cat)
	metrics.CatalogReloads.WithLabelValues("ok").Inc()
	h.logger.Info("catalog reloaded", "processes", len(cat.ProcessIDs()))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"reloaded":    true,
		"processes":   len(cat.ProcessIDs()),
		"collections": len(cat.CollectionIDs()),
	})
}

// GET /healthz: always 200 (liveness check).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 if the job queue is more than 80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.QueueUtilization.Set(util)
	if util > 0.8 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":            "overloaded",
			"queue_utilization": util,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":            "ready",
		"queue_utilization": util,
	})
}
