package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kartify/catalog-scraper/internal/jobs"
	"github.com/kartify/catalog-scraper/internal/scraper"
)

type Handlers struct {
	scraper *scraper.Service
	jobs    *jobs.Manager
	logger  *slog.Logger
}

func NewHandlers(service *scraper.Service, jobManager *jobs.Manager, logger *slog.Logger) *Handlers {
	return &Handlers{
		scraper: service,
		jobs:    jobManager,
		logger:  logger,
	}
}

type ScrapeRequest struct {
	URL string `json:"url"`
}

type BatchRequest struct {
	URLs  []string `json:"urls"`
	Actor string   `json:"actor"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// ScrapeSingle runs the pipeline synchronously for one URL.
func (h *Handlers) ScrapeSingle(w http.ResponseWriter, r *http.Request) {
	var req ScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if req.URL == "" {
		h.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "url is required")
		return
	}

	record, err := h.scraper.ScrapeSingle(r.Context(), req.URL)
	if err != nil {
		h.logger.Error("scrape failed", "url", req.URL, "error", err)
		h.respondError(w, statusFor(err), scraper.Code(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, record)
}

// ScrapeBatch runs a batch synchronously. Per-URL failures are reported
// in the ledger, not as an HTTP error.
func (h *Handlers) ScrapeBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	result, err := h.scraper.ScrapeBatch(r.Context(), req.URLs)
	if err != nil {
		h.respondError(w, statusFor(err), scraper.Code(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, result)
}

// CreateJob enqueues a batch for asynchronous processing.
func (h *Handlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}

	job, err := h.jobs.Enqueue(r.Context(), req.URLs, req.Actor)
	if err != nil {
		h.respondError(w, statusFor(err), scraper.Code(err), err.Error())
		return
	}

	h.respondJSON(w, http.StatusAccepted, job)
}

func (h *Handlers) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	job, err := h.jobs.Get(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrJobNotFound) {
			h.respondError(w, http.StatusNotFound, "JOB_NOT_FOUND", err.Error())
			return
		}
		h.respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, job)
}

func (h *Handlers) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.scraper.SessionStatus())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, scraper.ErrInvalidDomain), errors.Is(err, scraper.ErrBatchInput):
		return http.StatusBadRequest
	case errors.Is(err, scraper.ErrRobotsDisallowed):
		return http.StatusForbidden
	case errors.Is(err, scraper.ErrNavigationTimeout), errors.Is(err, scraper.ErrContentNotReady):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, errorResponse{Code: code, Error: message})
}
