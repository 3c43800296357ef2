package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/user/polite-crawler/internal/delivery/http/request"
	"github.com/user/polite-crawler/internal/delivery/http/response"
	"github.com/user/polite-crawler/internal/usecase"
)

const defaultFailedLimit = 50

type Handler struct {
	urlManager usecase.URLManager
	logger     *zap.Logger
}

func NewHandler(urlManager usecase.URLManager, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		urlManager: urlManager,
		logger:     logger,
	}
}

func (h *Handler) HandleSubmitCrawl(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitCrawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.URLs) == 0 {
		h.writeJSONError(w, "At least one URL is required", http.StatusBadRequest)
		return
	}

	res, err := h.urlManager.Submit(r.Context(), req.URLs, req.ForceCrawl)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidURL) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("Failed to submit URLs", zap.Strings("urls", req.URLs), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.SubmitCrawlResponse{
		Status:   "success",
		Message:  "URLs submitted for crawling",
		Accepted: res.Accepted,
		Skipped:  res.Skipped,
	}
	if resp.Accepted == nil {
		resp.Accepted = []string{}
	}
	h.writeJSON(w, http.StatusAccepted, resp)
}

func (h *Handler) HandleGetCrawlStatus(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if rawURL == "" {
		h.writeJSONError(w, "URL query parameter is required", http.StatusBadRequest)
		return
	}

	status, err := h.urlManager.GetStatus(r.Context(), rawURL)
	switch {
	case errors.Is(err, usecase.ErrInvalidURL):
		h.writeJSONError(w, "Invalid URL format in query parameter", http.StatusBadRequest)
		return
	case errors.Is(err, usecase.ErrStatusUnsupported):
		h.writeJSONError(w, err.Error(), http.StatusNotImplemented)
		return
	case err != nil:
		h.logger.Error("Failed to get crawl status", zap.String("url", rawURL), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := response.CrawlStatusResponse{
		URL:           status.URL,
		CurrentStatus: status.CurrentStatus,
		QueueLength:   status.QueueLength,
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleListFailed(w http.ResponseWriter, r *http.Request) {
	limit := defaultFailedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeJSONError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	failed, err := h.urlManager.RecentFailures(r.Context(), limit)
	if errors.Is(err, usecase.ErrFailedURLsNotTraced) {
		h.writeJSONError(w, err.Error(), http.StatusNotImplemented)
		return
	}
	if err != nil {
		h.logger.Error("Failed to list failed URLs", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]response.FailedURLResponse, 0, len(failed))
	for _, f := range failed {
		resp = append(resp, response.FailedURLResponse{
			URL:                  f.URL,
			FailureReason:        f.FailureReason,
			ErrorType:            f.ErrorType,
			HTTPStatusCode:       f.HTTPStatusCode,
			LastAttemptTimestamp: f.LastAttemptTimestamp,
			AttemptCount:         f.AttemptCount,
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("Failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
