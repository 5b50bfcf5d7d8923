package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sells-group/similar-cli/internal/model"
)

type errorResponse struct {
	Error string `json:"error"`
}

type batchRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// Health reports liveness and store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.opts.Health != nil {
		if err := h.opts.Health(r.Context()); err != nil {
			zap.L().Warn("api: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Recommendations serves a single-item lookup.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	cat, err := model.ParseCatalog(chi.URLParam(r, "catalog"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.LookupTimeout)
	defer cancel()

	res := h.engine.Recommend(ctx, cat, chi.URLParam(r, "id"))

	status := http.StatusOK
	switch res.Status {
	case model.StatusNoData:
		status = http.StatusNotFound
	case model.StatusError:
		status = http.StatusBadGateway
		zap.L().Error("api: lookup failed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("source_id", res.SourceID),
			zap.String("error", res.Error),
		)
	}
	writeJSON(w, status, res)
}

// Batch serves a batch lookup.
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	cat, err := model.ParseCatalog(chi.URLParam(r, "catalog"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "ids must be a non-empty list of non-empty ids"})
		return
	}
	if len(req.IDs) > h.opts.MaxBatchSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "too many ids"})
		return
	}

	res := h.batch.Run(r.Context(), cat, req.IDs, nil)
	writeJSON(w, http.StatusOK, res)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
