// Package httpapi exposes the duplicate detector over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/news-dedup/internal/core/domain"
	"github.com/lueurxax/news-dedup/internal/process/dedup"
)

const (
	// DetectPath is the route served by DetectHandler.
	DetectPath = "/v1/detect"

	maxBodyBytes = 1 << 20

	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json; charset=utf-8"

	logFieldStatus   = "status"
	logFieldDuration = "duration"
)

var errEmptyPost = errors.New("title or content is required")

// Detector is the subset of the engine used by the handler.
type Detector interface {
	Detect(ctx context.Context, req dedup.Request) dedup.Result
	DetectAndMerge(ctx context.Context, post domain.Post) (dedup.Result, error)
}

// DetectRequest is the JSON body of POST /v1/detect.
// When SourceID is set, a duplicate's source is merged into the matched item.
type DetectRequest struct {
	Title             string `json:"title"`
	Content           string `json:"content"`
	IncludeIrrelevant bool   `json:"include_irrelevant"`
	SourceID          string `json:"source_id,omitempty"`
	SourceURL         string `json:"source_url,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// DetectHandler serves duplicate checks.
type DetectHandler struct {
	detector Detector
	logger   *zerolog.Logger
}

// NewDetectHandler creates a handler backed by detector.
func NewDetectHandler(detector Detector, logger *zerolog.Logger) *DetectHandler {
	return &DetectHandler{detector: detector, logger: logger}
}

func (h *DetectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := h.handle(w, r)

	h.logger.Debug().
		Int(logFieldStatus, status).
		Dur(logFieldDuration, time.Since(start)).
		Msg("detect request served")
}

func (h *DetectHandler) handle(w http.ResponseWriter, r *http.Request) int {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)

		return h.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req DetectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json: " + err.Error()})
	}

	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Content) == "" {
		return h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errEmptyPost.Error()})
	}

	if req.SourceID == "" {
		res := h.detector.Detect(r.Context(), dedup.Request{
			Title:             req.Title,
			Content:           req.Content,
			IncludeIrrelevant: req.IncludeIrrelevant,
		})

		return h.writeJSON(w, http.StatusOK, res)
	}

	res, err := h.detector.DetectAndMerge(r.Context(), domain.Post{
		SourceID:  req.SourceID,
		SourceURL: req.SourceURL,
		Title:     req.Title,
		Content:   req.Content,
	})
	if err != nil {
		h.logger.Error().Err(err).Str("source_id", req.SourceID).Msg("source merge failed")

		return h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "source merge failed"})
	}

	return h.writeJSON(w, http.StatusOK, res)
}

func (h *DetectHandler) writeJSON(w http.ResponseWriter, status int, payload any) int {
	w.Header().Set(contentTypeHeader, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error().Err(err).Msg("write json failed")
	}

	return status
}
