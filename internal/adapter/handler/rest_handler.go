package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/IAM-timmy1t/FundRaisingProject-sub002/internal/core/domain"
)

// TrustEngine is the trust score surface exposed over HTTP and gRPC.
type TrustEngine interface {
	ComputeTrustScore(ctx context.Context, userID, trigger string) (*domain.TrustResult, error)
	LatestTrustResult(ctx context.Context, userID string) (*domain.TrustResult, error)
	ListTrustEvents(ctx context.Context, userID string, limit int) ([]domain.TrustScoreEvent, error)
}

// ModerationEngine is the campaign moderation surface exposed over HTTP and gRPC.
type ModerationEngine interface {
	ModerateCampaign(ctx context.Context, req domain.ModerationRequest) (*domain.ModerationResult, error)
	LatestModerationResult(ctx context.Context, campaignID string) (*domain.ModerationResult, error)
}

// AuditFeed renders the audit export.
type AuditFeed interface {
	Export(ctx context.Context, since time.Time, format string) (string, error)
}

const maxBodyBytes = 1 << 20

type RestHandler struct {
	trust      TrustEngine
	moderation ModerationEngine
	audit      AuditFeed
	logger     *zap.Logger
	timeout    time.Duration
}

// DefaultRequestTimeout bounds a request when no timeout is configured.
const DefaultRequestTimeout = 10 * time.Second

// NewRestHandler builds the REST surface. timeout bounds each engine call;
// non-positive values use DefaultRequestTimeout.
func NewRestHandler(trust TrustEngine, moderation ModerationEngine, audit AuditFeed, timeout time.Duration, logger *zap.Logger) *RestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &RestHandler{
		trust:      trust,
		moderation: moderation,
		audit:      audit,
		logger:     logger,
		timeout:    timeout,
	}
}

// Register mounts the scoring routes on r.
func (h *RestHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/v1/health", h.Health).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/trust-score", h.ComputeTrustScore).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/users/{userId}/trust-score", h.GetTrustScore).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/users/{userId}/trust-events", h.ListTrustEvents).Methods(http.MethodGet)

	r.HandleFunc("/api/v1/moderate-campaign", h.ModerateCampaign).Methods(http.MethodPost)
	r.HandleFunc("/api/v1/campaigns/{campaignId}/moderation", h.GetModeration).Methods(http.MethodGet)

	if h.audit != nil {
		r.HandleFunc("/api/v1/audit/feed", h.AuditFeed).Methods(http.MethodGet)
	}
}

// Health check endpoint
func (h *RestHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "scoring-api",
	})
}

type trustScoreRequest struct {
	UserID       string `json:"userId"`
	TriggerEvent string `json:"trigger_event"`
}

// ComputeTrustScore recalculates and persists a fundraiser's trust score.
func (h *RestHandler) ComputeTrustScore(w http.ResponseWriter, r *http.Request) {
	var req trustScoreRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "userId is required", "invalid_input")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.trust.ComputeTrustScore(ctx, req.UserID, req.TriggerEvent)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RestHandler) GetTrustScore(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.trust.LatestTrustResult(ctx, mux.Vars(r)["userId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RestHandler) ListTrustEvents(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid 'limit' parameter", "invalid_input")
			return
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	userID := mux.Vars(r)["userId"]
	events, err := h.trust.ListTrustEvents(ctx, userID, limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if events == nil {
		events = []domain.TrustScoreEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"userId": userID,
		"count":  len(events),
		"events": events,
	})
}

// ModerateCampaign screens a stored campaign or inline content.
func (h *RestHandler) ModerateCampaign(w http.ResponseWriter, r *http.Request) {
	var req domain.ModerationRequest
	if !h.decode(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.moderation.ModerateCampaign(ctx, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *RestHandler) GetModeration(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.moderation.LatestModerationResult(ctx, mux.Vars(r)["campaignId"])
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// AuditFeed exports trust events and moderation results for SIEM ingestion.
// Query: format=cef|json, since=<duration> (e.g. 24h).
func (h *RestHandler) AuditFeed(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")

	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid 'since' parameter (use format like '24h')", "invalid_input")
			return
		}
		since = time.Now().UTC().Add(-d)
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	data, err := h.audit.Export(ctx, since, format)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	contentType := "text/plain; charset=utf-8"
	if format == "json" {
		contentType = "application/x-ndjson"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(data)); err != nil {
		h.logger.Warn("Error writing audit feed response", zap.Error(err))
	}
}

func (h *RestHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload", "invalid_input")
		return false
	}
	return true
}

// fail maps an engine error to its HTTP status. Server-side failures get a
// generic message; the detail goes to the log.
func (h *RestHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	kind := domain.ErrorKind(err)
	message := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		status, kind, message = http.StatusGatewayTimeout, "timeout", "request timed out"
	case status >= 500:
		message = publicMessage(kind)
	}

	if status >= 500 {
		h.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("kind", kind),
			zap.Error(err))
	}
	writeError(w, status, message, kind)
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDataAccess):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func publicMessage(kind string) string {
	switch kind {
	case "data_access":
		return "upstream data temporarily unavailable"
	case "persistence":
		return "result computed but could not be saved"
	default:
		return "internal error"
	}
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message, kind string) {
	writeJSON(w, status, map[string]string{"error": message, "kind": kind})
}
