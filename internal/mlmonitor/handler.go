package mlmonitor

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the ML monitoring service.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        auth.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers monitoring routes. Ingestion and reads are admin
// only; evaluation pipelines authenticate with a service account.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("ml-monitoring-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth, h.mw.RequireRole(auth.RoleAdmin))
		r.Post("/snapshots", h.ingest)
		r.Get("/models", h.models)
		r.Get("/models/{model}", h.status)
		r.Get("/models/{model}/history", h.history)
	})
}

type snapshotRequest struct {
	Model       string    `json:"model" validate:"required,max=100"`
	Version     string    `json:"version" validate:"required,max=50"`
	Accuracy    float64   `json:"accuracy" validate:"gte=0,lte=1"`
	Drift       float64   `json:"drift" validate:"gte=0"`
	LatencyMS   float64   `json:"latencyMS" validate:"gte=0"`
	EvaluatedAt time.Time `json:"evaluatedAt" validate:"required"`
}

func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req snapshotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	snapshot, err := h.service.Ingest(r.Context(), SnapshotInput{
		Model:       req.Model,
		Version:     req.Version,
		Accuracy:    req.Accuracy,
		Drift:       req.Drift,
		LatencyMS:   req.LatencyMS,
		EvaluatedAt: req.EvaluatedAt,
	})
	if err != nil {
		h.logger.Error("ingest snapshot", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, snapshot)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), chi.URLParam(r, "model"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snapshots, err := h.service.History(r.Context(), chi.URLParam(r, "model"), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
	})
}

func (h *Handler) models(w http.ResponseWriter, r *http.Request) {
	models, err := h.service.Models(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{"models": models})
}
