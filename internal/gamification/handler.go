package gamification

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
	"github.com/msmebazaar/platform/internal/shared"
)

// Handler wires HTTP endpoints for the gamification service.
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

// MountRoutes registers gamification routes. Event injection is admin only;
// regular awards flow in from the other modules directly.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("gamification-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Get("/leaderboard", h.leaderboard)
		r.Get("/users/{userID}", h.standing)
		r.With(h.mw.RequireRole(auth.RoleAdmin)).Post("/events", h.award)
	})
}

type awardRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Event  string `json:"event" validate:"required"`
}

func (h *Handler) award(w http.ResponseWriter, r *http.Request) {
	var req awardRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Award(r.Context(), req.UserID, req.Event); err != nil {
		h.logger.Error("award event", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"status": "awarded"})
}

func (h *Handler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	standings, err := h.service.Leaderboard(r.Context(), limit)
	if err != nil {
		h.logger.Error("leaderboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": standings,
		"count":       len(standings),
	})
}

func (h *Handler) standing(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	if identity.Role != auth.RoleAdmin && identity.UserID != userID {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	standing, err := h.service.StandingFor(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, standing)
}
