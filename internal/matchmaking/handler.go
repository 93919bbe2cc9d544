package matchmaking

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
	"github.com/msmebazaar/platform/internal/shared"
)

// Handler wires HTTP endpoints for the matchmaking service.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      auth.Middleware
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers matchmaking routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("matchmaking-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Get("/matches", h.matches)
	})
}

func (h *Handler) matches(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	userID, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	matches, err := h.service.Matches(r.Context(), userID, limit)
	if err != nil {
		h.logger.Error("compute matches", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}
