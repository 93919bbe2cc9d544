package profiles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
	"github.com/msmebazaar/platform/internal/shared"
)

// Handler wires HTTP endpoints for the user-profile service.
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

// MountRoutes registers profile routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("user-profile-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Get("/me", h.getOwn)
		r.Put("/me", h.upsertOwn)
		r.Get("/me/summary", h.summary)
		r.With(h.mw.RequireRole(auth.RoleAdmin)).Get("/{userID}", h.getAny)
	})
}

type profileRequest struct {
	Phone        string            `json:"phone" validate:"omitempty,max=20"`
	BusinessName string            `json:"business_name" validate:"omitempty,max=200"`
	GSTNumber    string            `json:"gst_number" validate:"omitempty,max=15"`
	Address      string            `json:"address" validate:"omitempty,max=500"`
	City         string            `json:"city" validate:"omitempty,max=100"`
	State        string            `json:"state" validate:"omitempty,max=100"`
	Pincode      string            `json:"pincode" validate:"omitempty,max=10"`
	Preferences  map[string]string `json:"preferences" validate:"omitempty,max=50"`
}

func (h *Handler) getOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	profile, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func (h *Handler) upsertOwn(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	var req profileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	profile := &Profile{
		UserID:       userID,
		Phone:        req.Phone,
		BusinessName: req.BusinessName,
		GSTNumber:    req.GSTNumber,
		Address:      req.Address,
		City:         req.City,
		State:        req.State,
		Pincode:      req.Pincode,
		Preferences:  req.Preferences,
	}
	saved, err := h.service.Upsert(r.Context(), profile)
	if err != nil {
		h.logger.Error("upsert profile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Summary(r.Context(), userID)
	if err != nil {
		h.logger.Error("profile summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) getAny(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a UUID")
		return
	}
	profile, err := h.service.Get(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, profile)
}

func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	identity := shared.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}
