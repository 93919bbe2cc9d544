package txmatch

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the transaction-matching service.
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

// MountRoutes registers transaction-matching routes. Everything here is
// back-office: agents register expectations, admins trigger runs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("transaction-matching-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.With(h.mw.RequireRole(auth.RoleAgent)).Post("/expectations", h.expect)
		r.With(h.mw.RequireRole(auth.RoleAdmin)).Post("/runs", h.run)
		r.With(h.mw.RequireRole(auth.RoleAgent)).Get("/matches", h.matches)
	})
}

type expectationRequest struct {
	Reference string    `json:"reference" validate:"required,max=64"`
	Kind      string    `json:"kind" validate:"required,oneof=loan_emi listing_sale"`
	UserID    string    `json:"user_id" validate:"required,uuid"`
	Amount    int64     `json:"amount" validate:"required,gt=0"`
	DueDate   time.Time `json:"due_date" validate:"required"`
}

func (h *Handler) expect(w http.ResponseWriter, r *http.Request) {
	var req expectationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "user id must be a UUID")
		return
	}

	exp, err := h.service.Expect(r.Context(), ExpectationInput{
		Reference: req.Reference,
		Kind:      req.Kind,
		UserID:    userID,
		Amount:    req.Amount,
		DueDate:   req.DueDate,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, exp)
}

type runRequest struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if req.To.IsZero() {
		req.To = time.Now()
	}
	if req.From.IsZero() {
		req.From = req.To.Add(-24 * time.Hour)
	}
	if !req.From.Before(req.To) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must precede to")
		return
	}

	report, err := h.service.Reconcile(r.Context(), req.From, req.To)
	if err != nil {
		h.logger.Error("reconcile", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) matches(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "since must be RFC3339")
			return
		}
		since = parsed
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	matches, err := h.service.Matches(r.Context(), since, limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]interface{}{
		"matches": matches,
		"count":   len(matches),
	})
}
