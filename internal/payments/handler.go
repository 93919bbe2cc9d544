package payments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/msmebazaar/platform/internal/auth"
	"github.com/msmebazaar/platform/internal/platform/httpx"
	"github.com/msmebazaar/platform/internal/shared"
)

// Handler wires HTTP endpoints for the payment service.
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

// MountRoutes registers payment routes. The webhook endpoint stays outside
// the auth group: gateways call it with their own shared-secret scheme
// handled upstream.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("payment-service"))
	r.Post("/{reference}/events", h.applyEvent)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Post("/", h.create)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
	})
}

type createRequest struct {
	PayeeID  string `json:"payee_id" validate:"required,uuid"`
	Amount   int64  `json:"amount" validate:"required,gt=0"`
	Currency string `json:"currency" validate:"omitempty,len=3"`
	Purpose  string `json:"purpose" validate:"required,oneof=listing loan_emi subscription"`
}

type eventRequest struct {
	Event string `json:"event" validate:"required"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	payerID, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payeeID, err := uuid.Parse(req.PayeeID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "payee id must be a UUID")
		return
	}

	payment, replayed, err := h.service.Create(r.Context(), payerID, r.Header.Get("Idempotency-Key"), CreateInput{
		PayeeID:  payeeID,
		Amount:   req.Amount,
		Currency: req.Currency,
		Purpose:  req.Purpose,
	})
	if err != nil {
		h.logger.Warn("create payment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	httpx.JSON(w, status, payment)
}

func (h *Handler) applyEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	payment, err := h.service.ApplyEvent(r.Context(), chi.URLParam(r, "reference"), req.Event)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "payment id must be a UUID")
		return
	}
	payment, err := h.service.Get(r.Context(), id, shared.IdentityFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := ListFilters{Status: q.Get("status"), Purpose: q.Get("purpose"), Page: page, Limit: limit}

	list, total, err := h.service.List(r.Context(), filters, shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list payments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"payments":   list,
		"pagination": shared.NewPagination(filters.Page, filters.Limit, total),
	})
}
