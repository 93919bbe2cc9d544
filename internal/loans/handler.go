package loans

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

// Handler wires HTTP endpoints for the loan and NBFC services.
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

// MountRoutes registers loan routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("loan-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Post("/applications", h.apply)
		r.Get("/applications", h.list)
		r.Get("/applications/{id}", h.get)
		r.With(h.mw.RequireRole(auth.RoleAgent)).Post("/applications/{id}/assign", h.assign)
		r.With(h.mw.RequireRole(auth.RoleNBFC)).Post("/applications/{id}/decision", h.decide)
		r.With(h.mw.RequireRole(auth.RoleNBFC)).Post("/applications/{id}/disburse", h.disburse)

		r.Get("/nbfcs", h.listNBFCs)
		r.With(h.mw.RequireRole(auth.RoleAdmin)).Post("/nbfcs", h.createNBFC)
		r.With(h.mw.RequireRole(auth.RoleAdmin)).Put("/nbfcs/{id}", h.updateNBFC)
	})
}

type applyRequest struct {
	Amount       int64  `json:"amount" validate:"required,gt=0"`
	Currency     string `json:"currency" validate:"omitempty,len=3"`
	TenureMonths int    `json:"tenure_months" validate:"required,gte=3,lte=120"`
	Purpose      string `json:"purpose" validate:"max=500"`
}

type assignRequest struct {
	NBFCID string `json:"nbfc_id" validate:"required,uuid"`
}

type decisionRequest struct {
	Approve bool `json:"approve"`
}

type nbfcRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	BaseRate    float64 `json:"base_rate" validate:"gte=0,lte=60"`
	MaxExposure int64   `json:"max_exposure" validate:"gte=0"`
	Active      bool    `json:"active"`
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	borrowerID, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}
	var req applyRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.Apply(r.Context(), borrowerID, ApplyInput{
		Amount:       req.Amount,
		Currency:     req.Currency,
		TenureMonths: req.TenureMonths,
		Purpose:      req.Purpose,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filters := ListFilters{Status: q.Get("status"), Page: page, Limit: limit}

	if raw := q.Get("nbfc_id"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filters.NBFCID = &id
		}
	}

	apps, total, err := h.service.List(r.Context(), filters, shared.IdentityFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list applications", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if apps == nil {
		apps = []Application{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"applications": apps,
		"pagination":   shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Get(r.Context(), id, shared.IdentityFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if !h.decode(w, r, &req) {
		return
	}
	nbfcID, err := uuid.Parse(req.NBFCID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "nbfc id must be a UUID")
		return
	}
	app, err := h.service.Assign(r.Context(), id, nbfcID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	app, err := h.service.Decide(r.Context(), id, req.Approve)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) disburse(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	app, err := h.service.Disburse(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, app)
}

func (h *Handler) listNBFCs(w http.ResponseWriter, r *http.Request) {
	nbfcs, err := h.service.ListNBFCs(r.Context(), r.URL.Query().Get("active") == "true")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if nbfcs == nil {
		nbfcs = []NBFC{}
	}
	httpx.JSON(w, http.StatusOK, map[string][]NBFC{"nbfcs": nbfcs})
}

func (h *Handler) createNBFC(w http.ResponseWriter, r *http.Request) {
	var req nbfcRequest
	if !h.decode(w, r, &req) {
		return
	}
	nbfc, err := h.service.CreateNBFC(r.Context(), &NBFC{
		Name:        req.Name,
		BaseRate:    req.BaseRate,
		MaxExposure: req.MaxExposure,
		Active:      req.Active,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, nbfc)
}

func (h *Handler) updateNBFC(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req nbfcRequest
	if !h.decode(w, r, &req) {
		return
	}
	nbfc := &NBFC{ID: id, Name: req.Name, BaseRate: req.BaseRate, MaxExposure: req.MaxExposure, Active: req.Active}
	if err := h.service.UpdateNBFC(r.Context(), nbfc); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, nbfc)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
