package sellers

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

// Handler wires HTTP endpoints for the seller service.
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

// MountRoutes registers seller routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", httpx.Health("seller-service"))
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireAuth)
		r.Get("/listings", h.list)
		r.Get("/listings/{id}", h.get)
		r.With(h.mw.RequireRole(auth.RoleSeller)).Post("/listings", h.create)
		r.With(h.mw.RequireRole(auth.RoleSeller)).Put("/listings/{id}", h.update)
		r.With(h.mw.RequireRole(auth.RoleSeller)).Post("/listings/{id}/transition", h.transition)
	})
}

type listingRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	Sector        string `json:"sector" validate:"required,max=100"`
	Region        string `json:"region" validate:"max=100"`
	Description   string `json:"description" validate:"max=4000"`
	AnnualRevenue int64  `json:"annual_revenue" validate:"gte=0"`
	AskingPrice   int64  `json:"asking_price" validate:"gte=0"`
	Currency      string `json:"currency" validate:"omitempty,len=3"`
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=draft listed sold suspended"`
}

type listResponse struct {
	Listings   []Listing         `json:"listings"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	minPrice, _ := strconv.ParseInt(q.Get("min_price"), 10, 64)
	maxPrice, _ := strconv.ParseInt(q.Get("max_price"), 10, 64)

	filters := ListFilters{
		Sector:   q.Get("sector"),
		Region:   q.Get("region"),
		Status:   q.Get("status"),
		Search:   q.Get("search"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     page,
		Limit:    limit,
		SortBy:   q.Get("sort"),
		SortDir:  q.Get("dir"),
	}
	if q.Get("mine") == "true" {
		if identity := shared.IdentityFromContext(r.Context()); identity != nil {
			if ownerID, err := uuid.Parse(identity.UserID); err == nil {
				filters.OwnerID = &ownerID
			}
		}
	}

	listings, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list listings", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if listings == nil {
		listings = []Listing{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Listings:   listings,
		Pagination: shared.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "listing id must be a UUID")
		return
	}
	listing, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	ownerID, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, shared.ErrUnauthorized)
		return
	}

	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	listing, err := h.service.Create(r.Context(), ownerID, req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, listing)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "listing id must be a UUID")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	listing, err := h.service.Update(r.Context(), id, shared.IdentityFromContext(r.Context()), req.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid ID", "listing id must be a UUID")
		return
	}
	var req transitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	listing, err := h.service.Transition(r.Context(), id, shared.IdentityFromContext(r.Context()), req.Status)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listing)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (listingRequest, bool) {
	var req listingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return req, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return req, false
	}
	return req, true
}

func (req listingRequest) toInput() CreateInput {
	return CreateInput{
		Name:          req.Name,
		Sector:        req.Sector,
		Region:        req.Region,
		Description:   req.Description,
		AnnualRevenue: req.AnnualRevenue,
		AskingPrice:   req.AskingPrice,
		Currency:      req.Currency,
	}
}
