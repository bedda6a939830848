package products

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	core "github.com/vendorflow/vendorflow/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   core.CompanyGuard
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, guard core.CompanyGuard, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, rbac: rbac}
}

// MountRoutes registers /products routes. Every route except /units and /catalog takes ?company=.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/units", h.Units)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.GroupRetailer))
		r.Get("/catalog", h.Catalog)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.GroupManufacturer, core.GroupEmployee))
		r.Get("/", h.List)
		r.Get("/low-stock", h.LowStock)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.GroupManufacturer))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) (int64, core.Principal, bool) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, core.Principal{}, false
	}
	p, err := core.AuthorizeCompany(r.Context(), h.guard, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return 0, core.Principal{}, false
	}
	return companyID, p, true
}

func (h *Handler) Units(w http.ResponseWriter, _ *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Units())
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := h.company(w, r)
	if !ok {
		return
	}
	filters := shared.FiltersFromRequest(r)
	filters.CompanyID = companyID
	products, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list products failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, core.Page[Product]{
		Items:      products,
		Pagination: core.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := h.company(w, r)
	if !ok {
		return
	}
	filters := shared.FiltersFromRequest(r)
	filters.CompanyID = companyID
	products, total, err := h.service.LowStock(r.Context(), filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, core.Page[Product]{
		Items:      products,
		Pagination: core.NewPagination(filters.Page, filters.Limit, total),
	})
}

// Catalog serves the retailer's view. ?company= is an optional narrowing filter here.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	p, ok := core.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, core.ErrNoPrincipal)
		return
	}
	companyID, err := httpx.QueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filters := shared.FiltersFromRequest(r)
	filters.CompanyID = companyID
	items, total, err := h.service.Catalog(r.Context(), p, filters)
	if err != nil {
		h.logger.Error("list catalog failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, core.Page[CatalogItem]{
		Items:      items,
		Pagination: core.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	companyID, _, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	product, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	companyID, p, ok := h.company(w, r)
	if !ok {
		return
	}
	var form ProductForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	created, err := h.service.Create(r.Context(), p, form.toProduct(companyID))
	if err != nil {
		h.logger.Warn("create product failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	companyID, p, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form ProductForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.Update(r.Context(), p, id, form.toProduct(companyID), form.AvailableQuantity)
	if err != nil {
		h.logger.Warn("update product failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	companyID, p, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), p, companyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
