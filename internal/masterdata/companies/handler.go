package companies

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
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers /companies routes. /public is open to every signed-in user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/public", h.Public)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.GroupManufacturer, core.GroupEmployee))
		r.Get("/", h.List)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.GroupManufacturer))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	p, _ := core.PrincipalFromContext(r.Context())
	filters := shared.FiltersFromRequest(r)
	companies, total, err := h.service.List(r.Context(), p, filters)
	if err != nil {
		h.logger.Error("list companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, core.Page[Company]{
		Items:      companies,
		Pagination: core.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Public(w http.ResponseWriter, r *http.Request) {
	filters := shared.FiltersFromRequest(r)
	companies, total, err := h.service.Directory(r.Context(), filters)
	if err != nil {
		h.logger.Error("list public companies failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, core.Page[Directory]{
		Items:      companies,
		Pagination: core.NewPagination(filters.Page, filters.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := core.PrincipalFromContext(r.Context())
	company, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form CompanyForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := core.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), p, form.toCompany())
	if err != nil {
		h.logger.Warn("create company failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var form CompanyForm
	if err := httpx.DecodeAndValidate(r, &form); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := core.PrincipalFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), p, id, form.toCompany())
	if err != nil {
		h.logger.Warn("update company failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, _ := core.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), p, id); err != nil {
		h.logger.Warn("delete company failed", slog.Int64("id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
