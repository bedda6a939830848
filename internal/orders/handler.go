package orders

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes order endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   shared.CompanyGuard
	rbac    rbac.Middleware
}

// NewHandler builds the handler.
func NewHandler(logger *slog.Logger, service *Service, guard shared.CompanyGuard, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, rbac: rbac}
}

// MountRoutes registers /orders routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer, shared.GroupEmployee))
		r.Get("/", h.list)
		r.Post("/", h.place)
		r.Get("/{id}", h.show)
		r.Put("/{id}/items", h.replaceItems)
		r.Post("/{id}/cancel", h.cancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Get("/counts", h.counts)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupRetailer))
		r.Get("/retailer", h.listMine)
		r.Post("/retailer", h.placeAsRetailer)
	})
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) (shared.Principal, int64, bool) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Principal{}, 0, false
	}
	p, err := shared.AuthorizeCompany(r.Context(), h.guard, companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return shared.Principal{}, 0, false
	}
	return p, companyID, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	page, err := h.service.List(r.Context(), Filter{
		CompanyID: companyID,
		Status:    Status(r.URL.Query().Get("status")),
		Page:      httpx.QueryInt(r, "page", 1),
		PerPage:   httpx.QueryInt(r, "per_page", shared.DefaultPerPage),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) place(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var req PlaceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Place(r.Context(), p, companyID, req)
	if err != nil {
		h.logger.Warn("place order failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) replaceItems(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ReplaceItemsRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.ReplaceItems(r.Context(), p, companyID, id, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Cancel(r.Context(), p, companyID, id)
	if err != nil {
		h.logger.Warn("cancel order failed", slog.Int64("order_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	c, err := h.service.Counts(r.Context(), companyID)
	if err != nil {
		h.logger.Error("order counts failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page, err := h.service.List(r.Context(), Filter{
		CompanyID:      companyID,
		RetailerUserID: p.UserID,
		Status:         Status(r.URL.Query().Get("status")),
		Page:           httpx.QueryInt(r, "page", 1),
		PerPage:        httpx.QueryInt(r, "per_page", shared.DefaultPerPage),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) placeAsRetailer(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req RetailerPlaceRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.PlaceAsRetailer(r.Context(), p, companyID, req)
	if err != nil {
		h.logger.Warn("retailer order failed", slog.Int64("user_id", p.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}
