package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes inventory endpoints.
type Handler struct {
	service *Service
	guard   shared.CompanyGuard
	rbac    rbac.Middleware
	logger  *slog.Logger
}

// NewHandler builds the handler.
func NewHandler(service *Service, guard shared.CompanyGuard, rbac rbac.Middleware, logger *slog.Logger) *Handler {
	return &Handler{service: service, guard: guard, rbac: rbac, logger: logger}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer, shared.GroupEmployee))
		r.Get("/movements", h.listMovements)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Post("/products/{id}/receive", h.receive)
		r.Post("/reconcile", h.reconcile)
	})
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := shared.AuthorizeCompany(r.Context(), h.guard, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	productID, err := httpx.QueryInt64(r, "product")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sourceID, err := httpx.QueryInt64(r, "source_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter := MovementFilter{
		CompanyID: companyID,
		ProductID: productID,
		Source:    Source{Type: SourceType(r.URL.Query().Get("source_type")), ID: sourceID},
		Limit:     httpx.QueryInt(r, "limit", 200),
	}
	movements, err := h.service.Movements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := shared.AuthorizeCompany(r.Context(), h.guard, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	productID, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req ReceiveRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	counters, err := h.service.Receive(r.Context(), companyID, productID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, counters)
}

func (h *Handler) reconcile(w http.ResponseWriter, r *http.Request) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := shared.AuthorizeCompany(r.Context(), h.guard, companyID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	counters, err := h.service.ReconcileCompany(r.Context(), companyID)
	if err != nil {
		h.logger.Error("reconcile company", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reconciled": len(counters), "products": counters})
}
