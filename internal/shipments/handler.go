package shipments

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes shipment endpoints.
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

// MountRoutes registers /shipments routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Get("/", h.list)
		r.Get("/stats", h.stats)
		r.Post("/approve", h.approve)
		r.Post("/allocate", h.allocate)
		r.Patch("/status", h.updateStatus)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupEmployee))
		r.Get("/mine", h.mine)
		r.Get("/mine/orders", h.mineOrders)
		r.Post("/mine/status", h.updateMine)
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
	list, err := h.service.List(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var req ApproveRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.Approve(r.Context(), p, companyID, req.OrderID)
	if err != nil {
		h.logger.Warn("approve order failed", slog.Int64("order_id", req.OrderID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sh)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var req AllocateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.Allocate(r.Context(), p, companyID, req)
	if err != nil {
		h.logger.Warn("allocate order failed", slog.Int64("order_id", req.OrderID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.UpdateStatus(r.Context(), p, StatusUpdate{
		ShipmentID: req.ShipmentID,
		Status:     req.Status,
		CompanyID:  companyID,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	list, err := h.service.EmployeeShipments(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) mineOrders(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	page, err := h.service.EmployeeOrders(r.Context(), p.UserID,
		httpx.QueryInt(r, "page", 1),
		httpx.QueryInt(r, "per_page", shared.DefaultPerPage))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) updateMine(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var req StatusRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	employeeID, err := h.service.EmployeeID(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sh, err := h.service.UpdateStatus(r.Context(), p, StatusUpdate{
		ShipmentID: req.ShipmentID,
		Status:     req.Status,
		EmployeeID: employeeID,
	})
	if err != nil {
		h.logger.Warn("employee status update failed", slog.Int64("shipment_id", req.ShipmentID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sh)
}
