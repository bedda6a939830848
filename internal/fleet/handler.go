package fleet

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes truck and employee endpoints.
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

// MountTruckRoutes registers /trucks routes.
func (h *Handler) MountTruckRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
	r.Get("/", h.listTrucks)
	r.Post("/", h.createTruck)
	r.Get("/{id}", h.showTruck)
	r.Put("/{id}", h.updateTruck)
	r.Delete("/{id}", h.deleteTruck)
}

// MountEmployeeRoutes registers /employees routes.
func (h *Handler) MountEmployeeRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.GroupEmployee)).Get("/me", h.me)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Get("/", h.listEmployees)
		r.Post("/", h.createEmployee)
		r.Get("/available", h.availableForOrder)
		r.Delete("/{id}", h.deleteEmployee)
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

func (h *Handler) listTrucks(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	trucks, err := h.service.ListTrucks(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, trucks)
}

func (h *Handler) createTruck(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var in TruckInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.CreateTruck(r.Context(), p, companyID, in)
	if err != nil {
		h.logger.Warn("create truck failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

func (h *Handler) showTruck(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.GetTruck(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) updateTruck(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in TruckInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t, err := h.service.UpdateTruck(r.Context(), p, companyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, t)
}

func (h *Handler) deleteTruck(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteTruck(r.Context(), p, companyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listEmployees(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	list, err := h.service.ListEmployees(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, list)
}

func (h *Handler) createEmployee(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var in EmployeeInput
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.CreateEmployee(r.Context(), p, companyID, in)
	if err != nil {
		h.logger.Warn("create employee failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}

func (h *Handler) availableForOrder(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	orderID, err := httpx.RequireQueryInt64(r, "order_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	list, err := h.service.AvailableForOrder(r.Context(), companyID, orderID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employees": list})
}

func (h *Handler) deleteEmployee(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteEmployee(r.Context(), p, companyID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	e, err := h.service.EmployeeFor(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"employee_id": e.ID, "company_id": e.CompanyID, "truck_id": e.TruckID})
}
