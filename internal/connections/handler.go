package connections

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes company and retailer connection endpoints.
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

// MountRoutes registers /connections routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/company", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Post("/invites", h.generateInvite)
		r.Get("/invites", h.listInvites)
		r.Get("/requests", h.listRequests)
		r.Post("/requests/{id}/respond", h.respond)
		r.Get("/connections", h.listConnections)
		r.Patch("/connections/{id}", h.updateConnection)
	})
	r.Route("/retailer", func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupRetailer))
		r.Post("/join", h.join)
		r.Post("/requests", h.requestApproval)
		r.Get("/companies", h.companies)
		r.Get("/companies/count", h.companyCount)
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

func (h *Handler) generateInvite(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	var req GenerateInviteRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeAndValidate(r, &req); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	inv, err := h.service.GenerateInvite(r.Context(), p, companyID, req)
	if err != nil {
		h.logger.Error("generate invite failed", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) listInvites(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	invites, err := h.service.ListInvites(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, invites)
}

func (h *Handler) listRequests(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	reqs, err := h.service.ListRequests(r.Context(), companyID, RequestStatus(r.URL.Query().Get("status")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RespondRequest
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.RespondRequest(r.Context(), p, companyID, id, in)
	if err != nil {
		h.logger.Warn("respond to request failed", slog.Int64("request_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, req)
}

func (h *Handler) listConnections(w http.ResponseWriter, r *http.Request) {
	_, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	conns, err := h.service.ListConnections(r.Context(), companyID, Status(r.URL.Query().Get("status")))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conns)
}

func (h *Handler) updateConnection(w http.ResponseWriter, r *http.Request) {
	p, companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	id, err := httpx.URLParamInt64(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateConnectionRequest
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	conn, err := h.service.UpdateConnection(r.Context(), p, companyID, id, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conn)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var in JoinRequest
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	conn, err := h.service.JoinByCode(r.Context(), p, in)
	if err != nil {
		h.logger.Warn("join by code failed", slog.Int64("user_id", p.UserID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, conn)
}

func (h *Handler) requestApproval(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	var in ApprovalRequest
	if err := httpx.DecodeAndValidate(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	req, err := h.service.RequestApproval(r.Context(), p, in)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, req)
}

func (h *Handler) companies(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	conns, err := h.service.ListCompanies(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, conns)
}

func (h *Handler) companyCount(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	n, err := h.service.CountCompanies(r.Context(), p.UserID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": n})
}
