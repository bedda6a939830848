package intake

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// QRRequest is the payload posted by scanners.
type QRRequest struct {
	Text      string `json:"qr_text" validate:"required"`
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
}

// Handler exposes the intake endpoint.
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

// MountRoutes registers /intake routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.GroupManufacturer)).Post("/qr", h.storeQR)
}

func (h *Handler) storeQR(w http.ResponseWriter, r *http.Request) {
	var req QRRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := shared.AuthorizeCompany(r.Context(), h.guard, req.CompanyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	res, err := h.service.StoreQR(r.Context(), p, req.CompanyID, req.Text)
	if err != nil {
		h.logger.Warn("qr intake failed", slog.Int64("company_id", req.CompanyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
