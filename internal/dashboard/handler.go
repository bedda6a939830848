package dashboard

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Handler exposes dashboard widgets.
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

// MountRoutes registers /dashboard routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.GroupManufacturer))
		r.Get("/", h.overview)
		r.Get("/counts", h.counts)
		r.Get("/category-stock", h.categoryStock)
		r.Get("/category-stock.csv", h.categoryStockCSV)
		r.Get("/shipment-stats", h.shipmentStats)
		r.Get("/shipment-stats.csv", h.shipmentStatsCSV)
		r.Get("/invoice-count", h.invoiceCount)
		r.Get("/recent", h.recent)
	})
}

func (h *Handler) company(w http.ResponseWriter, r *http.Request) (int64, bool) {
	companyID, err := httpx.RequireQueryInt64(r, "company")
	if err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	if _, err := shared.AuthorizeCompany(r.Context(), h.guard, companyID); err != nil {
		httpx.RespondError(w, err)
		return 0, false
	}
	return companyID, true
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	o, err := h.service.Overview(r.Context(), companyID)
	if err != nil {
		h.logger.Error("dashboard overview", slog.Int64("company_id", companyID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) counts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	c, err := h.service.Counts(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) categoryStock(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	rows, err := h.service.CategoryStock(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) categoryStockCSV(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	rows, err := h.service.CategoryStock(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteCategoryStockCSV(&buf, rows); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.attachment(w, fmt.Sprintf("category-stock-%d.csv", companyID), buf.Bytes())
}

func (h *Handler) shipmentStats(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ShipmentStats(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) shipmentStatsCSV(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ShipmentStats(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteShipmentStatsCSV(&buf, rows); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.attachment(w, fmt.Sprintf("shipment-stats-%d.csv", companyID), buf.Bytes())
}

func (h *Handler) invoiceCount(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	n, err := h.service.InvoiceCount(r.Context(), companyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.company(w, r)
	if !ok {
		return
	}
	logs, err := h.service.RecentActions(r.Context(), companyID, httpx.QueryInt(r, "limit", 20))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, logs)
}

func (h *Handler) attachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("stream csv", slog.Any("error", err))
	}
}
