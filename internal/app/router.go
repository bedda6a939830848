package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vendorflow/vendorflow/internal/auth"
	"github.com/vendorflow/vendorflow/internal/connections"
	"github.com/vendorflow/vendorflow/internal/dashboard"
	"github.com/vendorflow/vendorflow/internal/fleet"
	"github.com/vendorflow/vendorflow/internal/intake"
	"github.com/vendorflow/vendorflow/internal/integration/odoo"
	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/invoicing"
	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/masterdata/companies"
	"github.com/vendorflow/vendorflow/internal/masterdata/products"
	"github.com/vendorflow/vendorflow/internal/observability"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/retailers"
	"github.com/vendorflow/vendorflow/internal/shipments"
	"github.com/vendorflow/vendorflow/internal/users"
	"github.com/vendorflow/vendorflow/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	// Authenticate resolves the bearer principal for every route outside /auth.
	Authenticate func(http.Handler) http.Handler

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	CompaniesHandler   *companies.Handler
	CategoriesHandler  *categories.Handler
	ProductsHandler    *products.Handler
	InventoryHandler   *inventory.Handler
	RetailersHandler   *retailers.Handler
	ConnectionsHandler *connections.Handler
	OrdersHandler      *orders.Handler
	FleetHandler       *fleet.Handler
	ShipmentsHandler   *shipments.Handler
	InvoicesHandler    *invoicing.Handler
	IntakeHandler      *intake.Handler
	DashboardHandler   *dashboard.Handler
	OdooHandler        *odoo.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router serving /healthz, /metrics and /api/v1.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil && (params.Config == nil || params.Config.MetricsEnabled) {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		r.Group(func(r chi.Router) {
			if params.Authenticate != nil {
				r.Use(params.Authenticate)
			}
			if params.UsersHandler != nil {
				params.UsersHandler.MountRoutes(r)
			}
			if params.CompaniesHandler != nil {
				r.Route("/companies", params.CompaniesHandler.MountRoutes)
			}
			if params.CategoriesHandler != nil {
				r.Route("/categories", params.CategoriesHandler.MountRoutes)
			}
			if params.ProductsHandler != nil {
				r.Route("/products", params.ProductsHandler.MountRoutes)
			}
			if params.InventoryHandler != nil {
				r.Route("/inventory", params.InventoryHandler.MountRoutes)
			}
			if params.RetailersHandler != nil {
				r.Route("/retailers", params.RetailersHandler.MountRoutes)
			}
			if params.ConnectionsHandler != nil {
				r.Route("/connections", params.ConnectionsHandler.MountRoutes)
			}
			if params.OrdersHandler != nil {
				r.Route("/orders", params.OrdersHandler.MountRoutes)
			}
			if params.FleetHandler != nil {
				r.Route("/trucks", params.FleetHandler.MountTruckRoutes)
				r.Route("/employees", params.FleetHandler.MountEmployeeRoutes)
			}
			if params.ShipmentsHandler != nil {
				r.Route("/shipments", params.ShipmentsHandler.MountRoutes)
			}
			if params.InvoicesHandler != nil {
				r.Route("/invoices", params.InvoicesHandler.MountRoutes)
			}
			if params.IntakeHandler != nil {
				r.Route("/intake", params.IntakeHandler.MountRoutes)
			}
			if params.DashboardHandler != nil {
				r.Route("/dashboard", params.DashboardHandler.MountRoutes)
			}
			if params.OdooHandler != nil {
				r.Route("/odoo", params.OdooHandler.MountRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}
