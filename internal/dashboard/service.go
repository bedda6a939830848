// Package dashboard serves the cached company overview widgets.
package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/cache"
	"github.com/vendorflow/vendorflow/internal/shared"
	"github.com/vendorflow/vendorflow/internal/shipments"
)

// TTL bounds how stale a widget may be.
const TTL = 30 * time.Second

// CountSource returns the headline counters.
type CountSource interface {
	Counts(ctx context.Context, companyID int64) (orders.Counts, error)
}

// CategorySource returns product counts per category.
type CategorySource interface {
	StockByCategory(ctx context.Context, companyID int64) ([]categories.Stock, error)
}

// ShipmentSource returns monthly shipped quantities.
type ShipmentSource interface {
	Stats(ctx context.Context, companyID int64) ([]shipments.MonthlyStat, error)
}

// InvoiceSource counts invoices.
type InvoiceSource interface {
	Count(ctx context.Context, companyID int64) (int, error)
}

// ActivitySource lists recent audit entries.
type ActivitySource interface {
	Recent(ctx context.Context, companyID int64, limit int) ([]shared.AuditLog, error)
}

// Sources groups the widget loaders.
type Sources struct {
	Counts     CountSource
	Categories CategorySource
	Shipments  ShipmentSource
	Invoices   InvoiceSource
	Activity   ActivitySource
}

// Overview is every widget in one payload.
type Overview struct {
	Counts        orders.Counts           `json:"counts"`
	CategoryStock []categories.Stock      `json:"category_stock"`
	ShipmentStats []shipments.MonthlyStat `json:"shipment_stats"`
	InvoiceCount  int                     `json:"invoice_count"`
}

// Service loads widgets through the JSON cache.
type Service struct {
	src    Sources
	cache  *cache.JSONCache
	logger *slog.Logger
}

// NewService constructs Service. A nil cache loads every widget directly.
func NewService(src Sources, c *cache.JSONCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, cache: c, logger: logger}
}

func (s *Service) key(companyID int64, widget string) string {
	return s.cache.Key(strconv.FormatInt(companyID, 10), widget)
}

// Counts returns orders placed, pending orders, employees and active retailers.
func (s *Service) Counts(ctx context.Context, companyID int64) (orders.Counts, error) {
	var out orders.Counts
	err := s.cache.FetchJSON(ctx, s.key(companyID, "counts"), &out, func(ctx context.Context) (any, error) {
		return s.src.Counts.Counts(ctx, companyID)
	})
	return out, err
}

// CategoryStock returns the product count of each category.
func (s *Service) CategoryStock(ctx context.Context, companyID int64) ([]categories.Stock, error) {
	out := []categories.Stock{}
	err := s.cache.FetchJSON(ctx, s.key(companyID, "category_stock"), &out, func(ctx context.Context) (any, error) {
		return s.src.Categories.StockByCategory(ctx, companyID)
	})
	return out, err
}

// ShipmentStats returns invoiced quantities per product and month.
func (s *Service) ShipmentStats(ctx context.Context, companyID int64) ([]shipments.MonthlyStat, error) {
	out := []shipments.MonthlyStat{}
	err := s.cache.FetchJSON(ctx, s.key(companyID, "shipment_stats"), &out, func(ctx context.Context) (any, error) {
		return s.src.Shipments.Stats(ctx, companyID)
	})
	return out, err
}

// InvoiceCount returns the number of invoices raised.
func (s *Service) InvoiceCount(ctx context.Context, companyID int64) (int, error) {
	var out int
	err := s.cache.FetchJSON(ctx, s.key(companyID, "invoice_count"), &out, func(ctx context.Context) (any, error) {
		return s.src.Invoices.Count(ctx, companyID)
	})
	return out, err
}

// Overview loads all widgets concurrently.
func (s *Service) Overview(ctx context.Context, companyID int64) (Overview, error) {
	var o Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Counts, err = s.Counts(ctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		o.CategoryStock, err = s.CategoryStock(ctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		o.ShipmentStats, err = s.ShipmentStats(ctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		o.InvoiceCount, err = s.InvoiceCount(ctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, fmt.Errorf("dashboard overview: %w", err)
	}
	return o, nil
}

// RecentActions returns the latest audit entries. They are never cached.
func (s *Service) RecentActions(ctx context.Context, companyID int64, limit int) ([]shared.AuditLog, error) {
	if s.src.Activity == nil {
		return []shared.AuditLog{}, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.src.Activity.Recent(ctx, companyID, limit)
}

// Invalidate drops the cached widgets of a company.
func (s *Service) Invalidate(ctx context.Context, companyID int64) {
	if err := s.cache.Invalidate(ctx, strconv.FormatInt(companyID, 10), ""); err != nil {
		s.logger.Warn("invalidate dashboard cache", slog.Int64("company_id", companyID), slog.Any("error", err))
	}
}
