package invoicing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/events"
	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Options carries the optional collaborators of Service.
type Options struct {
	Locker    inventory.Locker
	Publisher events.Publisher
	Audit     shared.AuditRecorder
	Logger    *slog.Logger
}

// Service raises GST invoices and posts their stock-out.
type Service struct {
	store     Store
	ledger    *inventory.Ledger
	locker    inventory.Locker
	publisher events.Publisher
	audit     shared.AuditRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs Service.
func NewService(store Store, ledger *inventory.Ledger, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(opts.Logger)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	return &Service{
		store:     store,
		ledger:    ledger,
		locker:    opts.Locker,
		publisher: opts.Publisher,
		audit:     opts.Audit,
		logger:    opts.Logger,
		now:       time.Now,
	}
}

// Create raises an invoice. An invoice for an order posts the order's stock-out under
// the order source, so it never doubles a delivery that already posted. A standalone
// invoice posts its own items under the invoice source.
func (s *Service) Create(ctx context.Context, actor shared.Principal, companyID int64, req CreateRequest) (Invoice, error) {
	req.Number = strings.TrimSpace(req.Number)
	if req.InvoiceDate.IsZero() {
		req.InvoiceDate = s.now()
	}
	if err := checkItems(req.Items); err != nil {
		return Invoice{}, err
	}

	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var created Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var order *orders.Order
		if req.OrderID != nil {
			o, err := tx.Orders().GetForUpdate(ctx, companyID, *req.OrderID)
			if err != nil {
				return err
			}
			if o.Status == orders.StatusCancelled {
				return ErrOrderCancelled
			}
			if req.RetailerID != 0 && req.RetailerID != o.RetailerID {
				return ErrRetailerMismatch
			}
			req.RetailerID = o.RetailerID
			order = &o
		}
		if req.RetailerID == 0 {
			return ErrRetailerRequired
		}
		items, err := s.price(ctx, tx, companyID, req.RetailerID, req.Items)
		if err != nil {
			return err
		}
		inv := Invoice{
			Number:              req.Number,
			CompanyID:           companyID,
			RetailerID:          req.RetailerID,
			OrderID:             req.OrderID,
			InvoiceDate:         req.InvoiceDate,
			DueDate:             req.DueDate,
			IsEInvoiceGenerated: req.IsEInvoiceGenerated,
			IRN:                 strings.TrimSpace(req.IRN),
			Totals:              SumTotals(items),
			PaymentMode:         defaultMode(req.PaymentMode),
			PaymentStatus:       defaultStatus(req.PaymentStatus),
			Items:               items,
			CreatedBy:           actor.UserID,
		}
		created, err = tx.Create(ctx, inv)
		if errors.Is(err, httpx.ErrDuplicate) {
			return ErrDuplicateNumber
		}
		if err != nil {
			return err
		}
		if order != nil {
			_, err = s.ledger.SyncStockOut(ctx, tx.Orders().Inventory(), companyID, inventory.OrderSource(order.ID), orderLines(*order))
		} else {
			_, err = s.ledger.SyncStockOut(ctx, tx.Orders().Inventory(), companyID, inventory.InvoiceSource(created.ID), invoiceLines(items))
		}
		return err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	s.logger.Info("invoice created",
		slog.Int64("invoice_id", created.ID),
		slog.Int64("company_id", companyID),
		slog.String("grand_total", created.Totals.Grand.StringFixed(2)))
	events.PublishQuietly(ctx, s.publisher, s.logger, events.New(events.InvoiceCreated, companyID, map[string]any{
		"invoice_id":     created.ID,
		"invoice_number": created.Number,
		"order_id":       created.OrderID,
		"grand_total":    created.Totals.Grand,
	}))
	s.record(ctx, actor, "create", created)
	return created, nil
}

// Update re-prices a standalone invoice and applies only the stock difference.
func (s *Service) Update(ctx context.Context, actor shared.Principal, companyID, id int64, req UpdateRequest) (Invoice, error) {
	if err := checkItems(req.Items); err != nil {
		return Invoice{}, err
	}

	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var updated Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		inv, err := tx.ForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !inv.Standalone() {
			return ErrLinkedInvoice
		}
		items, err := s.price(ctx, tx, companyID, inv.RetailerID, req.Items)
		if err != nil {
			return err
		}
		inv.DueDate = req.DueDate
		inv.IsEInvoiceGenerated = req.IsEInvoiceGenerated
		inv.IRN = strings.TrimSpace(req.IRN)
		inv.PaymentMode = defaultMode(req.PaymentMode)
		inv.PaymentStatus = defaultStatus(req.PaymentStatus)
		inv.Items = items
		inv.Totals = SumTotals(items)
		if err := tx.Update(ctx, inv); err != nil {
			return err
		}
		if _, err := s.ledger.SyncStockOut(ctx, tx.Orders().Inventory(), companyID, inventory.InvoiceSource(inv.ID), invoiceLines(items)); err != nil {
			return err
		}
		updated, err = tx.ForUpdate(ctx, companyID, id)
		return err
	})
	if err != nil {
		return Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	s.record(ctx, actor, "update", updated)
	return updated, nil
}

// Delete removes an invoice. Stock goes back only for standalone invoices; an order's
// stock-out belongs to the order.
func (s *Service) Delete(ctx context.Context, actor shared.Principal, companyID, id int64) error {
	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var deleted Invoice
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		inv, err := tx.ForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		deleted = inv
		if inv.Standalone() {
			if _, err := s.ledger.ReleaseStockOut(ctx, tx.Orders().Inventory(), companyID, inventory.InvoiceSource(inv.ID)); err != nil {
				return err
			}
		}
		return tx.Delete(ctx, inv.ID)
	})
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.record(ctx, actor, "delete", deleted)
	return nil
}

// Get returns one invoice of a company.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Invoice, error) {
	return s.store.Get(ctx, companyID, id)
}

// List returns a page of the company's invoices.
func (s *Service) List(ctx context.Context, f Filter) (shared.Page[Invoice], error) {
	if f.PaymentStatus != "" && !validStatus(f.PaymentStatus) {
		return shared.Page[Invoice]{}, fmt.Errorf("%w: unknown payment status %q", httpx.ErrValidation, f.PaymentStatus)
	}
	f.Page, f.PerPage = shared.NormalizePage(f.Page, f.PerPage)
	items, total, err := s.store.List(ctx, f)
	if err != nil {
		return shared.Page[Invoice]{}, err
	}
	return shared.Page[Invoice]{Items: items, Pagination: shared.NewPagination(f.Page, f.PerPage, total)}, nil
}

// Count returns the number of invoices a company has raised.
func (s *Service) Count(ctx context.Context, companyID int64) (int, error) {
	return s.store.Count(ctx, companyID)
}

// Aging buckets the company's unpaid and partially paid invoices by days overdue.
func (s *Service) Aging(ctx context.Context, companyID int64, asOf time.Time) (AgingBucket, error) {
	open, err := s.store.Outstanding(ctx, companyID)
	if err != nil {
		return AgingBucket{}, err
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	return Age(open, asOf), nil
}

func (s *Service) price(ctx context.Context, tx TxStore, companyID, retailerID int64, inputs []ItemInput) ([]Item, error) {
	parties, err := tx.Parties(ctx, companyID, retailerID)
	if errors.Is(err, httpx.ErrNotFound) {
		return nil, ErrUnknownRetailer
	}
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(inputs))
	for i, in := range inputs {
		ids[i] = in.ProductID
	}
	products, err := tx.Products(ctx, ids)
	if err != nil {
		return nil, err
	}
	intra := parties.IntraState()
	items := make([]Item, 0, len(inputs))
	for _, in := range inputs {
		p, ok := products[in.ProductID]
		if !ok || p.CompanyID != companyID {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, in.ProductID)
		}
		price := p.Price
		if in.Price != nil {
			price = *in.Price
		}
		items = append(items, ComputeItem(p, in.Quantity, price, intra))
	}
	return items, nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, action string, inv Invoice) {
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: inv.CompanyID,
		Action:    action,
		Entity:    "invoice",
		EntityID:  strconv.FormatInt(inv.ID, 10),
		Meta: map[string]any{
			"invoice_number": inv.Number,
			"grand_total":    inv.Totals.Grand.StringFixed(2),
		},
	})
}

func checkItems(items []ItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", httpx.ErrValidation)
	}
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity must be positive", httpx.ErrValidation)
		}
		if it.Price != nil && it.Price.LessThan(decimal.Zero) {
			return ErrNegativePrice
		}
		if _, dup := seen[it.ProductID]; dup {
			return ErrDuplicateProduct
		}
		seen[it.ProductID] = struct{}{}
	}
	return nil
}

func orderLines(o orders.Order) []inventory.Line {
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func invoiceLines(items []Item) []inventory.Line {
	lines := make([]inventory.Line, 0, len(items))
	for _, it := range items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return lines
}

func defaultMode(m PaymentMode) PaymentMode {
	if m == "" {
		return PaymentCash
	}
	return m
}

func defaultStatus(st PaymentStatus) PaymentStatus {
	if st == "" {
		return StatusUnpaid
	}
	return st
}

func validStatus(st PaymentStatus) bool {
	switch st {
	case StatusPaid, StatusUnpaid, StatusPartial:
		return true
	}
	return false
}
