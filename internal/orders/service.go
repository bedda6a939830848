package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vendorflow/vendorflow/internal/events"
	"github.com/vendorflow/vendorflow/internal/inventory"
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

// Service places and maintains orders. Every write reconciles the products it touches.
type Service struct {
	repo      Repository
	ledger    *inventory.Ledger
	locker    inventory.Locker
	publisher events.Publisher
	audit     shared.AuditRecorder
	logger    *slog.Logger
}

// NewService constructs Service.
func NewService(repo Repository, ledger *inventory.Ledger, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(opts.Logger)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.Noop{}
	}
	return &Service{repo: repo, ledger: ledger, locker: opts.Locker, publisher: opts.Publisher, audit: opts.Audit, logger: opts.Logger}
}

// Place creates a pending order for one of the company's retailers.
func (s *Service) Place(ctx context.Context, actor shared.Principal, companyID int64, req PlaceRequest) (Order, error) {
	return s.place(ctx, actor, companyID, req.Items, func(ctx context.Context, tx TxRepository) (int64, *ConnectionRef, error) {
		ok, err := tx.RetailerBelongs(ctx, companyID, req.RetailerID)
		if err != nil {
			return 0, nil, err
		}
		if !ok {
			return 0, nil, ErrUnknownRetailer
		}
		return req.RetailerID, nil, nil
	})
}

// PlaceAsRetailer creates a pending order through the caller's approved connection.
func (s *Service) PlaceAsRetailer(ctx context.Context, actor shared.Principal, companyID int64, req RetailerPlaceRequest) (Order, error) {
	return s.place(ctx, actor, companyID, req.Items, func(ctx context.Context, tx TxRepository) (int64, *ConnectionRef, error) {
		conn, err := tx.ConnectionFor(ctx, companyID, actor.UserID)
		if errors.Is(err, httpx.ErrNotFound) {
			return 0, nil, ErrNotConnected
		}
		if err != nil {
			return 0, nil, err
		}
		switch conn.Status {
		case "approved":
			return conn.RetailerID, &conn, nil
		case "suspended":
			return 0, nil, ErrConnectionSuspended
		default:
			return 0, nil, ErrNotConnected
		}
	})
}

type retailerResolver func(context.Context, TxRepository) (int64, *ConnectionRef, error)

func (s *Service) place(ctx context.Context, actor shared.Principal, companyID int64, in []ItemInput, resolve retailerResolver) (Order, error) {
	items, err := normalizeItems(in)
	if err != nil {
		return Order{}, err
	}

	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var placed Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		retailerID, conn, err := resolve(ctx, tx)
		if err != nil {
			return err
		}
		value, err := checkProducts(ctx, tx, companyID, items)
		if err != nil {
			return err
		}
		o := Order{CompanyID: companyID, RetailerID: retailerID, PlacedBy: actor.UserID, Status: StatusPending, Items: items}
		if conn != nil {
			o.ConnectionID = &conn.ID
		}
		placed, err = tx.Create(ctx, o)
		if err != nil {
			return err
		}
		if conn != nil {
			if err := tx.BumpConnection(ctx, conn.ID, value); err != nil {
				return fmt.Errorf("update connection totals: %w", err)
			}
		}
		_, err = s.ledger.Reconcile(ctx, tx.Inventory(), placed.ProductIDs()...)
		return err
	})
	if err != nil {
		return Order{}, fmt.Errorf("place order: %w", err)
	}

	s.logger.Info("order placed",
		slog.Int64("order_id", placed.ID),
		slog.Int64("company_id", companyID),
		slog.Int64("retailer_id", placed.RetailerID))
	events.PublishQuietly(ctx, s.publisher, s.logger, events.New(events.OrderPlaced, companyID, map[string]any{
		"order_id":    placed.ID,
		"retailer_id": placed.RetailerID,
		"items":       placed.Items,
	}))
	s.record(ctx, actor, placed, "create")
	return placed, nil
}

// List returns one page of the company's orders.
func (s *Service) List(ctx context.Context, f Filter) (shared.Page[Order], error) {
	if f.Status != "" && !f.Status.Valid() {
		return shared.Page[Order]{}, fmt.Errorf("%w: unknown status %q", httpx.ErrValidation, f.Status)
	}
	f.Page, f.PerPage = shared.NormalizePage(f.Page, f.PerPage)
	list, total, err := s.repo.List(ctx, f)
	if err != nil {
		return shared.Page[Order]{}, fmt.Errorf("list orders: %w", err)
	}
	if list == nil {
		list = []Order{}
	}
	return shared.Page[Order]{Items: list, Pagination: shared.NewPagination(f.Page, f.PerPage, total)}, nil
}

// Get returns one order with its items.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Order, error) {
	return s.repo.Get(ctx, companyID, id)
}

// ReplaceItems swaps the lines of a pending order.
func (s *Service) ReplaceItems(ctx context.Context, actor shared.Principal, companyID, id int64, req ReplaceItemsRequest) (Order, error) {
	items, err := normalizeItems(req.Items)
	if err != nil {
		return Order{}, err
	}

	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var updated Order
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}
		invoiced, err := tx.IsInvoiced(ctx, id)
		if err != nil {
			return err
		}
		if invoiced {
			return ErrInvoiced
		}
		if _, err := checkProducts(ctx, tx, companyID, items); err != nil {
			return err
		}
		if err := tx.ReplaceItems(ctx, id, items); err != nil {
			return err
		}
		updated, err = tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		touched := append(current.ProductIDs(), updated.ProductIDs()...)
		_, err = s.ledger.Reconcile(ctx, tx.Inventory(), touched...)
		return err
	})
	if err != nil {
		return Order{}, fmt.Errorf("replace order items: %w", err)
	}
	s.record(ctx, actor, updated, "update")
	return updated, nil
}

// Cancel moves an open, uninvoiced order to cancelled and releases its demand.
func (s *Service) Cancel(ctx context.Context, actor shared.Principal, companyID, id int64) (Order, error) {
	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	var cancelled Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetForUpdate(ctx, companyID, id)
		if err != nil {
			return err
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return ErrInvalidTransition
		}
		invoiced, err := tx.IsInvoiced(ctx, id)
		if err != nil {
			return err
		}
		if invoiced {
			return ErrInvoiced
		}
		if err := tx.SetStatus(ctx, id, StatusCancelled); err != nil {
			return err
		}
		// a deleted invoice leaves its stock-out under the order key
		if _, err := s.ledger.ReleaseStockOut(ctx, tx.Inventory(), companyID, inventory.OrderSource(id)); err != nil {
			return err
		}
		if _, err := s.ledger.Reconcile(ctx, tx.Inventory(), o.ProductIDs()...); err != nil {
			return err
		}
		o.Status = StatusCancelled
		cancelled = o
		return nil
	})
	if err != nil {
		return Order{}, fmt.Errorf("cancel order: %w", err)
	}
	s.logger.Info("order cancelled", slog.Int64("order_id", id), slog.Int64("company_id", companyID))
	s.record(ctx, actor, cancelled, "cancel")
	return cancelled, nil
}

// Counts returns the headline counters of a company.
func (s *Service) Counts(ctx context.Context, companyID int64) (Counts, error) {
	var c Counts
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c.OrdersPlaced, err = s.repo.CountOrders(ctx, companyID, "")
		return err
	})
	g.Go(func() (err error) {
		c.PendingOrders, err = s.repo.CountOrders(ctx, companyID, StatusPending)
		return err
	})
	g.Go(func() (err error) {
		c.EmployeesAvailable, err = s.repo.CountEmployees(ctx, companyID)
		return err
	})
	g.Go(func() (err error) {
		c.RetailersAvailable, err = s.repo.CountRetailers(ctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Counts{}, fmt.Errorf("order counts: %w", err)
	}
	return c, nil
}

func normalizeItems(in []ItemInput) ([]Item, error) {
	if len(in) == 0 {
		return nil, ErrNoItems
	}
	seen := make(map[int64]struct{}, len(in))
	items := make([]Item, 0, len(in))
	for _, it := range in {
		if it.ProductID <= 0 {
			return nil, fmt.Errorf("%w: %d", inventory.ErrUnknownProduct, it.ProductID)
		}
		if it.Quantity <= 0 {
			return nil, inventory.ErrInvalidQuantity
		}
		if _, dup := seen[it.ProductID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateProduct, it.ProductID)
		}
		seen[it.ProductID] = struct{}{}
		items = append(items, Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return items, nil
}

// checkProducts verifies ownership and returns the order value at current prices.
func checkProducts(ctx context.Context, tx TxRepository, companyID int64, items []Item) (decimal.Decimal, error) {
	ids := make([]int64, len(items))
	for i, it := range items {
		ids[i] = it.ProductID
	}
	products, err := tx.Products(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return decimal.Zero, fmt.Errorf("%w: %d", inventory.ErrUnknownProduct, it.ProductID)
		}
		if p.CompanyID != companyID {
			return decimal.Zero, fmt.Errorf("%w: %d", inventory.ErrForeignProduct, it.ProductID)
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}
	return total.Round(2), nil
}

func (s *Service) record(ctx context.Context, actor shared.Principal, o Order, action string) {
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: o.CompanyID,
		Action:    action,
		Entity:    "order",
		EntityID:  strconv.FormatInt(o.ID, 10),
		Meta:      map[string]any{"status": string(o.Status), "items": len(o.Items)},
	})
}
