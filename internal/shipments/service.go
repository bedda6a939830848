package shipments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/events"
	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// OrderLister lists orders; it is satisfied by orders.Service.
type OrderLister interface {
	List(ctx context.Context, f orders.Filter) (shared.Page[orders.Order], error)
}

// Options carries the optional collaborators of Service.
type Options struct {
	Locker    inventory.Locker
	Publisher events.Publisher
	Orders    OrderLister
	Audit     shared.AuditRecorder
	Logger    *slog.Logger
}

// Service moves orders through approval, allocation and delivery.
type Service struct {
	store     Store
	ledger    *inventory.Ledger
	locker    inventory.Locker
	publisher events.Publisher
	orders    OrderLister
	audit     shared.AuditRecorder
	logger    *slog.Logger
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
		orders:    opts.Orders,
		audit:     opts.Audit,
		logger:    opts.Logger,
	}
}

// Approve opens an unallocated in-transit shipment for a pending order.
func (s *Service) Approve(ctx context.Context, actor shared.Principal, companyID, orderID int64) (Shipment, error) {
	var created Shipment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		o, err := tx.Orders().GetForUpdate(ctx, companyID, orderID)
		if err != nil {
			return err
		}
		if o.Status != orders.StatusPending {
			return orders.ErrNotPending
		}
		if _, err := tx.ByOrderForUpdate(ctx, orderID); err == nil {
			return ErrShipmentExists
		} else if !errors.Is(err, httpx.ErrNotFound) {
			return err
		}
		created, err = tx.Create(ctx, orderID)
		return err
	})
	if err != nil {
		return Shipment{}, fmt.Errorf("approve order: %w", err)
	}
	events.PublishQuietly(ctx, s.publisher, s.logger, events.New(events.OrderApproved, companyID, map[string]any{
		"order_id":    orderID,
		"shipment_id": created.ID,
	}))
	s.record(ctx, actor, companyID, "approve", created)
	return created, nil
}

// Allocate assigns an employee with a truck to an approved order.
func (s *Service) Allocate(ctx context.Context, actor shared.Principal, companyID int64, req AllocateRequest) (Shipment, error) {
	var allocated Shipment
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		o, err := tx.Orders().GetForUpdate(ctx, companyID, req.OrderID)
		if err != nil {
			return err
		}
		sh, err := tx.ByOrderForUpdate(ctx, req.OrderID)
		if errors.Is(err, httpx.ErrNotFound) {
			return ErrNotApproved
		}
		if err != nil {
			return err
		}
		if sh.Allocated() {
			return ErrAlreadyAllocated
		}
		if !orders.CanTransition(o.Status, orders.StatusAllocated) {
			return orders.ErrInvalidTransition
		}
		emp, err := tx.Employee(ctx, req.EmployeeID)
		if errors.Is(err, httpx.ErrNotFound) {
			return ErrEmployeeNotEligible
		}
		if err != nil {
			return err
		}
		if emp.CompanyID != companyID && (emp.RetailerID == nil || *emp.RetailerID != o.RetailerID) {
			return ErrEmployeeNotEligible
		}
		if emp.TruckID == nil {
			return ErrNoTruck
		}
		if err := tx.SetEmployee(ctx, sh.ID, emp.ID); err != nil {
			return err
		}
		if err := tx.Orders().SetStatus(ctx, o.ID, orders.StatusAllocated); err != nil {
			return err
		}
		if err := tx.SetTruckAvailable(ctx, *emp.TruckID, false); err != nil {
			return err
		}
		allocated, err = tx.ForUpdate(ctx, sh.ID)
		return err
	})
	if err != nil {
		return Shipment{}, fmt.Errorf("allocate order: %w", err)
	}
	s.logger.Info("order allocated",
		slog.Int64("order_id", req.OrderID),
		slog.Int64("employee_id", req.EmployeeID))
	s.record(ctx, actor, companyID, "allocate", allocated)
	return allocated, nil
}

// UpdateStatus applies a shipment status change and its cascades: delivery posts the
// order's stock-out, and the employee's truck is freed once nothing else is in transit.
func (s *Service) UpdateStatus(ctx context.Context, actor shared.Principal, upd StatusUpdate) (Shipment, error) {
	current, err := s.store.Get(ctx, upd.ShipmentID)
	if err != nil {
		return Shipment{}, err
	}
	if upd.CompanyID > 0 && current.CompanyID != upd.CompanyID {
		return Shipment{}, shared.ErrNotFound
	}

	release := inventory.Acquire(ctx, s.locker, current.CompanyID)
	defer release()

	var (
		updated Shipment
		from    Status
	)
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		sh, err := tx.ForUpdate(ctx, upd.ShipmentID)
		if err != nil {
			return err
		}
		from = sh.Status
		if upd.EmployeeID > 0 && (sh.EmployeeID == nil || *sh.EmployeeID != upd.EmployeeID) {
			return ErrNotAssignee
		}
		if !CanTransition(sh.Status, upd.Status) {
			return ErrInvalidTransition
		}
		if upd.Status == StatusDelivered && !sh.Allocated() {
			return ErrNotAllocated
		}
		if err := tx.SetStatus(ctx, sh.ID, upd.Status); err != nil {
			return err
		}
		if upd.Status == StatusDelivered {
			if err := s.deliver(ctx, tx, sh); err != nil {
				return err
			}
		}
		if err := s.syncTruck(ctx, tx, sh, upd.Status); err != nil {
			return err
		}
		updated, err = tx.ForUpdate(ctx, sh.ID)
		return err
	})
	if err != nil {
		return Shipment{}, fmt.Errorf("update shipment status: %w", err)
	}

	s.logger.Info("shipment status changed",
		slog.Int64("shipment_id", updated.ID),
		slog.String("from", string(from)),
		slog.String("to", string(updated.Status)))
	events.PublishQuietly(ctx, s.publisher, s.logger, events.New(events.ShipmentStatusChanged, updated.CompanyID, map[string]any{
		"shipment_id": updated.ID,
		"order_id":    updated.OrderID,
		"from":        from,
		"to":          updated.Status,
	}))
	s.record(ctx, actor, updated.CompanyID, "status."+string(updated.Status), updated)
	return updated, nil
}

func (s *Service) deliver(ctx context.Context, tx TxStore, sh Shipment) error {
	o, err := tx.Orders().GetForUpdate(ctx, sh.CompanyID, sh.OrderID)
	if err != nil {
		return err
	}
	if !orders.CanTransition(o.Status, orders.StatusDelivered) {
		return orders.ErrInvalidTransition
	}
	if err := tx.Orders().SetStatus(ctx, o.ID, orders.StatusDelivered); err != nil {
		return err
	}
	lines := make([]inventory.Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, inventory.Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	_, err = s.ledger.SyncStockOut(ctx, tx.Orders().Inventory(), sh.CompanyID, inventory.OrderSource(o.ID), lines)
	return err
}

func (s *Service) syncTruck(ctx context.Context, tx TxStore, sh Shipment, to Status) error {
	if !sh.Allocated() {
		return nil
	}
	emp, err := tx.Employee(ctx, *sh.EmployeeID)
	if errors.Is(err, httpx.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if emp.TruckID == nil {
		return nil
	}
	switch to {
	case StatusInTransit:
		return tx.SetTruckAvailable(ctx, *emp.TruckID, false)
	case StatusDelivered, StatusFailed:
		busy, err := tx.OtherInTransit(ctx, emp.ID, sh.ID)
		if err != nil {
			return err
		}
		if !busy {
			return tx.SetTruckAvailable(ctx, *emp.TruckID, true)
		}
	}
	return nil
}

// List returns the company's shipments.
func (s *Service) List(ctx context.Context, companyID int64) ([]Shipment, error) {
	return s.store.List(ctx, companyID)
}

// EmployeeID resolves the employee record of a user.
func (s *Service) EmployeeID(ctx context.Context, userID int64) (int64, error) {
	id, err := s.store.EmployeeIDForUser(ctx, userID)
	if errors.Is(err, httpx.ErrNotFound) {
		return 0, fmt.Errorf("%w: employee record not found", httpx.ErrNotFound)
	}
	return id, err
}

// EmployeeShipments returns the shipments assigned to the user's employee record.
func (s *Service) EmployeeShipments(ctx context.Context, userID int64) ([]Shipment, error) {
	id, err := s.EmployeeID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ByEmployee(ctx, id)
}

// EmployeeOrders returns a page of orders carried by the user's employee record.
func (s *Service) EmployeeOrders(ctx context.Context, userID int64, page, perPage int) (shared.Page[orders.Order], error) {
	id, err := s.EmployeeID(ctx, userID)
	if err != nil {
		return shared.Page[orders.Order]{}, err
	}
	if s.orders == nil {
		return shared.Page[orders.Order]{}, errors.New("order lister not configured")
	}
	return s.orders.List(ctx, orders.Filter{EmployeeID: id, Page: page, PerPage: perPage})
}

// Stats returns monthly invoiced quantities per product.
func (s *Service) Stats(ctx context.Context, companyID int64) ([]MonthlyStat, error) {
	return s.store.MonthlyStats(ctx, companyID)
}

func (s *Service) record(ctx context.Context, actor shared.Principal, companyID int64, action string, sh Shipment) {
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: companyID,
		Action:    action,
		Entity:    "shipment",
		EntityID:  strconv.FormatInt(sh.ID, 10),
		Meta:      map[string]any{"order_id": sh.OrderID},
	})
}
