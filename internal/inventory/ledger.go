package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// Ledger owns every mutation of product stock counters. All of its methods run inside
// the caller's transaction so the counters change together with the order, shipment
// or invoice row that caused them.
type Ledger struct {
	logger *slog.Logger
}

// NewLedger constructs a Ledger.
func NewLedger(logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{logger: logger}
}

// Reconcile recomputes required quantity and status for the given products.
func (l *Ledger) Reconcile(ctx context.Context, tx TxStore, productIDs ...int64) ([]Counters, error) {
	ids := uniqueSorted(productIDs)
	if len(ids) == 0 {
		return nil, nil
	}
	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	return l.reconcileLocked(ctx, tx, locked)
}

// ReconcileCompany recomputes every product of a company.
func (l *Ledger) ReconcileCompany(ctx context.Context, tx TxStore, companyID int64) ([]Counters, error) {
	ids, err := tx.CompanyProductIDs(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("company products: %w", err)
	}
	return l.Reconcile(ctx, tx, ids...)
}

// SyncStockOut makes the recorded stock-out of src equal lines. Only the difference
// against what was already recorded touches the counters, so repeating a call with the
// same lines is a no-op.
func (l *Ledger) SyncStockOut(ctx context.Context, tx TxStore, companyID int64, src Source, lines []Line) ([]Counters, error) {
	if !src.Valid() {
		return nil, ErrInvalidSource
	}
	wanted, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}
	existing, err := tx.ListMovements(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	recorded := make(map[int64]int64, len(existing))
	for _, m := range existing {
		recorded[m.ProductID] = m.Quantity
	}

	ids := make([]int64, 0, len(wanted)+len(recorded))
	for id := range wanted {
		ids = append(ids, id)
	}
	for id := range recorded {
		ids = append(ids, id)
	}
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return nil, nil
	}

	locked, err := tx.LockProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}
	byID := make(map[int64]*Counters, len(locked))
	for i := range locked {
		byID[locked[i].ProductID] = &locked[i]
	}

	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			if _, stillWanted := wanted[id]; stillWanted {
				return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, id)
			}
			// product deleted since the movement was recorded
			continue
		}
		if c.CompanyID != companyID {
			return nil, fmt.Errorf("%w: %d", ErrForeignProduct, id)
		}
		delta := wanted[id] - recorded[id]
		switch {
		case delta > 0:
			if c.Available < delta {
				l.logger.Warn("stock-out exceeds available quantity; clamping at zero",
					slog.Int64("product_id", id),
					slog.Int64("available", c.Available),
					slog.Int64("requested", delta),
					slog.String("source", src.String()))
			}
			c.Available = max(0, c.Available-delta)
			c.Shipped += delta
		case delta < 0:
			c.Available -= delta
			c.Shipped = max(0, c.Shipped+delta)
		default:
			continue
		}

		if qty := wanted[id]; qty > 0 {
			err = tx.PutMovement(ctx, Movement{CompanyID: companyID, Source: src, ProductID: id, Quantity: qty})
		} else {
			err = tx.DeleteMovement(ctx, src, id)
		}
		if err != nil {
			return nil, fmt.Errorf("record movement: %w", err)
		}
	}

	return l.reconcileLocked(ctx, tx, locked)
}

// ReleaseStockOut returns everything recorded for src to available stock.
func (l *Ledger) ReleaseStockOut(ctx context.Context, tx TxStore, companyID int64, src Source) ([]Counters, error) {
	return l.SyncStockOut(ctx, tx, companyID, src, nil)
}

// Receive adds qty to available stock.
func (l *Ledger) Receive(ctx context.Context, tx TxStore, productID, qty int64) (Counters, error) {
	if qty <= 0 {
		return Counters{}, ErrInvalidQuantity
	}
	return l.adjust(ctx, tx, productID, func(c *Counters) { c.Available += qty })
}

// SetAvailable overwrites available stock.
func (l *Ledger) SetAvailable(ctx context.Context, tx TxStore, productID, qty int64) (Counters, error) {
	if qty < 0 {
		return Counters{}, fmt.Errorf("%w: available quantity cannot be negative", ErrInvalidQuantity)
	}
	return l.adjust(ctx, tx, productID, func(c *Counters) { c.Available = qty })
}

func (l *Ledger) adjust(ctx context.Context, tx TxStore, productID int64, apply func(*Counters)) (Counters, error) {
	locked, err := tx.LockProducts(ctx, []int64{productID})
	if err != nil {
		return Counters{}, fmt.Errorf("lock products: %w", err)
	}
	if len(locked) == 0 {
		return Counters{}, fmt.Errorf("%w: %d", ErrUnknownProduct, productID)
	}
	apply(&locked[0])
	out, err := l.reconcileLocked(ctx, tx, locked)
	if err != nil {
		return Counters{}, err
	}
	return out[0], nil
}

func (l *Ledger) reconcileLocked(ctx context.Context, tx TxStore, locked []Counters) ([]Counters, error) {
	if len(locked) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(locked))
	for i, c := range locked {
		ids[i] = c.ProductID
	}
	demand, err := tx.OpenDemand(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("open demand: %w", err)
	}
	out := make([]Counters, 0, len(locked))
	for _, c := range locked {
		c.Required = demand[c.ProductID]
		c.Status = DeriveStatus(c.Required, c.Available)
		if err := tx.SaveCounters(ctx, c); err != nil {
			return nil, fmt.Errorf("save counters: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}

func mergeLines(lines []Line) (map[int64]int64, error) {
	merged := make(map[int64]int64, len(lines))
	for _, line := range lines {
		if line.ProductID <= 0 {
			return nil, fmt.Errorf("%w: %d", ErrUnknownProduct, line.ProductID)
		}
		if line.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		merged[line.ProductID] += line.Quantity
	}
	return merged, nil
}

func uniqueSorted(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
