package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vendorflow/vendorflow/internal/shared"
)

// Store exposes the persistence operations used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	Movements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Service exposes standalone inventory operations: manual receipts, full
// reconciliation and the movement ledger.
type Service struct {
	store  Store
	ledger *Ledger
	locker Locker
	logger *slog.Logger
}

// NewService builds the inventory service.
func NewService(store Store, ledger *Ledger, locker Locker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if ledger == nil {
		ledger = NewLedger(logger)
	}
	return &Service{store: store, ledger: ledger, locker: locker, logger: logger}
}

// Ledger returns the shared ledger.
func (s *Service) Ledger() *Ledger { return s.ledger }

// Lock takes the company inventory lock. The release func is never nil.
func (s *Service) Lock(ctx context.Context, companyID int64) func() {
	return Acquire(ctx, s.locker, companyID)
}

// Acquire takes the company inventory lock on locker, tolerating a nil locker.
func Acquire(ctx context.Context, locker Locker, companyID int64) func() {
	if locker == nil {
		return func() {}
	}
	return locker.Acquire(ctx, shared.InventoryLockKey(companyID))
}

// Receive adds stock to a product of the company.
func (s *Service) Receive(ctx context.Context, companyID, productID, qty int64) (Counters, error) {
	release := s.Lock(ctx, companyID)
	defer release()

	var out Counters
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		c, err := s.ledger.Receive(ctx, tx, productID, qty)
		if err != nil {
			return err
		}
		if c.CompanyID != companyID {
			return fmt.Errorf("%w: %d", ErrForeignProduct, productID)
		}
		out = c
		return nil
	})
	if err != nil {
		return Counters{}, fmt.Errorf("receive stock: %w", err)
	}
	s.logger.Info("stock received",
		slog.Int64("company_id", companyID),
		slog.Int64("product_id", productID),
		slog.Int64("quantity", qty))
	return out, nil
}

// ReconcileCompany recomputes required quantities and statuses of every product.
func (s *Service) ReconcileCompany(ctx context.Context, companyID int64) ([]Counters, error) {
	release := s.Lock(ctx, companyID)
	defer release()

	var out []Counters
	err := s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		var err error
		out, err = s.ledger.ReconcileCompany(ctx, tx, companyID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile company: %w", err)
	}
	return out, nil
}

// Movements lists ledger rows of a company.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.CompanyID <= 0 {
		return nil, fmt.Errorf("%w: company required", ErrInvalidSource)
	}
	return s.store.Movements(ctx, filter)
}
