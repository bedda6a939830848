package products

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	core "github.com/vendorflow/vendorflow/internal/shared"
)

// SyncScheduler queues the export of a new product to the creator's ERP.
type SyncScheduler interface {
	ScheduleProductSync(ctx context.Context, productID, userID int64) error
}

type Service struct {
	repo   Repository
	ledger *inventory.Ledger
	locker inventory.Locker
	sync   SyncScheduler
	audit  core.AuditRecorder
	logger *slog.Logger
}

// Options carries the optional collaborators of Service.
type Options struct {
	Locker inventory.Locker
	Sync   SyncScheduler
	Audit  core.AuditRecorder
	Logger *slog.Logger
}

func NewService(repo Repository, ledger *inventory.Ledger, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(opts.Logger)
	}
	return &Service{repo: repo, ledger: ledger, locker: opts.Locker, sync: opts.Sync, audit: opts.Audit, logger: opts.Logger}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	if filters.CompanyID <= 0 {
		return nil, 0, shared.Required("company")
	}
	if filters.Status != "" && filters.Status != string(inventory.StatusSufficient) && filters.Status != string(inventory.StatusOnDemand) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", shared.ErrValidation, filters.Status)
	}
	return s.repo.List(ctx, filters)
}

// LowStock lists the company's products whose open demand exceeds available stock.
func (s *Service) LowStock(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	filters.Status = string(inventory.StatusOnDemand)
	return s.List(ctx, filters)
}

// Catalog lists what a retailer can order: in-stock products of connected companies.
func (s *Service) Catalog(ctx context.Context, actor core.Principal, filters shared.ListFilters) ([]CatalogItem, int, error) {
	if actor.UserID <= 0 {
		return nil, 0, core.ErrNoPrincipal
	}
	items, total, err := s.repo.Catalog(ctx, actor.UserID, filters)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []CatalogItem{}
	}
	return items, total, nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, companyID, id)
}

// Create stores the product and schedules the ERP export. Export scheduling
// failures are logged only.
func (s *Service) Create(ctx context.Context, actor core.Principal, product Product) (Product, error) {
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	product.CreatedBy = &actor.UserID

	var created Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := checkCategory(ctx, tx, product); err != nil {
			return err
		}
		var err error
		created, err = tx.Create(ctx, product)
		return err
	})
	if err != nil {
		return Product{}, err
	}

	if s.sync != nil {
		if err := s.sync.ScheduleProductSync(ctx, created.ID, actor.UserID); err != nil {
			s.logger.Warn("schedule product sync", slog.Int64("product_id", created.ID), slog.Any("error", err))
		}
	}
	s.record(ctx, actor, created, "create")
	return created, nil
}

// Update replaces the editable fields. A changed available quantity is applied
// through the inventory ledger so status stays consistent.
func (s *Service) Update(ctx context.Context, actor core.Principal, id int64, product Product, available *int64) (Product, error) {
	if id <= 0 {
		return Product{}, shared.ErrInvalidID
	}
	if err := s.validate(&product); err != nil {
		return Product{}, err
	}
	product.ID = id

	release := inventory.Acquire(ctx, s.locker, product.CompanyID)
	defer release()

	var updated Product
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Get(ctx, product.CompanyID, id)
		if err != nil {
			return err
		}
		if err := checkCategory(ctx, tx, product); err != nil {
			return err
		}
		if err := tx.Update(ctx, product); err != nil {
			return err
		}
		if available != nil && *available != current.Available {
			if _, err := s.ledger.SetAvailable(ctx, tx.Inventory(), id, *available); err != nil {
				return err
			}
		}
		updated, err = tx.Get(ctx, product.CompanyID, id)
		return err
	})
	if err != nil {
		return Product{}, err
	}
	s.record(ctx, actor, updated, "update")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, actor core.Principal, companyID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, companyID, id)
	})
	if err != nil {
		return err
	}
	s.record(ctx, actor, Product{ID: id, CompanyID: companyID}, "delete")
	return nil
}

// Units lists the accepted unit quantity codes.
func (s *Service) Units() []UnitOption {
	out := make([]UnitOption, 0, len(shared.Units))
	for code, desc := range shared.Units {
		out = append(out, UnitOption{Code: code, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

func checkCategory(ctx context.Context, tx TxRepository, p Product) error {
	if p.CategoryID == nil {
		return nil
	}
	ok, err := tx.CategoryExists(ctx, p.CompanyID, *p.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: category %d does not belong to the company", shared.ErrValidation, *p.CategoryID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, actor core.Principal, p Product, action string) {
	core.RecordQuietly(ctx, s.audit, s.logger, core.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: p.CompanyID,
		Action:    action,
		Entity:    "product",
		EntityID:  strconv.FormatInt(p.ID, 10),
		Meta:      map[string]any{"name": p.Name},
	})
}
