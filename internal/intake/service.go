package intake

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// SyncScheduler queues the export of a new product to the creator's ERP.
type SyncScheduler interface {
	ScheduleProductSync(ctx context.Context, productID, userID int64) error
}

// Options carries the optional collaborators of Service.
type Options struct {
	Locker inventory.Locker
	Sync   SyncScheduler
	Audit  shared.AuditRecorder
	Logger *slog.Logger
}

// Result describes the product a label was booked against.
type Result struct {
	ProductID  int64            `json:"product_id"`
	Name       string           `json:"name"`
	Category   string           `json:"category"`
	Created    bool             `json:"created"`
	Received   int64            `json:"received"`
	Available  int64            `json:"available_quantity"`
	Required   int64            `json:"total_required_quantity"`
	StockState inventory.Status `json:"status"`
}

// Service books QR labels into stock.
type Service struct {
	store  Store
	ledger *inventory.Ledger
	locker inventory.Locker
	sync   SyncScheduler
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, ledger *inventory.Ledger, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if ledger == nil {
		ledger = inventory.NewLedger(opts.Logger)
	}
	return &Service{
		store:  store,
		ledger: ledger,
		locker: opts.Locker,
		sync:   opts.Sync,
		audit:  opts.Audit,
		logger: opts.Logger,
	}
}

// StoreQR parses a label, finds or creates its category and product and receives the
// quantity into available stock.
func (s *Service) StoreQR(ctx context.Context, actor shared.Principal, companyID int64, text string) (Result, error) {
	entry, err := Parse(text)
	if err != nil {
		return Result{}, err
	}

	if s.locker != nil {
		release := s.locker.Acquire(ctx, shared.IntakeLockKey(companyID, entry.Name))
		defer release()
	}
	release := inventory.Acquire(ctx, s.locker, companyID)
	defer release()

	res := Result{Name: entry.Name, Category: entry.Category, Received: entry.Quantity}
	err = s.store.WithTx(ctx, func(ctx context.Context, tx TxStore) error {
		categoryID, err := tx.GetOrCreateCategory(ctx, companyID, entry.Category)
		if err != nil {
			return fmt.Errorf("category: %w", err)
		}
		candidates, err := tx.ProductsNamed(ctx, companyID, entry.Name)
		if err != nil {
			return fmt.Errorf("find product: %w", err)
		}
		res.ProductID, res.Name = pick(candidates, entry.Name, categoryID)
		if res.ProductID == 0 {
			res.ProductID, err = tx.CreateProduct(ctx, companyID, categoryID, entry.Name, actor.UserID)
			if err != nil {
				return fmt.Errorf("create product: %w", err)
			}
			res.Created = true
		}
		c, err := s.ledger.Receive(ctx, tx.Inventory(), res.ProductID, entry.Quantity)
		if err != nil {
			return err
		}
		res.Available, res.Required, res.StockState = c.Available, c.Required, c.Status
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("store qr: %w", err)
	}

	s.logger.Info("qr intake booked",
		slog.Int64("company_id", companyID),
		slog.Int64("product_id", res.ProductID),
		slog.Int64("quantity", entry.Quantity),
		slog.Bool("created", res.Created))
	if res.Created && s.sync != nil {
		if err := s.sync.ScheduleProductSync(ctx, res.ProductID, actor.UserID); err != nil {
			s.logger.Warn("schedule product sync", slog.Int64("product_id", res.ProductID), slog.Any("error", err))
		}
	}
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: companyID,
		Action:    "intake.qr",
		Entity:    "product",
		EntityID:  strconv.FormatInt(res.ProductID, 10),
		Meta:      map[string]any{"quantity": entry.Quantity, "created": res.Created},
	})
	return res, nil
}

// pick prefers a product in the label's category, then the oldest name match.
func pick(candidates []ProductRef, name string, categoryID int64) (int64, string) {
	var fallback *ProductRef
	for i := range candidates {
		p := &candidates[i]
		if !SameName(p.Name, name) {
			continue
		}
		if p.CategoryID != nil && *p.CategoryID == categoryID {
			return p.ID, p.Name
		}
		if fallback == nil {
			fallback = p
		}
	}
	if fallback != nil {
		return fallback.ID, fallback.Name
	}
	return 0, name
}
