package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/vendorflow/vendorflow/internal/shared"
	"github.com/vendorflow/vendorflow/jobs"
)

// Service stores credentials and runs product exports.
type Service struct {
	store      Store
	rpc        RPC
	defaultURL string
	logger     *slog.Logger
}

// NewService constructs Service. defaultURL applies to credentials saved without a URL.
func NewService(store Store, rpc RPC, defaultURL string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, rpc: rpc, defaultURL: strings.TrimRight(defaultURL, "/"), logger: logger}
}

// SaveCredentials replaces the caller's Odoo credentials.
func (s *Service) SaveCredentials(ctx context.Context, actor shared.Principal, req SaveRequest) (Credentials, error) {
	creds, err := s.store.SaveCredentials(ctx, Credentials{
		UserID:   actor.UserID,
		URL:      strings.TrimRight(strings.TrimSpace(req.URL), "/"),
		DB:       strings.TrimSpace(req.DB),
		Username: strings.TrimSpace(req.Username),
		Password: req.Password,
	})
	if err != nil {
		return Credentials{}, fmt.Errorf("save odoo credentials: %w", err)
	}
	s.logger.Info("odoo credentials saved", slog.Int64("user_id", actor.UserID))
	return creds, nil
}

// GetCredentials returns the caller's credentials without the password.
func (s *Service) GetCredentials(ctx context.Context, actor shared.Principal) (Credentials, error) {
	return s.store.Credentials(ctx, actor.UserID)
}

// SyncProduct exports one product with the credentials of userID and returns the Odoo id.
func (s *Service) SyncProduct(ctx context.Context, productID, userID int64) (int64, error) {
	creds, err := s.store.Credentials(ctx, userID)
	if err != nil {
		return 0, err
	}
	if creds.URL == "" {
		creds.URL = s.defaultURL
	}
	product, err := s.store.Product(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("load product: %w", err)
	}
	uid, err := s.rpc.Authenticate(ctx, creds)
	if err != nil {
		return 0, err
	}
	return s.rpc.CreateProduct(ctx, creds, uid, product)
}

// HandleProductSync processes odoo:product.sync tasks. Export failures are logged and
// swallowed so the task is never retried.
func (s *Service) HandleProductSync(ctx context.Context, t *asynq.Task) error {
	var payload jobs.ProductSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	logger := s.logger.With(
		slog.String("job", jobs.TaskTypeProductSync),
		slog.Int64("product_id", payload.ProductID),
		slog.Int64("user_id", payload.UserID))
	if payload.UserID <= 0 {
		logger.Info("product has no creator, skipping odoo sync")
		return nil
	}
	odooID, err := s.SyncProduct(ctx, payload.ProductID, payload.UserID)
	switch {
	case errors.Is(err, ErrNoCredentials):
		logger.Info("no odoo credentials, skipping sync")
	case err != nil:
		logger.Error("odoo sync failed", slog.Any("error", err))
	default:
		logger.Info("product synced to odoo", slog.Int64("odoo_id", odooID))
	}
	return nil
}
