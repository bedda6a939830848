package intake

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// ProductRef identifies an existing product.
type ProductRef struct {
	ID         int64
	Name       string
	CategoryID *int64
}

// Store opens intake transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore is bound to one transaction.
type TxStore interface {
	GetOrCreateCategory(ctx context.Context, companyID int64, name string) (int64, error)
	ProductsNamed(ctx context.Context, companyID int64, name string) ([]ProductRef, error)
	CreateProduct(ctx context.Context, companyID, categoryID int64, name string, createdBy int64) (int64, error)
	Inventory() inventory.TxStore
}

// Repository implements Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) Inventory() inventory.TxStore { return inventory.NewTxStore(s.tx) }

func (s *txStore) GetOrCreateCategory(ctx context.Context, companyID int64, name string) (int64, error) {
	c, err := categories.NewRepository(s.tx).GetOrCreate(ctx, companyID, name)
	return c.ID, err
}

// ProductsNamed narrows candidates with lower(); callers confirm with SameName.
func (s *txStore) ProductsNamed(ctx context.Context, companyID int64, name string) ([]ProductRef, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, name, category_id FROM products
		WHERE company_id = $1 AND lower(name) = lower($2) ORDER BY id FOR UPDATE`, companyID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProductRef
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *txStore) CreateProduct(ctx context.Context, companyID, categoryID int64, name string, createdBy int64) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO products (company_id, category_id, name, unit, hsn_code, created_by)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, 0))
		RETURNING id`, companyID, categoryID, name, shared.DefaultUnit, shared.DefaultHSN, createdBy).Scan(&id)
	return id, db.MapError(err)
}
