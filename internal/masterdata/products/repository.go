package products

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Repository reads products outside of a transaction and opens transactions for writes.
type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error)
	Get(ctx context.Context, companyID, id int64) (Product, error)
	// Catalog lists in-stock products of every company the retailer user holds an
	// approved connection with. A positive filters.CompanyID narrows it to one company.
	Catalog(ctx context.Context, retailerUserID int64, filters shared.ListFilters) ([]CatalogItem, int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is bound to one transaction.
type TxRepository interface {
	Get(ctx context.Context, companyID, id int64) (Product, error)
	FindByName(ctx context.Context, companyID int64, name string) (Product, error)
	CategoryExists(ctx context.Context, companyID, categoryID int64) (bool, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, companyID, id int64) error
	Inventory() inventory.TxStore
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const productColumns = `p.id, p.company_id, p.category_id, COALESCE(c.name, ''), p.name, p.unit, p.price, p.hsn_code,
	p.cgst_rate, p.sgst_rate, p.igst_rate, p.cess_rate,
	p.available_quantity, p.total_required_quantity, p.total_shipped, p.status,
	p.created_by, p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN categories c ON c.id = p.category_id`

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, int, error) {
	where := ` WHERE p.company_id = $1`
	args := []any{filters.CompanyID}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += ` AND p.category_id = $` + strconv.Itoa(len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		where += ` AND p.status = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (p.name ILIKE $` + strconv.Itoa(len(args)) + ` OR p.hsn_code ILIKE $` + strconv.Itoa(len(args)) + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + productFrom + where + ` ORDER BY p.name ASC, p.id ASC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, max(0, (filters.Page-1)*filters.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

func (r *repository) Catalog(ctx context.Context, retailerUserID int64, filters shared.ListFilters) ([]CatalogItem, int, error) {
	where := ` WHERE p.available_quantity > 0 AND EXISTS (
		SELECT 1 FROM company_retailer_connections crc
		WHERE crc.company_id = p.company_id AND crc.retailer_user_id = $1 AND crc.status = 'approved')`
	args := []any{retailerUserID}
	if filters.CompanyID > 0 {
		args = append(args, filters.CompanyID)
		where += ` AND p.company_id = $` + strconv.Itoa(len(args))
	}
	if filters.CategoryID != nil {
		args = append(args, *filters.CategoryID)
		where += ` AND p.category_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND p.name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT p.id, p.company_id, co.name, COALESCE(c.name, ''), p.name, p.unit, p.price,
			p.available_quantity, p.status
		FROM products p
		JOIN companies co ON co.id = p.company_id
		LEFT JOIN categories c ON c.id = p.category_id` + where + ` ORDER BY p.name ASC, p.id ASC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, max(0, (filters.Page-1)*filters.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []CatalogItem
	for rows.Next() {
		var (
			it     CatalogItem
			status string
		)
		if err := rows.Scan(&it.ProductID, &it.CompanyID, &it.CompanyName, &it.Category, &it.Name, &it.Unit,
			&it.Price, &it.Available, &status); err != nil {
			return nil, 0, err
		}
		it.Status = inventory.Status(status)
		items = append(items, it)
	}
	return items, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Product, error) {
	return getProduct(ctx, r.pool, companyID, id)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// NewTxRepository binds product persistence to a transaction owned by another package.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Inventory() inventory.TxStore {
	return inventory.NewTxStore(r.tx)
}

func (r *txRepository) Get(ctx context.Context, companyID, id int64) (Product, error) {
	return getProduct(ctx, r.tx, companyID, id)
}

func (r *txRepository) FindByName(ctx context.Context, companyID int64, name string) (Product, error) {
	p, err := scanProduct(r.tx.QueryRow(ctx, `SELECT `+productColumns+productFrom+`
		WHERE p.company_id = $1 AND lower(p.name) = lower($2)
		ORDER BY p.id LIMIT 1`, companyID, name))
	return p, db.MapError(err)
}

func (r *txRepository) CategoryExists(ctx context.Context, companyID, categoryID int64) (bool, error) {
	var ok bool
	err := r.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND company_id = $2)`, categoryID, companyID).Scan(&ok)
	return ok, err
}

func (r *txRepository) Create(ctx context.Context, p Product) (Product, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO products (company_id, category_id, name, unit, price, hsn_code,
			cgst_rate, sgst_rate, igst_rate, cess_rate, available_quantity, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		p.CompanyID, p.CategoryID, p.Name, p.Unit, p.Price, p.HSNCode,
		p.CGSTRate, p.SGSTRate, p.IGSTRate, p.CessRate, p.Available, p.CreatedBy).Scan(&id)
	if err != nil {
		return Product{}, db.MapError(err)
	}
	return getProduct(ctx, r.tx, p.CompanyID, id)
}

func (r *txRepository) Update(ctx context.Context, p Product) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products
		SET category_id = $3, name = $4, unit = $5, price = $6, hsn_code = $7,
			cgst_rate = $8, sgst_rate = $9, igst_rate = $10, cess_rate = $11, updated_at = NOW()
		WHERE id = $1 AND company_id = $2`,
		p.ID, p.CompanyID, p.CategoryID, p.Name, p.Unit, p.Price, p.HSNCode,
		p.CGSTRate, p.SGSTRate, p.IGSTRate, p.CessRate)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *txRepository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM products WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func getProduct(ctx context.Context, q db.Querier, companyID, id int64) (Product, error) {
	p, err := scanProduct(q.QueryRow(ctx, `SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND p.company_id = $2`, id, companyID))
	return p, db.MapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p      Product
		status string
	)
	err := row.Scan(&p.ID, &p.CompanyID, &p.CategoryID, &p.Category, &p.Name, &p.Unit, &p.Price, &p.HSNCode,
		&p.CGSTRate, &p.SGSTRate, &p.IGSTRate, &p.CessRate,
		&p.Available, &p.Required, &p.Shipped, &status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	p.Status = inventory.Status(status)
	return p, err
}
