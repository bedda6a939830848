package orders

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Repository reads orders and opens write transactions.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Order, int, error)
	Get(ctx context.Context, companyID, id int64) (Order, error)
	CountOrders(ctx context.Context, companyID int64, status Status) (int, error)
	CountEmployees(ctx context.Context, companyID int64) (int, error)
	CountRetailers(ctx context.Context, companyID int64) (int, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository is bound to one transaction. Shipments and invoicing reuse it
// through NewTxRepository to move orders inside their own transactions.
type TxRepository interface {
	GetForUpdate(ctx context.Context, companyID, id int64) (Order, error)
	Products(ctx context.Context, ids []int64) (map[int64]ProductRef, error)
	RetailerBelongs(ctx context.Context, companyID, retailerID int64) (bool, error)
	ConnectionFor(ctx context.Context, companyID, userID int64) (ConnectionRef, error)
	BumpConnection(ctx context.Context, connectionID int64, value decimal.Decimal) error
	Create(ctx context.Context, o Order) (Order, error)
	ReplaceItems(ctx context.Context, orderID int64, items []Item) error
	SetStatus(ctx context.Context, orderID int64, status Status) error
	IsInvoiced(ctx context.Context, orderID int64) (bool, error)
	Inventory() inventory.TxStore
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

const orderSelect = `SELECT o.id, o.company_id, o.retailer_id, r.name, o.connection_id, o.placed_by, o.order_date,
		o.status, o.created_at, o.updated_at
	FROM orders o
	JOIN retailers r ON r.id = o.retailer_id`

func (r *repository) List(ctx context.Context, f Filter) ([]Order, int, error) {
	where := ` WHERE TRUE`
	var args []any
	if f.CompanyID > 0 {
		args = append(args, f.CompanyID)
		where += ` AND o.company_id = $` + strconv.Itoa(len(args))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where += ` AND o.status = $` + strconv.Itoa(len(args))
	}
	if f.RetailerUserID > 0 {
		args = append(args, f.RetailerUserID)
		where += ` AND r.user_id = $` + strconv.Itoa(len(args))
	}
	if f.EmployeeID > 0 {
		args = append(args, f.EmployeeID)
		where += ` AND EXISTS (SELECT 1 FROM shipments s WHERE s.order_id = o.id AND s.employee_id = $` + strconv.Itoa(len(args)) + `)`
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders o JOIN retailers r ON r.id = o.retailer_id`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PerPage, max(0, (f.Page-1)*f.PerPage))
	rows, err := r.pool.Query(ctx, orderSelect+where+` ORDER BY o.order_date DESC, o.id DESC LIMIT $`+
		strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectOrders(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := loadItems(ctx, r.pool, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, orderSelect+` WHERE o.id = $1 AND o.company_id = $2`, id, companyID))
	if err != nil {
		return Order{}, db.MapError(err)
	}
	list := []Order{o}
	if err := loadItems(ctx, r.pool, list); err != nil {
		return Order{}, err
	}
	return list[0], nil
}

func (r *repository) CountOrders(ctx context.Context, companyID int64, status Status) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE company_id = $1 AND ($2 = '' OR status = $2)`,
		companyID, string(status)).Scan(&n)
	return n, err
}

func (r *repository) CountEmployees(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM employees WHERE company_id = $1`, companyID).Scan(&n)
	return n, err
}

func (r *repository) CountRetailers(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM retailers WHERE company_id = $1 AND is_active`, companyID).Scan(&n)
	return n, err
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds a TxRepository to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (t *txRepository) Inventory() inventory.TxStore {
	return inventory.NewTxStore(t.tx)
}

func (t *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, orderSelect+` WHERE o.id = $1 AND o.company_id = $2 FOR UPDATE OF o`, id, companyID))
	if err != nil {
		return Order{}, db.MapError(err)
	}
	list := []Order{o}
	if err := loadItems(ctx, t.tx, list); err != nil {
		return Order{}, err
	}
	return list[0], nil
}

func (t *txRepository) Products(ctx context.Context, ids []int64) (map[int64]ProductRef, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, company_id, name, price FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]ProductRef, len(ids))
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Price); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txRepository) RetailerBelongs(ctx context.Context, companyID, retailerID int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM retailers WHERE id = $1 AND company_id = $2 AND is_active)`,
		retailerID, companyID).Scan(&ok)
	return ok, err
}

func (t *txRepository) ConnectionFor(ctx context.Context, companyID, userID int64) (ConnectionRef, error) {
	var c ConnectionRef
	err := t.tx.QueryRow(ctx, `SELECT id, retailer_id, status FROM company_retailer_connections
		WHERE company_id = $1 AND retailer_user_id = $2 FOR UPDATE`, companyID, userID).Scan(&c.ID, &c.RetailerID, &c.Status)
	return c, db.MapError(err)
}

func (t *txRepository) BumpConnection(ctx context.Context, connectionID int64, value decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE company_retailer_connections
		SET total_orders = total_orders + 1, total_order_value = total_order_value + $2, updated_at = NOW()
		WHERE id = $1`, connectionID, value)
	return db.MapError(err)
}

func (t *txRepository) Create(ctx context.Context, o Order) (Order, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO orders (company_id, retailer_id, connection_id, placed_by, status)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		o.CompanyID, o.RetailerID, o.ConnectionID, o.PlacedBy, string(o.Status)).Scan(&o.ID)
	if err != nil {
		return Order{}, db.MapError(err)
	}
	if err := t.ReplaceItems(ctx, o.ID, o.Items); err != nil {
		return Order{}, err
	}
	return t.GetForUpdate(ctx, o.CompanyID, o.ID)
}

func (t *txRepository) ReplaceItems(ctx context.Context, orderID int64, items []Item) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO order_items (order_id, product_id, quantity) VALUES ($1, $2, $3)`, orderID, it.ProductID, it.Quantity)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := t.tx.SendBatch(ctx, batch).Close(); err != nil {
		return db.MapError(err)
	}
	_, err := t.tx.Exec(ctx, `UPDATE orders SET updated_at = NOW() WHERE id = $1`, orderID)
	return err
}

func (t *txRepository) SetStatus(ctx context.Context, orderID int64, status Status) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, orderID, string(status))
	return db.MapError(err)
}

func (t *txRepository) IsInvoiced(ctx context.Context, orderID int64) (bool, error) {
	var ok bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM invoices WHERE order_id = $1)`, orderID).Scan(&ok)
	return ok, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.CompanyID, &o.RetailerID, &o.RetailerName, &o.ConnectionID, &o.PlacedBy, &o.OrderDate,
		&status, &o.CreatedAt, &o.UpdatedAt)
	o.Status = Status(status)
	return o, err
}

func collectOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func loadItems(ctx context.Context, q db.Querier, list []Order) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, o := range list {
		ids[i] = o.ID
		index[o.ID] = i
		list[i].Items = []Item{}
	}
	rows, err := q.Query(ctx, `SELECT oi.id, oi.order_id, oi.product_id, p.name, oi.quantity
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = ANY($1) ORDER BY oi.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it      Item
			orderID int64
		)
		if err := rows.Scan(&it.ID, &orderID, &it.ProductID, &it.ProductName, &it.Quantity); err != nil {
			return err
		}
		i := index[orderID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}
