package invoicing

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Store reads invoices and opens write transactions.
type Store interface {
	Get(ctx context.Context, companyID, id int64) (Invoice, error)
	List(ctx context.Context, f Filter) ([]Invoice, int, error)
	Count(ctx context.Context, companyID int64) (int, error)
	Outstanding(ctx context.Context, companyID int64) ([]Invoice, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore is bound to one transaction.
type TxStore interface {
	ForUpdate(ctx context.Context, companyID, id int64) (Invoice, error)
	Parties(ctx context.Context, companyID, retailerID int64) (Parties, error)
	Products(ctx context.Context, ids []int64) (map[int64]ProductTax, error)
	Create(ctx context.Context, inv Invoice) (Invoice, error)
	Update(ctx context.Context, inv Invoice) error
	Delete(ctx context.Context, id int64) error
	Orders() orders.TxRepository
}

// Repository implements Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

const invoiceSelect = `SELECT i.id, i.invoice_number, i.company_id, i.retailer_id, r.name, i.order_id, i.invoice_date,
		i.due_date, i.is_einvoice_generated, i.irn, i.total_taxable_value, i.total_cgst, i.total_sgst, i.total_igst,
		i.total_cess, i.grand_total, i.payment_mode, i.payment_status, COALESCE(i.created_by, 0), i.created_at, i.updated_at
	FROM invoices i
	JOIN retailers r ON r.id = i.retailer_id`

func (r *Repository) Get(ctx context.Context, companyID, id int64) (Invoice, error) {
	inv, err := scanInvoice(r.pool.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1 AND i.company_id = $2`, id, companyID))
	if err != nil {
		return Invoice{}, db.MapError(err)
	}
	list := []Invoice{inv}
	if err := loadItems(ctx, r.pool, list); err != nil {
		return Invoice{}, err
	}
	return list[0], nil
}

func (r *Repository) List(ctx context.Context, f Filter) ([]Invoice, int, error) {
	where := ` WHERE i.company_id = $1`
	args := []any{f.CompanyID}
	if f.PaymentStatus != "" {
		args = append(args, string(f.PaymentStatus))
		where += ` AND i.payment_status = $` + strconv.Itoa(len(args))
	}
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices i`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	args = append(args, f.PerPage, max(0, (f.Page-1)*f.PerPage))
	rows, err := r.pool.Query(ctx, invoiceSelect+where+` ORDER BY i.invoice_date DESC, i.id DESC LIMIT $`+
		strconv.Itoa(len(args)-1)+` OFFSET $`+strconv.Itoa(len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	list, err := collectInvoices(rows)
	if err != nil {
		return nil, 0, err
	}
	if err := loadItems(ctx, r.pool, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repository) Count(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM invoices WHERE company_id = $1`, companyID).Scan(&n)
	return n, err
}

func (r *Repository) Outstanding(ctx context.Context, companyID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, invoiceSelect+` WHERE i.company_id = $1 AND i.payment_status <> 'paid'
		ORDER BY i.due_date NULLS FIRST, i.id`, companyID)
	if err != nil {
		return nil, err
	}
	return collectInvoices(rows)
}

type txStore struct {
	tx pgx.Tx
}

var _ TxStore = (*txStore)(nil)

func (s *txStore) Orders() orders.TxRepository {
	return orders.NewTxRepository(s.tx)
}

func (s *txStore) ForUpdate(ctx context.Context, companyID, id int64) (Invoice, error) {
	inv, err := scanInvoice(s.tx.QueryRow(ctx, invoiceSelect+` WHERE i.id = $1 AND i.company_id = $2 FOR UPDATE OF i`, id, companyID))
	if err != nil {
		return Invoice{}, db.MapError(err)
	}
	list := []Invoice{inv}
	if err := loadItems(ctx, s.tx, list); err != nil {
		return Invoice{}, err
	}
	return list[0], nil
}

func (s *txStore) Parties(ctx context.Context, companyID, retailerID int64) (Parties, error) {
	var p Parties
	err := s.tx.QueryRow(ctx, `SELECT c.state, r.state
		FROM retailers r JOIN companies c ON c.id = r.company_id
		WHERE r.id = $1 AND r.company_id = $2`, retailerID, companyID).Scan(&p.CompanyState, &p.RetailerState)
	return p, db.MapError(err)
}

func (s *txStore) Products(ctx context.Context, ids []int64) (map[int64]ProductTax, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, company_id, name, price, hsn_code, cgst_rate, sgst_rate, igst_rate, cess_rate
		FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]ProductTax, len(ids))
	for rows.Next() {
		var p ProductTax
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.Name, &p.Price, &p.HSNCode,
			&p.CGSTRate, &p.SGSTRate, &p.IGSTRate, &p.CessRate); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *txStore) Create(ctx context.Context, inv Invoice) (Invoice, error) {
	t := inv.Totals
	err := s.tx.QueryRow(ctx, `INSERT INTO invoices (company_id, retailer_id, order_id, invoice_number, invoice_date,
			due_date, is_einvoice_generated, irn, total_taxable_value, total_cgst, total_sgst, total_igst, total_cess,
			grand_total, payment_mode, payment_status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, NULLIF($17, 0))
		RETURNING id`,
		inv.CompanyID, inv.RetailerID, inv.OrderID, inv.Number, inv.InvoiceDate, inv.DueDate, inv.IsEInvoiceGenerated,
		inv.IRN, t.Taxable, t.CGST, t.SGST, t.IGST, t.Cess, t.Grand, string(inv.PaymentMode), string(inv.PaymentStatus),
		inv.CreatedBy).Scan(&inv.ID)
	if err != nil {
		return Invoice{}, db.MapError(err)
	}
	if err := s.replaceItems(ctx, inv.ID, inv.Items); err != nil {
		return Invoice{}, err
	}
	return s.ForUpdate(ctx, inv.CompanyID, inv.ID)
}

func (s *txStore) Update(ctx context.Context, inv Invoice) error {
	t := inv.Totals
	_, err := s.tx.Exec(ctx, `UPDATE invoices SET due_date = $2, is_einvoice_generated = $3, irn = $4,
			total_taxable_value = $5, total_cgst = $6, total_sgst = $7, total_igst = $8, total_cess = $9,
			grand_total = $10, payment_mode = $11, payment_status = $12, updated_at = NOW()
		WHERE id = $1`,
		inv.ID, inv.DueDate, inv.IsEInvoiceGenerated, inv.IRN, t.Taxable, t.CGST, t.SGST, t.IGST, t.Cess, t.Grand,
		string(inv.PaymentMode), string(inv.PaymentStatus))
	if err != nil {
		return db.MapError(err)
	}
	return s.replaceItems(ctx, inv.ID, inv.Items)
}

func (s *txStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.tx.Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows)
	}
	return nil
}

func (s *txStore) replaceItems(ctx context.Context, invoiceID int64, items []Item) error {
	if _, err := s.tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return err
	}
	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(`INSERT INTO invoice_items (invoice_id, product_id, quantity, price, taxable_value, gst_rate,
				cgst, sgst, igst, cess, hsn_code)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			invoiceID, it.ProductID, it.Quantity, it.Price, it.TaxableValue, it.GSTRate,
			it.CGST, it.SGST, it.IGST, it.Cess, it.HSNCode)
	}
	if batch.Len() == 0 {
		return nil
	}
	return db.MapError(s.tx.SendBatch(ctx, batch).Close())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var (
		inv           Invoice
		mode, payment string
	)
	t := &inv.Totals
	err := row.Scan(&inv.ID, &inv.Number, &inv.CompanyID, &inv.RetailerID, &inv.RetailerName, &inv.OrderID,
		&inv.InvoiceDate, &inv.DueDate, &inv.IsEInvoiceGenerated, &inv.IRN, &t.Taxable, &t.CGST, &t.SGST, &t.IGST,
		&t.Cess, &t.Grand, &mode, &payment, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	inv.PaymentMode = PaymentMode(mode)
	inv.PaymentStatus = PaymentStatus(payment)
	return inv, err
}

func collectInvoices(rows pgx.Rows) ([]Invoice, error) {
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func loadItems(ctx context.Context, q db.Querier, list []Invoice) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	index := make(map[int64]int, len(list))
	for i, inv := range list {
		ids[i] = inv.ID
		index[inv.ID] = i
		list[i].Items = []Item{}
	}
	rows, err := q.Query(ctx, `SELECT ii.invoice_id, ii.product_id, p.name, ii.quantity, ii.price, ii.taxable_value,
			ii.gst_rate, ii.cgst, ii.sgst, ii.igst, ii.cess, ii.hsn_code
		FROM invoice_items ii JOIN products p ON p.id = ii.product_id
		WHERE ii.invoice_id = ANY($1) ORDER BY ii.id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			it        Item
			invoiceID int64
		)
		if err := rows.Scan(&invoiceID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.TaxableValue,
			&it.GSTRate, &it.CGST, &it.SGST, &it.IGST, &it.Cess, &it.HSNCode); err != nil {
			return err
		}
		i := index[invoiceID]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}
