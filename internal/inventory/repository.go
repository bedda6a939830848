package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// Movements lists ledger rows matching the filter, newest first.
func (r *Repository) Movements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	query := `SELECT company_id, source_type, source_id, product_id, quantity, created_at, updated_at
		FROM stock_movements WHERE company_id = $1`
	args := []any{filter.CompanyID}
	if filter.ProductID > 0 {
		args = append(args, filter.ProductID)
		query += fmt.Sprintf(" AND product_id = $%d", len(args))
	}
	if filter.Source.Type != "" {
		args = append(args, string(filter.Source.Type))
		query += fmt.Sprintf(" AND source_type = $%d", len(args))
	}
	if filter.Source.ID > 0 {
		args = append(args, filter.Source.ID)
		query += fmt.Sprintf(" AND source_id = $%d", len(args))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY updated_at DESC, id DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

// NewTxStore binds a TxStore to an open transaction. Other packages use it to run
// ledger operations inside their own transactions.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

type txStore struct {
	tx pgx.Tx
}

var _ TxStore = (*txStore)(nil)

func (s *txStore) LockProducts(ctx context.Context, ids []int64) ([]Counters, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, company_id, available_quantity, total_required_quantity, total_shipped, status
		FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Counters
	for rows.Next() {
		var (
			c      Counters
			status string
		)
		if err := rows.Scan(&c.ProductID, &c.CompanyID, &c.Available, &c.Required, &c.Shipped, &status); err != nil {
			return nil, err
		}
		c.Status = Status(status)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *txStore) CompanyProductIDs(ctx context.Context, companyID int64) ([]int64, error) {
	rows, err := s.tx.Query(ctx, `SELECT id FROM products WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (s *txStore) OpenDemand(ctx context.Context, ids []int64) (map[int64]int64, error) {
	rows, err := s.tx.Query(ctx, `SELECT oi.product_id, COALESCE(SUM(GREATEST(oi.quantity - COALESCE(sm.quantity, 0), 0)), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN stock_movements sm
			ON sm.source_type = 'order' AND sm.source_id = o.id AND sm.product_id = oi.product_id
		WHERE oi.product_id = ANY($1) AND o.status IN ('pending', 'allocated')
		GROUP BY oi.product_id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	demand := make(map[int64]int64, len(ids))
	for rows.Next() {
		var id, qty int64
		if err := rows.Scan(&id, &qty); err != nil {
			return nil, err
		}
		demand[id] = qty
	}
	return demand, rows.Err()
}

func (s *txStore) SaveCounters(ctx context.Context, c Counters) error {
	_, err := s.tx.Exec(ctx, `UPDATE products
		SET available_quantity = $2, total_required_quantity = $3, total_shipped = $4, status = $5, updated_at = NOW()
		WHERE id = $1`, c.ProductID, c.Available, c.Required, c.Shipped, string(c.Status))
	return db.MapError(err)
}

func (s *txStore) ListMovements(ctx context.Context, src Source) ([]Movement, error) {
	rows, err := s.tx.Query(ctx, `SELECT company_id, source_type, source_id, product_id, quantity, created_at, updated_at
		FROM stock_movements WHERE source_type = $1 AND source_id = $2 ORDER BY product_id`, string(src.Type), src.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMovements(rows)
}

func (s *txStore) PutMovement(ctx context.Context, m Movement) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO stock_movements (company_id, source_type, source_id, product_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (source_type, source_id, product_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		m.CompanyID, string(m.Source.Type), m.Source.ID, m.ProductID, m.Quantity)
	return db.MapError(err)
}

func (s *txStore) DeleteMovement(ctx context.Context, src Source, productID int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM stock_movements WHERE source_type = $1 AND source_id = $2 AND product_id = $3`,
		string(src.Type), src.ID, productID)
	return err
}

func scanMovements(rows pgx.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var (
			m   Movement
			typ string
		)
		if err := rows.Scan(&m.CompanyID, &typ, &m.Source.ID, &m.ProductID, &m.Quantity, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		m.Source.Type = SourceType(strings.TrimSpace(typ))
		out = append(out, m)
	}
	return out, rows.Err()
}
