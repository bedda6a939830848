package shipments

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Store reads shipments and opens write transactions.
type Store interface {
	Get(ctx context.Context, id int64) (Shipment, error)
	List(ctx context.Context, companyID int64) ([]Shipment, error)
	ByEmployee(ctx context.Context, employeeID int64) ([]Shipment, error)
	EmployeeIDForUser(ctx context.Context, userID int64) (int64, error)
	MonthlyStats(ctx context.Context, companyID int64) ([]MonthlyStat, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore is bound to one transaction.
type TxStore interface {
	ForUpdate(ctx context.Context, id int64) (Shipment, error)
	ByOrderForUpdate(ctx context.Context, orderID int64) (Shipment, error)
	Create(ctx context.Context, orderID int64) (Shipment, error)
	SetEmployee(ctx context.Context, id, employeeID int64) error
	SetStatus(ctx context.Context, id int64, status Status) error
	Employee(ctx context.Context, id int64) (EmployeeRef, error)
	OtherInTransit(ctx context.Context, employeeID, exceptShipmentID int64) (bool, error)
	SetTruckAvailable(ctx context.Context, truckID int64, available bool) error
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

const shipmentSelect = `SELECT s.id, s.order_id, o.company_id, r.name, s.employee_id, COALESCE(u.username, ''),
		COALESCE(t.license_plate, 'No Truck Assigned'), s.shipment_date, s.status, s.updated_at
	FROM shipments s
	JOIN orders o ON o.id = s.order_id
	JOIN retailers r ON r.id = o.retailer_id
	LEFT JOIN employees e ON e.id = s.employee_id
	LEFT JOIN users u ON u.id = e.user_id
	LEFT JOIN trucks t ON t.id = e.truck_id`

func (r *Repository) Get(ctx context.Context, id int64) (Shipment, error) {
	s, err := scanShipment(r.pool.QueryRow(ctx, shipmentSelect+` WHERE s.id = $1`, id))
	return s, db.MapError(err)
}

func (r *Repository) List(ctx context.Context, companyID int64) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, shipmentSelect+` WHERE o.company_id = $1 ORDER BY s.shipment_date DESC, s.id DESC`, companyID)
	if err != nil {
		return nil, err
	}
	return collectShipments(rows)
}

func (r *Repository) ByEmployee(ctx context.Context, employeeID int64) ([]Shipment, error) {
	rows, err := r.pool.Query(ctx, shipmentSelect+` WHERE s.employee_id = $1 ORDER BY s.shipment_date DESC, s.id DESC`, employeeID)
	if err != nil {
		return nil, err
	}
	return collectShipments(rows)
}

func (r *Repository) EmployeeIDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `SELECT id FROM employees WHERE user_id = $1`, userID).Scan(&id)
	return id, db.MapError(err)
}

func (r *Repository) MonthlyStats(ctx context.Context, companyID int64) ([]MonthlyStat, error) {
	rows, err := r.pool.Query(ctx, `SELECT date_trunc('month', i.invoice_date) AS month, p.name, SUM(ii.quantity)
		FROM invoice_items ii
		JOIN invoices i ON i.id = ii.invoice_id
		JOIN products p ON p.id = ii.product_id
		WHERE i.company_id = $1
		GROUP BY 1, 2
		ORDER BY 1, 2`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []MonthlyStat{}
	for rows.Next() {
		var (
			month time.Time
			stat  MonthlyStat
		)
		if err := rows.Scan(&month, &stat.Product, &stat.Count); err != nil {
			return nil, err
		}
		stat.Month = month.Month().String()
		out = append(out, stat)
	}
	return out, rows.Err()
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) Orders() orders.TxRepository {
	return orders.NewTxRepository(s.tx)
}

func (s *txStore) ForUpdate(ctx context.Context, id int64) (Shipment, error) {
	sh, err := scanShipment(s.tx.QueryRow(ctx, shipmentSelect+` WHERE s.id = $1 FOR UPDATE OF s`, id))
	return sh, db.MapError(err)
}

func (s *txStore) ByOrderForUpdate(ctx context.Context, orderID int64) (Shipment, error) {
	sh, err := scanShipment(s.tx.QueryRow(ctx, shipmentSelect+` WHERE s.order_id = $1 FOR UPDATE OF s`, orderID))
	return sh, db.MapError(err)
}

func (s *txStore) Create(ctx context.Context, orderID int64) (Shipment, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO shipments (order_id, status) VALUES ($1, $2) RETURNING id`,
		orderID, string(StatusInTransit)).Scan(&id)
	if err != nil {
		return Shipment{}, db.MapError(err)
	}
	return s.ForUpdate(ctx, id)
}

func (s *txStore) SetEmployee(ctx context.Context, id, employeeID int64) error {
	_, err := s.tx.Exec(ctx, `UPDATE shipments SET employee_id = $2, updated_at = NOW() WHERE id = $1`, id, employeeID)
	return db.MapError(err)
}

func (s *txStore) SetStatus(ctx context.Context, id int64, status Status) error {
	_, err := s.tx.Exec(ctx, `UPDATE shipments SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	return db.MapError(err)
}

func (s *txStore) Employee(ctx context.Context, id int64) (EmployeeRef, error) {
	var e EmployeeRef
	err := s.tx.QueryRow(ctx, `SELECT id, company_id, retailer_id, truck_id FROM employees WHERE id = $1 FOR UPDATE`, id).
		Scan(&e.ID, &e.CompanyID, &e.RetailerID, &e.TruckID)
	return e, db.MapError(err)
}

func (s *txStore) OtherInTransit(ctx context.Context, employeeID, exceptShipmentID int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM shipments WHERE employee_id = $1 AND status = $2 AND id <> $3)`,
		employeeID, string(StatusInTransit), exceptShipmentID).Scan(&ok)
	return ok, err
}

func (s *txStore) SetTruckAvailable(ctx context.Context, truckID int64, available bool) error {
	_, err := s.tx.Exec(ctx, `UPDATE trucks SET is_available = $2 WHERE id = $1`, truckID, available)
	return db.MapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShipment(row rowScanner) (Shipment, error) {
	var (
		s      Shipment
		status string
	)
	err := row.Scan(&s.ID, &s.OrderID, &s.CompanyID, &s.RetailerName, &s.EmployeeID, &s.EmployeeName,
		&s.LicensePlate, &s.ShipmentDate, &status, &s.UpdatedAt)
	s.Status = Status(status)
	return s, err
}

func collectShipments(rows pgx.Rows) ([]Shipment, error) {
	defer rows.Close()
	out := []Shipment{}
	for rows.Next() {
		s, err := scanShipment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
