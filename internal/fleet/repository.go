package fleet

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Store is the persistence used by Service.
type Store interface {
	CreateTruck(ctx context.Context, t Truck) (Truck, error)
	ListTrucks(ctx context.Context, companyID int64) ([]Truck, error)
	GetTruck(ctx context.Context, companyID, id int64) (Truck, error)
	UpdateTruck(ctx context.Context, t Truck) (Truck, error)
	DeleteTruck(ctx context.Context, companyID, id int64) error
	ListEmployees(ctx context.Context, companyID int64) ([]Employee, error)
	EmployeesForOrder(ctx context.Context, companyID, orderID int64) ([]Employee, error)
	EmployeeByUser(ctx context.Context, userID int64) (Employee, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore is bound to one transaction.
type TxStore interface {
	TruckForUpdate(ctx context.Context, id int64) (Truck, error)
	TruckAssigned(ctx context.Context, truckID int64) (bool, error)
	FirstFreeTruck(ctx context.Context, companyID int64) (Truck, error)
	SetTruckAvailable(ctx context.Context, truckID int64, available bool) error
	RetailerBelongs(ctx context.Context, companyID, retailerID int64) (bool, error)
	CreateEmployee(ctx context.Context, e Employee) (Employee, error)
	EmployeeForUpdate(ctx context.Context, companyID, id int64) (Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
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

const truckColumns = `id, company_id, license_plate, capacity, is_available, created_at`

func (r *Repository) CreateTruck(ctx context.Context, t Truck) (Truck, error) {
	created, err := scanTruck(r.pool.QueryRow(ctx, `INSERT INTO trucks (company_id, license_plate, capacity, is_available)
		VALUES ($1, $2, $3, $4) RETURNING `+truckColumns, t.CompanyID, t.LicensePlate, t.Capacity, t.IsAvailable))
	return created, db.MapError(err)
}

func (r *Repository) ListTrucks(ctx context.Context, companyID int64) ([]Truck, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+truckColumns+` FROM trucks WHERE company_id = $1 ORDER BY id`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Truck{}
	for rows.Next() {
		t, err := scanTruck(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) GetTruck(ctx context.Context, companyID, id int64) (Truck, error) {
	t, err := scanTruck(r.pool.QueryRow(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = $1 AND company_id = $2`, id, companyID))
	return t, db.MapError(err)
}

func (r *Repository) UpdateTruck(ctx context.Context, t Truck) (Truck, error) {
	updated, err := scanTruck(r.pool.QueryRow(ctx, `UPDATE trucks SET license_plate = $3, capacity = $4, is_available = $5
		WHERE id = $1 AND company_id = $2 RETURNING `+truckColumns, t.ID, t.CompanyID, t.LicensePlate, t.Capacity, t.IsAvailable))
	return updated, db.MapError(err)
}

func (r *Repository) DeleteTruck(ctx context.Context, companyID, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trucks WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return db.MapError(pgx.ErrNoRows)
	}
	return nil
}

const employeeSelect = `SELECT e.id, e.company_id, e.retailer_id, e.user_id, u.username, e.contact, e.truck_id,
		COALESCE(t.license_plate, ''), e.created_at
	FROM employees e
	JOIN users u ON u.id = e.user_id
	LEFT JOIN trucks t ON t.id = e.truck_id`

func (r *Repository) ListEmployees(ctx context.Context, companyID int64) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, employeeSelect+` WHERE e.company_id = $1 ORDER BY e.id`, companyID)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

func (r *Repository) EmployeesForOrder(ctx context.Context, companyID, orderID int64) ([]Employee, error) {
	var retailerID int64
	err := r.pool.QueryRow(ctx, `SELECT retailer_id FROM orders WHERE id = $1 AND company_id = $2`, orderID, companyID).Scan(&retailerID)
	if err != nil {
		return nil, db.MapError(err)
	}
	rows, err := r.pool.Query(ctx, employeeSelect+` WHERE e.company_id = $1 OR e.retailer_id = $2 ORDER BY e.id`, companyID, retailerID)
	if err != nil {
		return nil, err
	}
	return collectEmployees(rows)
}

func (r *Repository) EmployeeByUser(ctx context.Context, userID int64) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, employeeSelect+` WHERE e.user_id = $1`, userID))
	return e, db.MapError(err)
}

func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) TruckForUpdate(ctx context.Context, id int64) (Truck, error) {
	t, err := scanTruck(s.tx.QueryRow(ctx, `SELECT `+truckColumns+` FROM trucks WHERE id = $1 FOR UPDATE`, id))
	return t, db.MapError(err)
}

func (s *txStore) TruckAssigned(ctx context.Context, truckID int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE truck_id = $1)`, truckID).Scan(&ok)
	return ok, err
}

func (s *txStore) FirstFreeTruck(ctx context.Context, companyID int64) (Truck, error) {
	t, err := scanTruck(s.tx.QueryRow(ctx, `SELECT `+truckColumns+` FROM trucks t
		WHERE t.company_id = $1 AND t.is_available
			AND NOT EXISTS (SELECT 1 FROM employees e WHERE e.truck_id = t.id)
		ORDER BY t.id LIMIT 1 FOR UPDATE SKIP LOCKED`, companyID))
	return t, db.MapError(err)
}

func (s *txStore) SetTruckAvailable(ctx context.Context, truckID int64, available bool) error {
	_, err := s.tx.Exec(ctx, `UPDATE trucks SET is_available = $2 WHERE id = $1`, truckID, available)
	return db.MapError(err)
}

func (s *txStore) RetailerBelongs(ctx context.Context, companyID, retailerID int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM retailers WHERE id = $1 AND company_id = $2)`, retailerID, companyID).Scan(&ok)
	return ok, err
}

func (s *txStore) CreateEmployee(ctx context.Context, e Employee) (Employee, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO employees (company_id, retailer_id, user_id, contact, truck_id)
		VALUES ($1, $2, $3, $4, $5) RETURNING id`, e.CompanyID, e.RetailerID, e.UserID, e.Contact, e.TruckID).Scan(&id)
	if err != nil {
		return Employee{}, db.MapError(err)
	}
	return s.EmployeeForUpdate(ctx, e.CompanyID, id)
}

func (s *txStore) EmployeeForUpdate(ctx context.Context, companyID, id int64) (Employee, error) {
	e, err := scanEmployee(s.tx.QueryRow(ctx, employeeSelect+` WHERE e.id = $1 AND e.company_id = $2 FOR UPDATE OF e`, id, companyID))
	return e, db.MapError(err)
}

func (s *txStore) DeleteEmployee(ctx context.Context, id int64) error {
	_, err := s.tx.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	return db.MapError(err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTruck(row rowScanner) (Truck, error) {
	var t Truck
	err := row.Scan(&t.ID, &t.CompanyID, &t.LicensePlate, &t.Capacity, &t.IsAvailable, &t.CreatedAt)
	return t, err
}

func scanEmployee(row rowScanner) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.CompanyID, &e.RetailerID, &e.UserID, &e.Username, &e.Contact, &e.TruckID, &e.LicensePlate, &e.CreatedAt)
	return e, err
}

func collectEmployees(rows pgx.Rows) ([]Employee, error) {
	defer rows.Close()
	out := []Employee{}
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
