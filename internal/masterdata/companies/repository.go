package companies

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, ownerID int64, filters shared.ListFilters) ([]Company, int, error)
	Get(ctx context.Context, id int64) (Company, error)
	Create(ctx context.Context, company Company) (Company, error)
	Update(ctx context.Context, id int64, company Company) (Company, error)
	Delete(ctx context.Context, id int64) error
	IsEmployee(ctx context.Context, userID, companyID int64) (bool, error)
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const companyColumns = `id, owner_id, name, gstin, address, state, city, pincode, phone, email, created_at, updated_at`

// List filters by owner when ownerID is positive.
func (r *repository) List(ctx context.Context, ownerID int64, filters shared.ListFilters) ([]Company, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	if ownerID > 0 {
		args = append(args, ownerID)
		where += ` AND owner_id = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR gstin ILIKE $` + strconv.Itoa(len(args)) + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM companies`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + companyColumns + ` FROM companies` + where + ` ORDER BY name ASC, id ASC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, max(0, (filters.Page-1)*filters.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Company, error) {
	c, err := scanCompany(r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id))
	return c, db.MapError(err)
}

func (r *repository) Create(ctx context.Context, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO companies (owner_id, name, gstin, address, state, city, pincode, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+companyColumns,
		c.OwnerID, c.Name, c.GSTIN, c.Address, c.State, c.City, c.Pincode, c.Phone, c.Email)
	created, err := scanCompany(row)
	return created, db.MapError(err)
}

func (r *repository) Update(ctx context.Context, id int64, c Company) (Company, error) {
	row := r.pool.QueryRow(ctx, `UPDATE companies
		SET name = $2, gstin = $3, address = $4, state = $5, city = $6, pincode = $7, phone = $8, email = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING `+companyColumns,
		id, c.Name, c.GSTIN, c.Address, c.State, c.City, c.Pincode, c.Phone, c.Email)
	updated, err := scanCompany(row)
	return updated, db.MapError(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) IsEmployee(ctx context.Context, userID, companyID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM employees WHERE user_id = $1 AND company_id = $2)`, userID, companyID).Scan(&ok)
	return ok, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &c.GSTIN, &c.Address, &c.State, &c.City, &c.Pincode, &c.Phone, &c.Email, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
