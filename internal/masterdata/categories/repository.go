package categories

import (
	"context"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error)
	Get(ctx context.Context, companyID, id int64) (Category, error)
	FindByName(ctx context.Context, companyID int64, name string) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	GetOrCreate(ctx context.Context, companyID int64, name string) (Category, error)
	Update(ctx context.Context, companyID, id int64, name string) (Category, error)
	Delete(ctx context.Context, companyID, id int64) error
	Stock(ctx context.Context, companyID int64) ([]Stock, error)
}

type repository struct {
	q db.Querier
}

// NewRepository binds the repository to a pool or an open transaction.
func NewRepository(q db.Querier) Repository {
	return &repository{q: q}
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	where := ` WHERE company_id = $1`
	args := []any{filters.CompanyID}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND name ILIKE $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM categories`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT id, company_id, name, created_at FROM categories` + where + ` ORDER BY name ASC`
	if filters.Limit > 0 {
		args = append(args, filters.Limit, max(0, (filters.Page-1)*filters.Limit))
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.CompanyID, &c.Name, &c.CreatedAt); err != nil {
			return nil, 0, err
		}
		categories = append(categories, c)
	}
	return categories, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Category, error) {
	var c Category
	err := r.q.QueryRow(ctx, `SELECT id, company_id, name, created_at FROM categories WHERE id = $1 AND company_id = $2`, id, companyID).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.CreatedAt)
	return c, db.MapError(err)
}

func (r *repository) FindByName(ctx context.Context, companyID int64, name string) (Category, error) {
	var c Category
	err := r.q.QueryRow(ctx, `SELECT id, company_id, name, created_at FROM categories WHERE company_id = $1 AND lower(name) = lower($2)`, companyID, name).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.CreatedAt)
	return c, db.MapError(err)
}

func (r *repository) Create(ctx context.Context, category Category) (Category, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO categories (company_id, name) VALUES ($1, $2) RETURNING id, created_at`, category.CompanyID, category.Name).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		return Category{}, db.MapError(err)
	}
	return category, nil
}

func (r *repository) GetOrCreate(ctx context.Context, companyID int64, name string) (Category, error) {
	_, err := r.q.Exec(ctx, `INSERT INTO categories (company_id, name) VALUES ($1, $2)
		ON CONFLICT (company_id, lower(name)) DO NOTHING`, companyID, name)
	if err != nil {
		return Category{}, db.MapError(err)
	}
	return r.FindByName(ctx, companyID, name)
}

func (r *repository) Update(ctx context.Context, companyID, id int64, name string) (Category, error) {
	var c Category
	err := r.q.QueryRow(ctx, `UPDATE categories SET name = $3 WHERE id = $1 AND company_id = $2
		RETURNING id, company_id, name, created_at`, id, companyID, name).
		Scan(&c.ID, &c.CompanyID, &c.Name, &c.CreatedAt)
	return c, db.MapError(err)
}

func (r *repository) Delete(ctx context.Context, companyID, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM categories WHERE id = $1 AND company_id = $2`, id, companyID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Stock(ctx context.Context, companyID int64) ([]Stock, error) {
	rows, err := r.q.Query(ctx, `SELECT c.id, c.name, COUNT(p.id)
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		WHERE c.company_id = $1
		GROUP BY c.id, c.name
		ORDER BY c.name`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Stock{}
	for rows.Next() {
		var s Stock
		if err := rows.Scan(&s.ID, &s.Name, &s.Value); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
