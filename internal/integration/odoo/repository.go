package odoo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Store persists credentials and reads products for export.
type Store interface {
	SaveCredentials(ctx context.Context, creds Credentials) (Credentials, error)
	Credentials(ctx context.Context, userID int64) (Credentials, error)
	Product(ctx context.Context, id int64) (Product, error)
}

// Repository implements Store on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaveCredentials upserts the single credentials row of a user.
func (r *Repository) SaveCredentials(ctx context.Context, creds Credentials) (Credentials, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO odoo_credentials (user_id, url, db, username, password)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET url = EXCLUDED.url, db = EXCLUDED.db, username = EXCLUDED.username,
			password = EXCLUDED.password, updated_at = NOW()
		RETURNING user_id, url, db, username, password, updated_at`,
		creds.UserID, creds.URL, creds.DB, creds.Username, creds.Password)
	out, err := scanCredentials(row)
	if err != nil {
		return Credentials{}, db.MapError(err)
	}
	return out, nil
}

// Credentials loads the row of a user.
func (r *Repository) Credentials(ctx context.Context, userID int64) (Credentials, error) {
	row := r.pool.QueryRow(ctx, `SELECT user_id, url, db, username, password, updated_at
		FROM odoo_credentials WHERE user_id = $1`, userID)
	out, err := scanCredentials(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Credentials{}, ErrNoCredentials
	}
	if err != nil {
		return Credentials{}, err
	}
	return out, nil
}

// Product loads the exported fields of a product.
func (r *Repository) Product(ctx context.Context, id int64) (Product, error) {
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, name, price, available_quantity, created_by
		FROM products WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Price, &p.Available, &p.CreatedBy)
	if err != nil {
		return Product{}, db.MapError(err)
	}
	return p, nil
}

func scanCredentials(row pgx.Row) (Credentials, error) {
	var c Credentials
	err := row.Scan(&c.UserID, &c.URL, &c.DB, &c.Username, &c.Password, &c.UpdatedAt)
	return c, err
}
