package retailers

import (
	"context"

	"github.com/vendorflow/vendorflow/internal/platform/db"
)

// Repository persists retailers and retailer profiles.
type Repository struct {
	q db.Querier
}

// NewRepository binds the repository to a pool or an open transaction.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const retailerColumns = `id, company_id, user_id, name, contact_person, email, contact, address_line1, address_line2,
	city, state, pincode, country, gstin, distance_from_warehouse, is_active, created_at`

// Create inserts a retailer row.
func (r *Repository) Create(ctx context.Context, rt Retailer) (Retailer, error) {
	row := r.q.QueryRow(ctx, `INSERT INTO retailers (company_id, user_id, name, contact_person, email, contact,
			address_line1, address_line2, city, state, pincode, country, gstin, distance_from_warehouse)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING `+retailerColumns,
		rt.CompanyID, rt.UserID, rt.Name, rt.ContactPerson, rt.Email, rt.Contact,
		rt.AddressLine1, rt.AddressLine2, rt.City, rt.State, rt.Pincode, rt.Country, rt.GSTIN, rt.DistanceFromWarehouse)
	created, err := scanRetailer(row)
	return created, db.MapError(err)
}

// List returns a page of a company's retailers and the total count.
func (r *Repository) List(ctx context.Context, companyID int64, limit, offset int) ([]Retailer, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM retailers WHERE company_id = $1`, companyID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+retailerColumns+` FROM retailers WHERE company_id = $1
		ORDER BY name, id LIMIT $2 OFFSET $3`, companyID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Retailer
	for rows.Next() {
		rt, err := scanRetailer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, rt)
	}
	return out, total, rows.Err()
}

// Get loads one retailer of a company.
func (r *Repository) Get(ctx context.Context, companyID, id int64) (Retailer, error) {
	rt, err := scanRetailer(r.q.QueryRow(ctx, `SELECT `+retailerColumns+` FROM retailers WHERE id = $1 AND company_id = $2`, id, companyID))
	return rt, db.MapError(err)
}

// CountActive counts the active retailers of a company.
func (r *Repository) CountActive(ctx context.Context, companyID int64) (int, error) {
	var n int
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM retailers WHERE company_id = $1 AND is_active`, companyID).Scan(&n)
	return n, err
}

// EnsureForUser returns the company's retailer row for userID, creating it from
// the user's profile when missing and reactivating it otherwise.
func (r *Repository) EnsureForUser(ctx context.Context, companyID, userID int64) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `INSERT INTO retailers (company_id, user_id, name, contact_person, email, contact,
			address_line1, city, state, pincode, gstin)
		SELECT $1, u.id,
			COALESCE(NULLIF(p.business_name, ''), u.username),
			COALESCE(p.contact_person, ''),
			COALESCE(NULLIF(p.email, ''), u.email),
			COALESCE(p.phone, ''),
			COALESCE(p.address, ''),
			COALESCE(p.city, ''),
			COALESCE(p.state, ''),
			COALESCE(p.pincode, ''),
			COALESCE(p.gstin, '')
		FROM users u
		LEFT JOIN retailer_profiles p ON p.user_id = u.id
		WHERE u.id = $2
		ON CONFLICT (company_id, user_id) DO UPDATE SET is_active = TRUE
		RETURNING id`, companyID, userID).Scan(&id)
	if err != nil {
		return 0, db.MapError(err)
	}
	return id, nil
}

// CreateProfile inserts an empty profile for a new retailer account.
func (r *Repository) CreateProfile(ctx context.Context, userID int64, email string) error {
	_, err := r.q.Exec(ctx, `INSERT INTO retailer_profiles (user_id, email) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING`, userID, email)
	return db.MapError(err)
}

// GetProfile loads a retailer profile.
func (r *Repository) GetProfile(ctx context.Context, userID int64) (Profile, error) {
	var p Profile
	err := r.q.QueryRow(ctx, `SELECT user_id, business_name, contact_person, phone, email, address, city, state, pincode, gstin, updated_at
		FROM retailer_profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.BusinessName, &p.ContactPerson, &p.Phone, &p.Email, &p.Address, &p.City, &p.State, &p.Pincode, &p.GSTIN, &p.UpdatedAt)
	if err != nil {
		return Profile{}, db.MapError(err)
	}
	return p, nil
}

// SaveProfile upserts a retailer profile.
func (r *Repository) SaveProfile(ctx context.Context, p Profile) (Profile, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO retailer_profiles (user_id, business_name, contact_person, phone, email, address, city, state, pincode, gstin)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (user_id) DO UPDATE SET business_name = EXCLUDED.business_name, contact_person = EXCLUDED.contact_person,
			phone = EXCLUDED.phone, email = EXCLUDED.email, address = EXCLUDED.address, city = EXCLUDED.city,
			state = EXCLUDED.state, pincode = EXCLUDED.pincode, gstin = EXCLUDED.gstin, updated_at = NOW()
		RETURNING updated_at`,
		p.UserID, p.BusinessName, p.ContactPerson, p.Phone, p.Email, p.Address, p.City, p.State, p.Pincode, p.GSTIN).Scan(&p.UpdatedAt)
	if err != nil {
		return Profile{}, db.MapError(err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRetailer(row rowScanner) (Retailer, error) {
	var rt Retailer
	err := row.Scan(&rt.ID, &rt.CompanyID, &rt.UserID, &rt.Name, &rt.ContactPerson, &rt.Email, &rt.Contact,
		&rt.AddressLine1, &rt.AddressLine2, &rt.City, &rt.State, &rt.Pincode, &rt.Country, &rt.GSTIN,
		&rt.DistanceFromWarehouse, &rt.IsActive, &rt.CreatedAt)
	return rt, err
}

var _ Store = (*Repository)(nil)
