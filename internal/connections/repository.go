package connections

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/platform/db"
	"github.com/vendorflow/vendorflow/internal/retailers"
)

// Repository persists invites, requests and connections in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ Store = (*Repository)(nil)

// WithTx runs fn inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx})
	})
}

const inviteColumns = `id, company_id, code, created_by, expires_at, max_uses, current_uses, is_used, created_at`

func (r *Repository) ListInvites(ctx context.Context, companyID int64) ([]Invite, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+inviteColumns+` FROM company_invites WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

const requestSelect = `SELECT rr.id, rr.retailer_user_id, u.username, rr.company_id, c.name, rr.status, rr.message,
		rr.rejection_reason, rr.responded_by, rr.responded_at, rr.created_at
	FROM retailer_requests rr
	JOIN users u ON u.id = rr.retailer_user_id
	JOIN companies c ON c.id = rr.company_id`

func (r *Repository) ListRequests(ctx context.Context, companyID int64, status RequestStatus) ([]Request, error) {
	rows, err := r.pool.Query(ctx, requestSelect+` WHERE rr.company_id = $1 AND ($2 = '' OR rr.status = $2)
		ORDER BY rr.created_at DESC`, companyID, string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Request{}
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

const connectionSelect = `SELECT cc.id, cc.company_id, c.name, cc.retailer_user_id, u.username, cc.retailer_id, cc.status,
		cc.credit_limit, cc.payment_terms, cc.notes, cc.invite_id, cc.approved_by, cc.connected_at,
		cc.suspended_at, cc.suspension_reason, cc.total_orders, cc.total_order_value, cc.updated_at
	FROM company_retailer_connections cc
	JOIN companies c ON c.id = cc.company_id
	JOIN users u ON u.id = cc.retailer_user_id`

func (r *Repository) ListConnections(ctx context.Context, companyID int64, status Status) ([]Connection, error) {
	rows, err := r.pool.Query(ctx, connectionSelect+` WHERE cc.company_id = $1 AND ($2 = '' OR cc.status = $2)
		ORDER BY cc.connected_at DESC`, companyID, string(status))
	if err != nil {
		return nil, err
	}
	return collectConnections(rows)
}

func (r *Repository) RetailerConnections(ctx context.Context, userID int64, statuses []Status) ([]Connection, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	rows, err := r.pool.Query(ctx, connectionSelect+` WHERE cc.retailer_user_id = $1 AND cc.status = ANY($2)
		ORDER BY c.name`, userID, names)
	if err != nil {
		return nil, err
	}
	return collectConnections(rows)
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) CompanyExists(ctx context.Context, companyID int64) (bool, error) {
	var ok bool
	err := s.tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM companies WHERE id = $1)`, companyID).Scan(&ok)
	return ok, err
}

func (s *txStore) CreateInvite(ctx context.Context, inv Invite) (Invite, error) {
	row := s.tx.QueryRow(ctx, `INSERT INTO company_invites (company_id, code, created_by, expires_at, max_uses)
		VALUES ($1, $2, $3, $4, $5) RETURNING `+inviteColumns,
		inv.CompanyID, inv.Code, inv.CreatedBy, inv.ExpiresAt, inv.MaxUses)
	created, err := scanInvite(row)
	return created, db.MapError(err)
}

func (s *txStore) InviteByCodeForUpdate(ctx context.Context, code string) (Invite, error) {
	inv, err := scanInvite(s.tx.QueryRow(ctx, `SELECT `+inviteColumns+` FROM company_invites WHERE code = $1 FOR UPDATE`, code))
	return inv, db.MapError(err)
}

func (s *txStore) SaveInviteUsage(ctx context.Context, inv Invite) error {
	_, err := s.tx.Exec(ctx, `UPDATE company_invites SET current_uses = $2, is_used = $3 WHERE id = $1`,
		inv.ID, inv.CurrentUses, inv.IsUsed)
	return db.MapError(err)
}

func (s *txStore) RequestForUpdate(ctx context.Context, companyID, id int64) (Request, error) {
	req, err := scanRequest(s.tx.QueryRow(ctx, requestSelect+` WHERE rr.id = $1 AND rr.company_id = $2 FOR UPDATE OF rr`, id, companyID))
	return req, db.MapError(err)
}

func (s *txStore) RequestFor(ctx context.Context, companyID, userID int64) (Request, error) {
	req, err := scanRequest(s.tx.QueryRow(ctx, requestSelect+` WHERE rr.company_id = $1 AND rr.retailer_user_id = $2 FOR UPDATE OF rr`, companyID, userID))
	return req, db.MapError(err)
}

func (s *txStore) SaveRequest(ctx context.Context, req Request) (Request, error) {
	err := s.tx.QueryRow(ctx, `INSERT INTO retailer_requests (retailer_user_id, company_id, status, message, rejection_reason, responded_by, responded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (retailer_user_id, company_id) DO UPDATE SET status = EXCLUDED.status, message = EXCLUDED.message,
			rejection_reason = EXCLUDED.rejection_reason, responded_by = EXCLUDED.responded_by, responded_at = EXCLUDED.responded_at
		RETURNING id, created_at`,
		req.RetailerUserID, req.CompanyID, string(req.Status), req.Message, req.RejectionReason, req.RespondedBy, req.RespondedAt).
		Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return Request{}, db.MapError(err)
	}
	return req, nil
}

func (s *txStore) ConnectionForUpdate(ctx context.Context, companyID, id int64) (Connection, error) {
	c, err := scanConnection(s.tx.QueryRow(ctx, connectionSelect+` WHERE cc.id = $1 AND cc.company_id = $2 FOR UPDATE OF cc`, id, companyID))
	return c, db.MapError(err)
}

func (s *txStore) ConnectionBetween(ctx context.Context, companyID, userID int64) (Connection, error) {
	c, err := scanConnection(s.tx.QueryRow(ctx, connectionSelect+` WHERE cc.company_id = $1 AND cc.retailer_user_id = $2 FOR UPDATE OF cc`, companyID, userID))
	return c, db.MapError(err)
}

func (s *txStore) CreateConnection(ctx context.Context, c Connection) (Connection, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO company_retailer_connections (company_id, retailer_user_id, retailer_id, status,
			credit_limit, payment_terms, notes, invite_id, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING id`,
		c.CompanyID, c.RetailerUserID, c.RetailerID, string(c.Status), c.CreditLimit, c.PaymentTerms, c.Notes, c.InviteID, c.ApprovedBy).Scan(&id)
	if err != nil {
		return Connection{}, db.MapError(err)
	}
	return s.ConnectionForUpdate(ctx, c.CompanyID, id)
}

func (s *txStore) UpdateConnection(ctx context.Context, c Connection) (Connection, error) {
	_, err := s.tx.Exec(ctx, `UPDATE company_retailer_connections
		SET status = $2, retailer_id = $3, credit_limit = $4, payment_terms = $5, notes = $6, invite_id = $7, approved_by = $8,
			connected_at = $9, suspended_at = $10, suspension_reason = $11, updated_at = NOW()
		WHERE id = $1`,
		c.ID, string(c.Status), c.RetailerID, c.CreditLimit, c.PaymentTerms, c.Notes, c.InviteID, c.ApprovedBy,
		c.ConnectedAt, c.SuspendedAt, c.SuspensionReason)
	if err != nil {
		return Connection{}, db.MapError(err)
	}
	return s.ConnectionForUpdate(ctx, c.CompanyID, c.ID)
}

func (s *txStore) EnsureRetailer(ctx context.Context, companyID, userID int64) (int64, error) {
	return retailers.NewRepository(s.tx).EnsureForUser(ctx, companyID, userID)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvite(row rowScanner) (Invite, error) {
	var inv Invite
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Code, &inv.CreatedBy, &inv.ExpiresAt, &inv.MaxUses, &inv.CurrentUses, &inv.IsUsed, &inv.CreatedAt)
	inv.Code = strings.TrimSpace(inv.Code)
	return inv, err
}

func scanRequest(row rowScanner) (Request, error) {
	var (
		req    Request
		status string
	)
	err := row.Scan(&req.ID, &req.RetailerUserID, &req.RetailerName, &req.CompanyID, &req.CompanyName, &status, &req.Message,
		&req.RejectionReason, &req.RespondedBy, &req.RespondedAt, &req.CreatedAt)
	req.Status = RequestStatus(status)
	return req, err
}

func scanConnection(row rowScanner) (Connection, error) {
	var (
		c      Connection
		status string
	)
	err := row.Scan(&c.ID, &c.CompanyID, &c.CompanyName, &c.RetailerUserID, &c.RetailerName, &c.RetailerID, &status,
		&c.CreditLimit, &c.PaymentTerms, &c.Notes, &c.InviteID, &c.ApprovedBy, &c.ConnectedAt,
		&c.SuspendedAt, &c.SuspensionReason, &c.TotalOrders, &c.TotalOrderValue, &c.UpdatedAt)
	c.Status = Status(status)
	return c, err
}

func collectConnections(rows pgx.Rows) ([]Connection, error) {
	defer rows.Close()
	out := []Connection{}
	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
