package connections

import "context"

// Store exposes reads and opens write transactions.
type Store interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	ListInvites(ctx context.Context, companyID int64) ([]Invite, error)
	ListRequests(ctx context.Context, companyID int64, status RequestStatus) ([]Request, error)
	ListConnections(ctx context.Context, companyID int64, status Status) ([]Connection, error)
	RetailerConnections(ctx context.Context, userID int64, statuses []Status) ([]Connection, error)
}

// TxStore is bound to one transaction. Methods ending in ForUpdate lock the row.
type TxStore interface {
	CompanyExists(ctx context.Context, companyID int64) (bool, error)
	CreateInvite(ctx context.Context, inv Invite) (Invite, error)
	InviteByCodeForUpdate(ctx context.Context, code string) (Invite, error)
	SaveInviteUsage(ctx context.Context, inv Invite) error
	RequestForUpdate(ctx context.Context, companyID, id int64) (Request, error)
	RequestFor(ctx context.Context, companyID, userID int64) (Request, error)
	SaveRequest(ctx context.Context, req Request) (Request, error)
	ConnectionForUpdate(ctx context.Context, companyID, id int64) (Connection, error)
	ConnectionBetween(ctx context.Context, companyID, userID int64) (Connection, error)
	CreateConnection(ctx context.Context, c Connection) (Connection, error)
	UpdateConnection(ctx context.Context, c Connection) (Connection, error)
	EnsureRetailer(ctx context.Context, companyID, userID int64) (int64, error)
}
