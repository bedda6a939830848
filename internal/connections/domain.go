package connections

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequestStatus is the review state of a retailer request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// Status is the state of a company-retailer connection.
type Status string

const (
	StatusApproved   Status = "approved"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// Active reports whether the connection still links the parties.
func (s Status) Active() bool {
	return s == StatusApproved || s == StatusSuspended
}

const (
	inviteCodeLength     = 8
	inviteCodeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	defaultInviteDays    = 7
	defaultInviteMaxUses = 1
	// DefaultPaymentTerms applies when a connection is created without terms.
	DefaultPaymentTerms = "Net 30 days"
)

// Invite is a join code issued by a company.
type Invite struct {
	ID          int64     `json:"id"`
	CompanyID   int64     `json:"company_id"`
	Code        string    `json:"invite_code"`
	CreatedBy   int64     `json:"created_by"`
	ExpiresAt   time.Time `json:"expires_at"`
	MaxUses     int       `json:"max_uses"`
	CurrentUses int       `json:"current_uses"`
	IsUsed      bool      `json:"is_used"`
	CreatedAt   time.Time `json:"created_at"`
}

// Usable reports whether the code can still be redeemed at now.
func (i Invite) Usable(now time.Time) bool {
	return !i.IsUsed && now.Before(i.ExpiresAt) && i.CurrentUses < i.MaxUses
}

// Request is a retailer's application to connect with a company.
type Request struct {
	ID              int64         `json:"id"`
	RetailerUserID  int64         `json:"retailer_user_id"`
	RetailerName    string        `json:"retailer_name,omitempty"`
	CompanyID       int64         `json:"company_id"`
	CompanyName     string        `json:"company_name,omitempty"`
	Status          RequestStatus `json:"status"`
	Message         string        `json:"message"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	RespondedBy     *int64        `json:"responded_by,omitempty"`
	RespondedAt     *time.Time    `json:"responded_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
}

// Connection links a retailer account to a company.
type Connection struct {
	ID               int64           `json:"id"`
	CompanyID        int64           `json:"company_id"`
	CompanyName      string          `json:"company_name,omitempty"`
	RetailerUserID   int64           `json:"retailer_user_id"`
	RetailerName     string          `json:"retailer_name,omitempty"`
	RetailerID       int64           `json:"retailer_id"`
	Status           Status          `json:"status"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	PaymentTerms     string          `json:"payment_terms"`
	Notes            string          `json:"notes,omitempty"`
	InviteID         *int64          `json:"invite_id,omitempty"`
	ApprovedBy       *int64          `json:"approved_by,omitempty"`
	ConnectedAt      time.Time       `json:"connected_at"`
	SuspendedAt      *time.Time      `json:"suspended_at,omitempty"`
	SuspensionReason string          `json:"suspension_reason,omitempty"`
	TotalOrders      int             `json:"total_orders"`
	TotalOrderValue  decimal.Decimal `json:"total_order_value"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// GenerateInviteRequest is the payload for issuing a code.
type GenerateInviteRequest struct {
	ExpiresInDays int `json:"expires_in_days,omitempty" validate:"omitempty,min=1,max=30"`
	MaxUses       int `json:"max_uses,omitempty" validate:"omitempty,min=1,max=1000"`
}

// RespondRequest approves or rejects a pending request.
type RespondRequest struct {
	Action       string           `json:"action" validate:"required,oneof=approve reject"`
	Reason       string           `json:"reason,omitempty" validate:"omitempty,max=500"`
	CreditLimit  *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentTerms string           `json:"payment_terms,omitempty" validate:"omitempty,max=100"`
}

// UpdateConnectionRequest changes status or commercial terms of a connection.
type UpdateConnectionRequest struct {
	Status       Status           `json:"status,omitempty" validate:"omitempty,oneof=approved suspended terminated"`
	CreditLimit  *decimal.Decimal `json:"credit_limit,omitempty"`
	PaymentTerms *string          `json:"payment_terms,omitempty" validate:"omitempty,max=100"`
	Notes        *string          `json:"notes,omitempty"`
	Reason       string           `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// JoinRequest redeems an invite code.
type JoinRequest struct {
	Code string `json:"invite_code" validate:"required,len=8,alphanum"`
}

// ApprovalRequest asks a company for a connection.
type ApprovalRequest struct {
	CompanyID int64  `json:"company_id" validate:"required,gt=0"`
	Message   string `json:"message" validate:"required,max=1000"`
}
