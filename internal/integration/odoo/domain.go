// Package odoo exports newly created products to each user's Odoo instance over XML-RPC.
package odoo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrNoCredentials means the user never saved Odoo credentials.
	ErrNoCredentials = fmt.Errorf("%w: odoo credentials not configured", httpx.ErrNotFound)
	// ErrAuthFailed means Odoo rejected the stored credentials.
	ErrAuthFailed = fmt.Errorf("%w: odoo authentication failed", httpx.ErrUnauthorized)
)

// Credentials are stored per user. Password never leaves the server.
type Credentials struct {
	UserID    int64     `json:"user_id"`
	URL       string    `json:"url"`
	DB        string    `json:"db"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SaveRequest is the body of the credentials endpoint.
type SaveRequest struct {
	URL      string `json:"url" validate:"omitempty,url"`
	DB       string `json:"db" validate:"required"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Product is the slice of a product that Odoo receives.
type Product struct {
	ID        int64
	Name      string
	Price     decimal.Decimal
	Available int64
	CreatedBy *int64
}
