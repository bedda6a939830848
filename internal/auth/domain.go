package auth

import (
	"time"

	"github.com/vendorflow/vendorflow/internal/shared"
)

// User represents an authenticated user account.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsActive     bool       `json:"is_active"`
	Groups       []string   `json:"groups"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal converts the user into the request principal.
func (u User) Principal() shared.Principal {
	return shared.Principal{UserID: u.ID, Username: u.Username, Groups: u.Groups}
}

// RegisterRequest is the payload for account registration.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=150"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	GroupName string `json:"group_name" validate:"required,oneof=Admin Manufacturer Employee Retailer"`
	CompanyID int64  `json:"company_id,omitempty" validate:"omitempty,gt=0"`
	Contact   string `json:"contact,omitempty" validate:"omitempty,max=20"`
}

// LoginRequest is the payload for the token endpoint.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries a refresh token.
type RefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// ForgotPasswordRequest starts an OTP reset.
type ForgotPasswordRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest checks an OTP.
type VerifyOTPRequest struct {
	Username string `json:"username" validate:"required,max=150"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

// ResetPasswordRequest completes an OTP reset.
type ResetPasswordRequest struct {
	Username        string `json:"username" validate:"required,max=150"`
	OTP             string `json:"otp" validate:"required,len=6,numeric"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
	ConfirmPassword string `json:"confirm_password" validate:"required,min=8,max=128"`
}

// ResendOTPRequest re-issues an OTP.
type ResendOTPRequest struct {
	Username string `json:"username" validate:"required,max=150"`
}

// TokenPair is returned by login.
type TokenPair struct {
	Access           string    `json:"access"`
	Refresh          string    `json:"refresh"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// LoginResponse is the body returned by the token endpoint.
type LoginResponse struct {
	TokenPair
	User User `json:"user"`
}

// OTPRecord is the Redis representation of a pending reset code.
type OTPRecord struct {
	Code      string    `json:"code"`
	Verified  bool      `json:"verified"`
	Attempts  int       `json:"attempts"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the code is past its validity window.
func (r OTPRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
