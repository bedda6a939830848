package auth

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

var (
	// ErrInvalidCredentials is returned for any failed login.
	ErrInvalidCredentials = shared.ErrInvalidCredentials
	// ErrInvalidToken indicates a malformed, expired or revoked token.
	ErrInvalidToken = fmt.Errorf("%w: invalid or expired token", httpx.ErrUnauthorized)
	// ErrUsernameTaken indicates a duplicate username.
	ErrUsernameTaken = fmt.Errorf("%w: username already exists", httpx.ErrDuplicate)
	// ErrUserMismatch indicates username and email do not belong to the same account.
	ErrUserMismatch = fmt.Errorf("%w: user with this username and email does not exist", httpx.ErrValidation)
	// ErrInvalidOTP indicates a wrong or unknown code.
	ErrInvalidOTP = fmt.Errorf("%w: invalid otp", httpx.ErrValidation)
	// ErrOTPExpired indicates an expired code.
	ErrOTPExpired = fmt.Errorf("%w: otp has expired", httpx.ErrValidation)
	// ErrOTPNotVerified indicates reset was attempted before verification.
	ErrOTPNotVerified = fmt.Errorf("%w: otp has not been verified", httpx.ErrValidation)
	// ErrPasswordMismatch indicates new and confirm passwords differ.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", httpx.ErrValidation)
	// ErrCompanyRequired indicates employee registration without a company.
	ErrCompanyRequired = fmt.Errorf("%w: company_id is required for employees", httpx.ErrValidation)
)
