package shared

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", httpx.ErrUnauthorized)
	// ErrNoPrincipal indicates the request carries no authenticated user.
	ErrNoPrincipal = fmt.Errorf("%w: authentication required", httpx.ErrUnauthorized)
	// ErrCompanyAccess indicates the principal may not act on the company.
	ErrCompanyAccess = fmt.Errorf("%w: no access to company", httpx.ErrForbidden)
)
