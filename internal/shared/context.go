package shared

import (
	"context"
	"slices"
)

// Group names recognised by the platform.
const (
	GroupAdmin        = "Admin"
	GroupManufacturer = "Manufacturer"
	GroupEmployee     = "Employee"
	GroupRetailer     = "Retailer"
)

// Groups lists every assignable group.
var Groups = []string{GroupAdmin, GroupManufacturer, GroupEmployee, GroupRetailer}

// Principal is the authenticated caller extracted from an access token.
type Principal struct {
	UserID   int64
	Username string
	Groups   []string
}

// HasGroup reports membership; Admin implies every group.
func (p Principal) HasGroup(group string) bool {
	return slices.Contains(p.Groups, group) || slices.Contains(p.Groups, GroupAdmin)
}

// IsAdmin reports whether the caller holds the Admin group.
func (p Principal) IsAdmin() bool {
	return slices.Contains(p.Groups, GroupAdmin)
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok && p.UserID > 0
}

// CompanyGuard decides whether a principal may act within a company.
type CompanyGuard interface {
	Authorize(ctx context.Context, p Principal, companyID int64) error
}

// CompanyGuardFunc adapts a function to CompanyGuard.
type CompanyGuardFunc func(ctx context.Context, p Principal, companyID int64) error

// Authorize calls f.
func (f CompanyGuardFunc) Authorize(ctx context.Context, p Principal, companyID int64) error {
	return f(ctx, p, companyID)
}

// AuthorizeCompany resolves the principal from ctx and checks it against guard.
func AuthorizeCompany(ctx context.Context, guard CompanyGuard, companyID int64) (Principal, error) {
	p, ok := PrincipalFromContext(ctx)
	if !ok {
		return Principal{}, ErrNoPrincipal
	}
	if guard == nil {
		return p, nil
	}
	if err := guard.Authorize(ctx, p, companyID); err != nil {
		return p, err
	}
	return p, nil
}
