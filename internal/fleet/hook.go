package fleet

import (
	"context"

	"github.com/vendorflow/vendorflow/internal/auth"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// EmployeeHook creates the employee record of users registering into the Employee group.
type EmployeeHook struct {
	Service *Service
}

// OnRegistered implements auth.RegistrationHook.
func (h EmployeeHook) OnRegistered(ctx context.Context, user auth.User, req auth.RegisterRequest) error {
	if req.GroupName != shared.GroupEmployee || req.CompanyID <= 0 {
		return nil
	}
	_, err := h.Service.CreateEmployee(ctx, user.Principal(), req.CompanyID, EmployeeInput{
		UserID:  user.ID,
		Contact: req.Contact,
	})
	return err
}
