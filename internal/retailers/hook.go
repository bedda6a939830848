package retailers

import (
	"context"

	"github.com/vendorflow/vendorflow/internal/auth"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// ProfileHook creates an empty profile for every registered retailer account.
type ProfileHook struct {
	Store Store
}

// OnRegistered implements auth.RegistrationHook.
func (h ProfileHook) OnRegistered(ctx context.Context, user auth.User, req auth.RegisterRequest) error {
	if req.GroupName != shared.GroupRetailer {
		return nil
	}
	return h.Store.CreateProfile(ctx, user.ID, user.Email)
}
