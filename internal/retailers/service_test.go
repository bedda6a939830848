package retailers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/auth"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

type memoryStore struct {
	retailers []Retailer
	profiles  map[int64]Profile
}

func newMemoryStore() *memoryStore { return &memoryStore{profiles: map[int64]Profile{}} }

func (m *memoryStore) Create(_ context.Context, rt Retailer) (Retailer, error) {
	rt.ID = int64(len(m.retailers) + 1)
	m.retailers = append(m.retailers, rt)
	return rt, nil
}

func (m *memoryStore) List(_ context.Context, companyID int64, limit, offset int) ([]Retailer, int, error) {
	var all []Retailer
	for _, rt := range m.retailers {
		if rt.CompanyID == companyID {
			all = append(all, rt)
		}
	}
	end := min(len(all), offset+limit)
	if offset >= len(all) {
		return nil, len(all), nil
	}
	return all[offset:end], len(all), nil
}

func (m *memoryStore) Get(_ context.Context, companyID, id int64) (Retailer, error) {
	for _, rt := range m.retailers {
		if rt.ID == id && rt.CompanyID == companyID {
			return rt, nil
		}
	}
	return Retailer{}, shared.ErrNotFound
}

func (m *memoryStore) CountActive(_ context.Context, companyID int64) (int, error) {
	n := 0
	for _, rt := range m.retailers {
		if rt.CompanyID == companyID && rt.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) EnsureForUser(ctx context.Context, companyID, userID int64) (int64, error) {
	for _, rt := range m.retailers {
		if rt.CompanyID == companyID && rt.UserID != nil && *rt.UserID == userID {
			return rt.ID, nil
		}
	}
	rt, err := m.Create(ctx, Retailer{CompanyID: companyID, UserID: &userID, IsActive: true})
	return rt.ID, err
}

func (m *memoryStore) CreateProfile(_ context.Context, userID int64, email string) error {
	m.profiles[userID] = Profile{UserID: userID, Email: email}
	return nil
}

func (m *memoryStore) GetProfile(_ context.Context, userID int64) (Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return Profile{}, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) SaveProfile(_ context.Context, p Profile) (Profile, error) {
	m.profiles[p.UserID] = p
	return p, nil
}

func input() RetailerInput {
	return RetailerInput{
		Name:         "Corner Mart",
		Contact:      "+91 98400 12345",
		AddressLine1: "4 Bazaar St",
		City:         "Salem",
		State:        "Tamil Nadu",
		Pincode:      "636001",
	}
}

var owner = shared.Principal{UserID: 1, Groups: []string{shared.GroupManufacturer}}

func TestAddDefaultsAndNormalizes(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	rt, err := svc.Add(context.Background(), owner, 3, input())
	require.NoError(t, err)
	require.Equal(t, DefaultCountry, rt.Country)
	require.Equal(t, "+919840012345", rt.Contact)
	require.True(t, rt.IsActive)
	require.Equal(t, int64(3), rt.CompanyID)
}

func TestAddRejectsBadContactAndPincode(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	in := input()
	in.Contact = "000"
	_, err := svc.Add(context.Background(), owner, 3, in)
	require.ErrorIs(t, err, httpx.ErrValidation)

	in = input()
	in.Pincode = "12"
	_, err = svc.Add(context.Background(), owner, 3, in)
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestListPaginates(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, nil)
	for range 12 {
		_, err := svc.Add(context.Background(), owner, 3, input())
		require.NoError(t, err)
	}
	page, err := svc.List(context.Background(), 3, 2, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 12, page.Pagination.Total)
	require.Equal(t, 2, page.Pagination.TotalPages)
}

func TestProfileHookOnlyForRetailers(t *testing.T) {
	store := newMemoryStore()
	hook := ProfileHook{Store: store}
	ctx := context.Background()

	require.NoError(t, hook.OnRegistered(ctx, auth.User{ID: 4, Email: "r@example.com"}, auth.RegisterRequest{GroupName: shared.GroupRetailer}))
	require.NoError(t, hook.OnRegistered(ctx, auth.User{ID: 5}, auth.RegisterRequest{GroupName: shared.GroupManufacturer}))

	svc := NewService(store, nil, nil)
	p, err := svc.Profile(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, "r@example.com", p.Email)
	_, err = svc.Profile(ctx, 5)
	require.ErrorIs(t, err, shared.ErrNotFound)

	updated, err := svc.UpdateProfile(ctx, 4, ProfileInput{BusinessName: "Corner Mart", Phone: "9840012345", GSTIN: "33abcde1234f1z5"})
	require.NoError(t, err)
	require.Equal(t, "+919840012345", updated.Phone)
	require.Equal(t, "33ABCDE1234F1Z5", updated.GSTIN)
}
