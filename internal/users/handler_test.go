package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/rbac"
	"github.com/vendorflow/vendorflow/internal/shared"
)

type memoryRepo struct {
	users  []User
	groups map[int64][]string
}

func (m memoryRepo) ListUsers(context.Context) ([]User, error) { return m.users, nil }

func (m memoryRepo) UserGroups(_ context.Context, id int64) ([]string, error) {
	return m.groups[id], nil
}

type memoryAudit struct {
	companyID int64
	limit     int
}

func (a *memoryAudit) Recent(_ context.Context, companyID int64, limit int) ([]shared.AuditLog, error) {
	a.companyID, a.limit = companyID, limit
	return []shared.AuditLog{{ID: 1, CompanyID: companyID, Action: "create", Entity: "order", EntityID: "9"}}, nil
}

func newRouter(svc *Service, guard shared.CompanyGuard, p shared.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	NewHandler(nil, svc, guard, rbac.Middleware{}).MountRoutes(r)
	return r
}

func TestListUsersRequiresAdmin(t *testing.T) {
	svc := NewService(memoryRepo{users: []User{{ID: 1, Username: "root", Groups: []string{shared.GroupAdmin}}}}, nil)

	rec := httptest.NewRecorder()
	newRouter(svc, nil, shared.Principal{UserID: 2, Groups: []string{shared.GroupRetailer}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(svc, nil, shared.Principal{UserID: 1, Groups: []string{shared.GroupAdmin}}).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got []User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	require.Equal(t, []string{shared.GroupAdmin}, got[0].Groups)
}

func TestRecentActionsScopedToCompany(t *testing.T) {
	audit := &memoryAudit{}
	svc := NewService(memoryRepo{}, audit)
	guard := shared.CompanyGuardFunc(func(_ context.Context, _ shared.Principal, companyID int64) error {
		if companyID != 3 {
			return shared.ErrCompanyAccess
		}
		return nil
	})
	owner := shared.Principal{UserID: 5, Groups: []string{shared.GroupManufacturer}}

	rec := httptest.NewRecorder()
	newRouter(svc, guard, owner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent-actions?company=4", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	newRouter(svc, guard, owner).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/recent-actions?company=3", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(3), audit.companyID)
	require.Equal(t, 10, audit.limit)
}

func TestUserGroupsResolvesFromRepository(t *testing.T) {
	svc := NewService(memoryRepo{groups: map[int64][]string{7: {shared.GroupEmployee}}}, nil)
	groups, err := svc.UserGroups(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, []string{shared.GroupEmployee}, groups)
	require.ElementsMatch(t, shared.Groups, svc.Groups())
}
