package odoo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
	"github.com/vendorflow/vendorflow/jobs"
)

type memoryStore struct {
	creds    map[int64]Credentials
	products map[int64]Product
}

func newMemoryStore() *memoryStore {
	return &memoryStore{creds: map[int64]Credentials{}, products: map[int64]Product{}}
}

func (m *memoryStore) SaveCredentials(_ context.Context, c Credentials) (Credentials, error) {
	m.creds[c.UserID] = c
	return c, nil
}

func (m *memoryStore) Credentials(_ context.Context, userID int64) (Credentials, error) {
	c, ok := m.creds[userID]
	if !ok {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

func (m *memoryStore) Product(_ context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, httpx.ErrNotFound
	}
	return p, nil
}

type fakeRPC struct {
	authErr  error
	created  []Product
	lastCred Credentials
}

func (f *fakeRPC) Authenticate(_ context.Context, c Credentials) (int64, error) {
	f.lastCred = c
	if f.authErr != nil {
		return 0, f.authErr
	}
	return 3, nil
}

func (f *fakeRPC) CreateProduct(_ context.Context, _ Credentials, uid int64, p Product) (int64, error) {
	if uid != 3 {
		return 0, errors.New("bad uid")
	}
	f.created = append(f.created, p)
	return int64(100 + len(f.created)), nil
}

func syncTask(t *testing.T, productID, userID int64) *asynq.Task {
	t.Helper()
	task, err := jobs.NewProductSyncTask(productID, userID)
	require.NoError(t, err)
	return task
}

func TestSyncProductUsesDefaultURL(t *testing.T) {
	store := newMemoryStore()
	store.creds[5] = Credentials{UserID: 5, DB: "shop", Username: "u", Password: "p"}
	store.products[9] = Product{ID: 9, Name: "Dal", Price: decimal.NewFromInt(80), Available: 12}
	rpc := &fakeRPC{}
	svc := NewService(store, rpc, "http://odoo.local:8069/", nil)

	id, err := svc.SyncProduct(context.Background(), 9, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(101), id)
	assert.Equal(t, "http://odoo.local:8069", rpc.lastCred.URL)
	require.Len(t, rpc.created, 1)
	assert.Equal(t, "Dal", rpc.created[0].Name)
}

func TestHandleProductSyncNeverRetries(t *testing.T) {
	store := newMemoryStore()
	store.products[9] = Product{ID: 9, Name: "Dal"}
	rpc := &fakeRPC{}
	svc := NewService(store, rpc, "http://odoo.local", nil)

	// missing credentials
	require.NoError(t, svc.HandleProductSync(context.Background(), syncTask(t, 9, 5)))
	assert.Empty(t, rpc.created)

	// auth failure
	store.creds[5] = Credentials{UserID: 5, DB: "shop"}
	rpc.authErr = ErrAuthFailed
	require.NoError(t, svc.HandleProductSync(context.Background(), syncTask(t, 9, 5)))
	assert.Empty(t, rpc.created)

	// unknown product
	rpc.authErr = nil
	require.NoError(t, svc.HandleProductSync(context.Background(), syncTask(t, 404, 5)))
	assert.Empty(t, rpc.created)

	require.NoError(t, svc.HandleProductSync(context.Background(), syncTask(t, 9, 5)))
	assert.Len(t, rpc.created, 1)

	err := svc.HandleProductSync(context.Background(), asynq.NewTask(jobs.TaskTypeProductSync, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestCredentialsEndpoints(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, &fakeRPC{}, "", nil)
	p := shared.Principal{UserID: 8, Groups: []string{shared.GroupManufacturer}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), p)))
		})
	})
	NewHandler(nil, svc).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(`{"db":"shop"}`)))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	body := `{"db":" shop ","username":"ops@example.com","password":"secret"}`
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/credentials", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "shop", store.creds[8].DB)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/credentials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "ops@example.com", got["username"])
	assert.NotContains(t, got, "password")
}
