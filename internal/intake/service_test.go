package intake

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/inventory/inventorytest"
	"github.com/vendorflow/vendorflow/internal/shared"
)

type memoryStore struct {
	stock      *inventorytest.MemStore
	categories map[string]int64
	products   []ProductRef
}

func newMemoryStore() *memoryStore {
	return &memoryStore{stock: inventorytest.New(), categories: map[string]int64{}}
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, m)
}

func (m *memoryStore) GetOrCreateCategory(_ context.Context, _ int64, name string) (int64, error) {
	for existing, id := range m.categories {
		if SameName(existing, name) {
			return id, nil
		}
	}
	id := int64(len(m.categories) + 1)
	m.categories[name] = id
	return id, nil
}

func (m *memoryStore) ProductsNamed(_ context.Context, _ int64, name string) ([]ProductRef, error) {
	var out []ProductRef
	for _, p := range m.products {
		if SameName(p.Name, name) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryStore) CreateProduct(_ context.Context, companyID, categoryID int64, name string, _ int64) (int64, error) {
	id := int64(len(m.products) + 1)
	m.products = append(m.products, ProductRef{ID: id, Name: name, CategoryID: &categoryID})
	m.stock.AddProduct(companyID, id, 0)
	return id, nil
}

func (m *memoryStore) Inventory() inventory.TxStore { return m.stock }

type recordingLocker struct{ keys []string }

func (l *recordingLocker) Acquire(_ context.Context, key string) func() {
	l.keys = append(l.keys, key)
	return func() {}
}

type recordingSync struct{ products []int64 }

func (s *recordingSync) ScheduleProductSync(_ context.Context, productID, _ int64) error {
	s.products = append(s.products, productID)
	return nil
}

var admin = shared.Principal{UserID: 1, Groups: []string{shared.GroupManufacturer}}

func TestStoreQRCreatesThenReceives(t *testing.T) {
	store := newMemoryStore()
	locker := &recordingLocker{}
	sync := &recordingSync{}
	svc := NewService(store, nil, Options{Locker: locker, Sync: sync})
	ctx := context.Background()

	first, err := svc.StoreQR(ctx, admin, 10, "name=Camera|category=Electronics|quantity=10")
	require.NoError(t, err)
	require.True(t, first.Created)
	require.Equal(t, int64(10), first.Available)
	require.Equal(t, inventory.StatusSufficient, first.StockState)

	second, err := svc.StoreQR(ctx, admin, 10, "NAME=camera|category=electronics|quantity=5")
	require.NoError(t, err)
	require.False(t, second.Created)
	require.Equal(t, first.ProductID, second.ProductID)
	require.Equal(t, "Camera", second.Name)
	require.Equal(t, int64(15), store.stock.Product(first.ProductID).Available)
	require.Len(t, store.categories, 1)

	require.Equal(t, []int64{first.ProductID}, sync.products)
	require.Contains(t, locker.keys, shared.IntakeLockKey(10, "Camera"))
	require.Contains(t, locker.keys, shared.InventoryLockKey(10))
}

func TestStoreQRPrefersSameCategory(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, Options{})
	ctx := context.Background()

	grains, err := store.GetOrCreateCategory(ctx, 10, "Grains")
	require.NoError(t, err)
	other, err := store.GetOrCreateCategory(ctx, 10, "Gifts")
	require.NoError(t, err)
	_, err = store.CreateProduct(ctx, 10, other, "Rice", 0)
	require.NoError(t, err)
	want, err := store.CreateProduct(ctx, 10, grains, "rice", 0)
	require.NoError(t, err)

	res, err := svc.StoreQR(ctx, admin, 10, "name=RICE|category=grains|quantity=2")
	require.NoError(t, err)
	require.Equal(t, want, res.ProductID)
}

func TestStoreQRRecomputesStatus(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, nil, Options{})
	ctx := context.Background()

	id, err := store.CreateProduct(ctx, 10, 1, "Dal", 0)
	require.NoError(t, err)
	store.stock.PutOrder(500, "pending", map[int64]int64{id: 8})

	res, err := svc.StoreQR(ctx, admin, 10, "name=Dal|quantity=3")
	require.NoError(t, err)
	require.Equal(t, int64(8), res.Required)
	require.Equal(t, inventory.StatusOnDemand, res.StockState)

	res, err = svc.StoreQR(ctx, admin, 10, "name=Dal|quantity=5")
	require.NoError(t, err)
	require.Equal(t, inventory.StatusSufficient, res.StockState)
}

func TestStoreQRRejectsBadLabel(t *testing.T) {
	svc := NewService(newMemoryStore(), nil, Options{})
	_, err := svc.StoreQR(context.Background(), admin, 10, "category=Grains")
	require.ErrorIs(t, err, ErrInvalidQR)
}
