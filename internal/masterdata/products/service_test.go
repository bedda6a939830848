package products

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/inventory/inventorytest"
	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	core "github.com/vendorflow/vendorflow/internal/shared"
)

type memoryRepo struct {
	nextID     int64
	products   map[int64]Product
	categories map[int64]int64
	approved   map[[2]int64]bool
	stock      *inventorytest.MemStore
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products:   map[int64]Product{},
		categories: map[int64]int64{},
		approved:   map[[2]int64]bool{},
		stock:      inventorytest.New(),
	}
}

func (m *memoryRepo) Catalog(_ context.Context, userID int64, f shared.ListFilters) ([]CatalogItem, int, error) {
	var out []CatalogItem
	for _, p := range m.products {
		p = m.withCounters(p)
		if !m.approved[[2]int64{p.CompanyID, userID}] || p.Available <= 0 {
			continue
		}
		if f.CompanyID > 0 && p.CompanyID != f.CompanyID {
			continue
		}
		out = append(out, CatalogItem{ProductID: p.ID, CompanyID: p.CompanyID, Name: p.Name, Unit: p.Unit,
			Price: p.Price, Available: p.Available, Status: p.Status})
	}
	return out, len(out), nil
}

func (m *memoryRepo) List(_ context.Context, f shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for _, p := range m.products {
		p = m.withCounters(p)
		if p.CompanyID == f.CompanyID && (f.Status == "" || string(p.Status) == f.Status) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok || p.CompanyID != companyID {
		return Product{}, shared.ErrNotFound
	}
	return m.withCounters(p), nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) FindByName(_ context.Context, companyID int64, name string) (Product, error) {
	for _, p := range m.products {
		if p.CompanyID == companyID && strings.EqualFold(p.Name, name) {
			return m.withCounters(p), nil
		}
	}
	return Product{}, shared.ErrNotFound
}

func (m *memoryRepo) CategoryExists(_ context.Context, companyID, categoryID int64) (bool, error) {
	return m.categories[categoryID] == companyID, nil
}

func (m *memoryRepo) Create(_ context.Context, p Product) (Product, error) {
	m.nextID++
	p.ID = m.nextID
	p.Status = inventory.StatusSufficient
	m.products[p.ID] = p
	m.stock.AddProduct(p.CompanyID, p.ID, p.Available)
	return p, nil
}

func (m *memoryRepo) Update(_ context.Context, p Product) error {
	if _, ok := m.products[p.ID]; !ok {
		return shared.ErrNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, _, id int64) error {
	delete(m.products, id)
	return nil
}

func (m *memoryRepo) Inventory() inventory.TxStore { return m.stock }

func (m *memoryRepo) withCounters(p Product) Product {
	c := m.stock.Product(p.ID)
	p.Available, p.Required, p.Shipped, p.Status = c.Available, c.Required, c.Shipped, c.Status
	return p
}

type syncRecorder struct {
	calls [][2]int64
	err   error
}

func (s *syncRecorder) ScheduleProductSync(_ context.Context, productID, userID int64) error {
	s.calls = append(s.calls, [2]int64{productID, userID})
	return s.err
}

var maker = core.Principal{UserID: 9, Groups: []string{core.GroupManufacturer}}

func TestCreateAppliesDefaultsAndSchedulesSync(t *testing.T) {
	repo := newMemoryRepo()
	sync := &syncRecorder{err: errors.New("queue down")}
	svc := NewService(repo, nil, Options{Sync: sync})

	p, err := svc.Create(context.Background(), maker, Product{CompanyID: 1, Name: " Turmeric ", Price: decimal.RequireFromString("12.345")})
	require.NoError(t, err, "sync failures must not fail the create")
	require.Equal(t, "Turmeric", p.Name)
	require.Equal(t, shared.DefaultUnit, p.Unit)
	require.Equal(t, shared.DefaultHSN, p.HSNCode)
	require.Equal(t, "12.35", p.Price.StringFixed(2))
	require.Equal(t, [][2]int64{{p.ID, maker.UserID}}, sync.calls)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.categories[5] = 2
	svc := NewService(repo, nil, Options{})
	ctx := context.Background()

	cases := map[string]Product{
		"unit":     {CompanyID: 1, Name: "x", Unit: "XYZ"},
		"rate":     {CompanyID: 1, Name: "x", CGSTRate: decimal.NewFromInt(101)},
		"negative": {CompanyID: 1, Name: "x", Price: decimal.NewFromInt(-1)},
		"category": {CompanyID: 1, Name: "x", CategoryID: ptr(int64(5))},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, maker, p)
			require.ErrorIs(t, err, shared.ErrValidation)
		})
	}
}

func TestUpdateAvailableGoesThroughLedger(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, Options{})
	ctx := context.Background()

	p, err := svc.Create(ctx, maker, Product{CompanyID: 1, Name: "Rice", Available: 10})
	require.NoError(t, err)
	repo.stock.PutOrder(1, "pending", map[int64]int64{p.ID: 6})

	edit := Product{CompanyID: 1, Name: "Rice", Unit: "KGS"}
	updated, err := svc.Update(ctx, maker, p.ID, edit, ptr(int64(4)))
	require.NoError(t, err)
	require.Equal(t, int64(4), updated.Available)
	require.Equal(t, int64(6), updated.Required)
	require.Equal(t, inventory.StatusOnDemand, updated.Status)

	updated, err = svc.Update(ctx, maker, p.ID, edit, nil)
	require.NoError(t, err)
	require.Equal(t, int64(4), updated.Available, "nil quantity leaves stock untouched")

	_, err = svc.Update(ctx, maker, p.ID, edit, ptr(int64(-1)))
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCatalogShowsInStockProductsOfApprovedCompanies(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, Options{})
	ctx := context.Background()
	retailer := core.Principal{UserID: 40, Groups: []string{core.GroupRetailer}}

	rice, err := svc.Create(ctx, maker, Product{CompanyID: 1, Name: "Rice", Available: 10})
	require.NoError(t, err)
	_, err = svc.Create(ctx, maker, Product{CompanyID: 1, Name: "Dal", Available: 0})
	require.NoError(t, err)
	_, err = svc.Create(ctx, maker, Product{CompanyID: 2, Name: "Salt", Available: 5})
	require.NoError(t, err)

	items, total, err := svc.Catalog(ctx, retailer, shared.ListFilters{})
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, items)

	repo.approved[[2]int64{1, retailer.UserID}] = true
	items, total, err = svc.Catalog(ctx, retailer, shared.ListFilters{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, rice.ID, items[0].ProductID)

	_, _, err = svc.Catalog(ctx, core.Principal{}, shared.ListFilters{})
	require.ErrorIs(t, err, core.ErrNoPrincipal)
}

func TestLowStockListsOnDemandProducts(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, Options{})
	ctx := context.Background()

	short, err := svc.Create(ctx, maker, Product{CompanyID: 1, Name: "Rice", Available: 2})
	require.NoError(t, err)
	_, err = svc.Create(ctx, maker, Product{CompanyID: 1, Name: "Dal", Available: 50})
	require.NoError(t, err)
	repo.stock.PutOrder(1, "pending", map[int64]int64{short.ID: 6})
	_, err = inventory.NewLedger(nil).Reconcile(ctx, repo.stock, short.ID)
	require.NoError(t, err)

	list, total, err := svc.LowStock(ctx, shared.ListFilters{CompanyID: 1})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, short.ID, list[0].ID)
	require.Equal(t, inventory.StatusOnDemand, list[0].Status)
}

func TestUnitsSorted(t *testing.T) {
	units := NewService(newMemoryRepo(), nil, Options{}).Units()
	require.Len(t, units, len(shared.Units))
	require.Equal(t, "BAG", units[0].Code)
}

func ptr[T any](v T) *T { return &v }
