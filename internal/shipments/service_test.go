package shipments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/events"
	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/inventory/inventorytest"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/shared"
)

type orderBook struct {
	stock  *inventorytest.MemStore
	orders map[int64]*orders.Order
}

func (b *orderBook) GetForUpdate(_ context.Context, companyID, id int64) (orders.Order, error) {
	o, ok := b.orders[id]
	if !ok || o.CompanyID != companyID {
		return orders.Order{}, shared.ErrNotFound
	}
	return *o, nil
}

func (b *orderBook) Products(context.Context, []int64) (map[int64]orders.ProductRef, error) {
	return nil, errors.New("not used")
}

func (b *orderBook) RetailerBelongs(context.Context, int64, int64) (bool, error) { return true, nil }

func (b *orderBook) ConnectionFor(context.Context, int64, int64) (orders.ConnectionRef, error) {
	return orders.ConnectionRef{}, shared.ErrNotFound
}

func (b *orderBook) BumpConnection(context.Context, int64, decimal.Decimal) error { return nil }

func (b *orderBook) Create(context.Context, orders.Order) (orders.Order, error) {
	return orders.Order{}, errors.New("not used")
}

func (b *orderBook) ReplaceItems(context.Context, int64, []orders.Item) error {
	return errors.New("not used")
}

func (b *orderBook) SetStatus(_ context.Context, orderID int64, status orders.Status) error {
	b.orders[orderID].Status = status
	b.stock.SetOrderStatus(orderID, string(status))
	return nil
}

func (b *orderBook) IsInvoiced(context.Context, int64) (bool, error) { return false, nil }

func (b *orderBook) Inventory() inventory.TxStore { return b.stock }

type memoryStore struct {
	book      *orderBook
	shipments map[int64]*Shipment
	employees map[int64]EmployeeRef
	users     map[int64]int64
	trucks    map[int64]bool
}

func newMemoryStore() *memoryStore {
	stock := inventorytest.New()
	return &memoryStore{
		book:      &orderBook{stock: stock, orders: map[int64]*orders.Order{}},
		shipments: map[int64]*Shipment{},
		employees: map[int64]EmployeeRef{},
		users:     map[int64]int64{},
		trucks:    map[int64]bool{},
	}
}

func (m *memoryStore) addOrder(id, companyID, retailerID int64, items map[int64]int64) {
	o := &orders.Order{ID: id, CompanyID: companyID, RetailerID: retailerID, Status: orders.StatusPending}
	for pid, qty := range items {
		o.Items = append(o.Items, orders.Item{ProductID: pid, Quantity: qty})
	}
	m.book.orders[id] = o
	m.book.stock.PutOrder(id, string(o.Status), items)
}

func (m *memoryStore) addEmployee(id, userID, companyID, truckID int64) {
	ref := EmployeeRef{ID: id, CompanyID: companyID}
	if truckID > 0 {
		ref.TruckID = &truckID
		m.trucks[truckID] = true
	}
	m.employees[id] = ref
	m.users[userID] = id
}

func (m *memoryStore) Get(_ context.Context, id int64) (Shipment, error) {
	s, ok := m.shipments[id]
	if !ok {
		return Shipment{}, shared.ErrNotFound
	}
	return *s, nil
}

func (m *memoryStore) List(_ context.Context, companyID int64) ([]Shipment, error) {
	var out []Shipment
	for id := int64(1); id <= int64(len(m.shipments)); id++ {
		if s := m.shipments[id]; s.CompanyID == companyID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryStore) ByEmployee(_ context.Context, employeeID int64) ([]Shipment, error) {
	var out []Shipment
	for id := int64(1); id <= int64(len(m.shipments)); id++ {
		if s := m.shipments[id]; s.EmployeeID != nil && *s.EmployeeID == employeeID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *memoryStore) EmployeeIDForUser(_ context.Context, userID int64) (int64, error) {
	id, ok := m.users[userID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

func (m *memoryStore) MonthlyStats(context.Context, int64) ([]MonthlyStat, error) {
	return []MonthlyStat{{Month: "January", Product: "Rice", Count: 4}}, nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, m)
}

func (m *memoryStore) ForUpdate(ctx context.Context, id int64) (Shipment, error) {
	return m.Get(ctx, id)
}

func (m *memoryStore) ByOrderForUpdate(_ context.Context, orderID int64) (Shipment, error) {
	for _, s := range m.shipments {
		if s.OrderID == orderID {
			return *s, nil
		}
	}
	return Shipment{}, shared.ErrNotFound
}

func (m *memoryStore) Create(_ context.Context, orderID int64) (Shipment, error) {
	o := m.book.orders[orderID]
	s := &Shipment{
		ID:           int64(len(m.shipments) + 1),
		OrderID:      orderID,
		CompanyID:    o.CompanyID,
		ShipmentDate: time.Now(),
		Status:       StatusInTransit,
	}
	m.shipments[s.ID] = s
	return *s, nil
}

func (m *memoryStore) SetEmployee(_ context.Context, id, employeeID int64) error {
	m.shipments[id].EmployeeID = &employeeID
	return nil
}

func (m *memoryStore) SetStatus(_ context.Context, id int64, status Status) error {
	m.shipments[id].Status = status
	return nil
}

func (m *memoryStore) Employee(_ context.Context, id int64) (EmployeeRef, error) {
	e, ok := m.employees[id]
	if !ok {
		return EmployeeRef{}, shared.ErrNotFound
	}
	return e, nil
}

func (m *memoryStore) OtherInTransit(_ context.Context, employeeID, exceptID int64) (bool, error) {
	for _, s := range m.shipments {
		if s.ID != exceptID && s.EmployeeID != nil && *s.EmployeeID == employeeID && s.Status == StatusInTransit {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) SetTruckAvailable(_ context.Context, truckID int64, available bool) error {
	m.trucks[truckID] = available
	return nil
}

func (m *memoryStore) Orders() orders.TxRepository { return m.book }

type recordingPublisher struct{ events []events.Event }

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

type staticLister struct{ filter orders.Filter }

func (s *staticLister) List(_ context.Context, f orders.Filter) (shared.Page[orders.Order], error) {
	s.filter = f
	return shared.Page[orders.Order]{Items: []orders.Order{{ID: 1}}}, nil
}

var manager = shared.Principal{UserID: 1, Groups: []string{shared.GroupManufacturer}}

func newFixture() (*memoryStore, *recordingPublisher, *Service) {
	store := newMemoryStore()
	store.book.stock.AddProduct(10, 1, 10)
	store.book.stock.AddProduct(10, 2, 3)
	store.addOrder(100, 10, 50, map[int64]int64{1: 4, 2: 5})
	store.addOrder(101, 10, 50, map[int64]int64{1: 2})
	store.addEmployee(7, 70, 10, 900)
	store.addEmployee(8, 80, 10, 0)
	pub := &recordingPublisher{}
	return store, pub, NewService(store, nil, Options{Publisher: pub})
}

func TestApproveCreatesShipmentOnce(t *testing.T) {
	store, pub, svc := newFixture()
	ctx := context.Background()

	sh, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	require.Equal(t, StatusInTransit, sh.Status)
	require.False(t, sh.Allocated())
	require.Len(t, pub.events, 1)
	require.Equal(t, events.OrderApproved, pub.events[0].Type)

	_, err = svc.Approve(ctx, manager, 10, 100)
	require.ErrorIs(t, err, ErrShipmentExists)

	_, err = svc.Approve(ctx, manager, 20, 100)
	require.ErrorIs(t, err, shared.ErrNotFound)

	store.book.orders[101].Status = orders.StatusCancelled
	_, err = svc.Approve(ctx, manager, 10, 101)
	require.ErrorIs(t, err, orders.ErrNotPending)
}

func TestAllocateRules(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()

	_, err := svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.ErrorIs(t, err, ErrNotApproved)

	_, err = svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)

	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 8})
	require.ErrorIs(t, err, ErrNoTruck)

	store.employees[9] = EmployeeRef{ID: 9, CompanyID: 99}
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 9})
	require.ErrorIs(t, err, ErrEmployeeNotEligible)

	sh, err := svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)
	require.Equal(t, int64(7), *sh.EmployeeID)
	require.Equal(t, orders.StatusAllocated, store.book.orders[100].Status)
	require.False(t, store.trucks[900])

	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.ErrorIs(t, err, ErrAlreadyAllocated)
}

func TestAllocateAcceptsRetailerEmployee(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	retailerID, truckID := int64(50), int64(901)
	store.employees[11] = EmployeeRef{ID: 11, CompanyID: 99, RetailerID: &retailerID, TruckID: &truckID}

	_, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 11})
	require.NoError(t, err)
}

func TestDeliveryPostsStockOutAndFreesTruck(t *testing.T) {
	store, pub, svc := newFixture()
	ctx := context.Background()

	sh, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusDelivered, CompanyID: 10})
	require.NoError(t, err)
	require.Equal(t, StatusDelivered, updated.Status)
	require.Equal(t, orders.StatusDelivered, store.book.orders[100].Status)

	p1 := store.book.stock.Product(1)
	require.Equal(t, int64(6), p1.Available)
	require.Equal(t, int64(2), p1.Required)
	require.Equal(t, int64(4), p1.Shipped)

	p2 := store.book.stock.Product(2)
	require.Equal(t, int64(0), p2.Available, "stock-out clamps at zero")
	require.Equal(t, int64(5), p2.Shipped)

	require.Equal(t, map[int64]int64{1: 4, 2: 5}, store.book.stock.Movements(inventory.OrderSource(100)))
	require.True(t, store.trucks[900])
	require.Equal(t, events.ShipmentStatusChanged, pub.events[len(pub.events)-1].Type)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusDelivered, CompanyID: 10})
	require.ErrorIs(t, err, ErrInvalidTransition)
	require.Equal(t, int64(6), store.book.stock.Product(1).Available)
}

func TestTruckStaysBusyWhileOtherShipmentInTransit(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()

	first, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, manager, 10, 101)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 101, EmployeeID: 7})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: first.ID, Status: StatusFailed, CompanyID: 10})
	require.NoError(t, err)
	require.False(t, store.trucks[900])
	require.Equal(t, orders.StatusAllocated, store.book.orders[100].Status)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: first.ID, Status: StatusInTransit, CompanyID: 10})
	require.NoError(t, err)
	require.False(t, store.trucks[900])
}

func TestFailedShipmentFreesTruckAndCanRetry(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()

	sh, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusFailed, CompanyID: 10})
	require.NoError(t, err)
	require.True(t, store.trucks[900])
	require.Equal(t, int64(10), store.book.stock.Product(1).Available)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusInTransit, CompanyID: 10})
	require.NoError(t, err)
	require.False(t, store.trucks[900])
}

func TestUpdateStatusScope(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()

	sh, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusDelivered, CompanyID: 10})
	require.ErrorIs(t, err, ErrNotAllocated)

	_, err = svc.UpdateStatus(ctx, manager, StatusUpdate{ShipmentID: sh.ID, Status: StatusFailed, CompanyID: 20})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)

	driver := shared.Principal{UserID: 80, Groups: []string{shared.GroupEmployee}}
	_, err = svc.UpdateStatus(ctx, driver, StatusUpdate{ShipmentID: sh.ID, Status: StatusDelivered, EmployeeID: 8})
	require.ErrorIs(t, err, ErrNotAssignee)

	assignee := shared.Principal{UserID: 70, Groups: []string{shared.GroupEmployee}}
	_, err = svc.UpdateStatus(ctx, assignee, StatusUpdate{ShipmentID: sh.ID, Status: StatusDelivered, EmployeeID: 7})
	require.NoError(t, err)
}

func TestEmployeeViews(t *testing.T) {
	_, _, svc := newFixture()
	lister := &staticLister{}
	svc.orders = lister
	ctx := context.Background()

	sh, err := svc.Approve(ctx, manager, 10, 100)
	require.NoError(t, err)
	_, err = svc.Allocate(ctx, manager, 10, AllocateRequest{OrderID: 100, EmployeeID: 7})
	require.NoError(t, err)

	mine, err := svc.EmployeeShipments(ctx, 70)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, sh.ID, mine[0].ID)

	page, err := svc.EmployeeOrders(ctx, 70, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.Equal(t, int64(7), lister.filter.EmployeeID)

	_, err = svc.EmployeeShipments(ctx, 999)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCanTransition(t *testing.T) {
	require.True(t, CanTransition(StatusInTransit, StatusDelivered))
	require.True(t, CanTransition(StatusInTransit, StatusFailed))
	require.True(t, CanTransition(StatusFailed, StatusInTransit))
	require.False(t, CanTransition(StatusDelivered, StatusInTransit))
	require.False(t, CanTransition(StatusDelivered, StatusFailed))
	require.False(t, CanTransition(StatusFailed, StatusDelivered))
}
