package invoicing

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
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
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
	products  map[int64]ProductTax
	retailers map[int64]int64
	states    map[int64]string
	invoices  map[int64]*Invoice
	nextID    int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		book:      &orderBook{stock: inventorytest.New(), orders: map[int64]*orders.Order{}},
		products:  map[int64]ProductTax{},
		retailers: map[int64]int64{},
		states:    map[int64]string{},
		invoices:  map[int64]*Invoice{},
	}
}

func (m *memoryStore) addProduct(companyID, id, available int64, price string) {
	m.book.stock.AddProduct(companyID, id, available)
	m.products[id] = ProductTax{
		ID:        id,
		CompanyID: companyID,
		Name:      "p",
		Price:     decimal.RequireFromString(price),
		HSNCode:   "0000",
		CGSTRate:  decimal.NewFromInt(9),
		SGSTRate:  decimal.NewFromInt(9),
		IGSTRate:  decimal.NewFromInt(18),
		CessRate:  decimal.Zero,
	}
}

func (m *memoryStore) Get(_ context.Context, companyID, id int64) (Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok || inv.CompanyID != companyID {
		return Invoice{}, shared.ErrNotFound
	}
	return *inv, nil
}

func (m *memoryStore) List(_ context.Context, f Filter) ([]Invoice, int, error) {
	var out []Invoice
	for id := int64(1); id <= m.nextID; id++ {
		inv, ok := m.invoices[id]
		if ok && inv.CompanyID == f.CompanyID && (f.PaymentStatus == "" || inv.PaymentStatus == f.PaymentStatus) {
			out = append(out, *inv)
		}
	}
	total := len(out)
	start := min(len(out), (f.Page-1)*f.PerPage)
	end := min(len(out), start+f.PerPage)
	return out[start:end], total, nil
}

func (m *memoryStore) Count(_ context.Context, companyID int64) (int, error) {
	n := 0
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID {
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) Outstanding(_ context.Context, companyID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range m.invoices {
		if inv.CompanyID == companyID && inv.PaymentStatus != StatusPaid {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return fn(ctx, m)
}

func (m *memoryStore) ForUpdate(ctx context.Context, companyID, id int64) (Invoice, error) {
	return m.Get(ctx, companyID, id)
}

func (m *memoryStore) Parties(_ context.Context, companyID, retailerID int64) (Parties, error) {
	if m.retailers[retailerID] != companyID {
		return Parties{}, shared.ErrNotFound
	}
	return Parties{CompanyState: "Karnataka", RetailerState: m.states[retailerID]}, nil
}

func (m *memoryStore) Products(_ context.Context, ids []int64) (map[int64]ProductTax, error) {
	out := map[int64]ProductTax{}
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *memoryStore) Create(_ context.Context, inv Invoice) (Invoice, error) {
	for _, existing := range m.invoices {
		if existing.CompanyID == inv.CompanyID && existing.Number == inv.Number {
			return Invoice{}, httpx.ErrDuplicate
		}
	}
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = &inv
	return inv, nil
}

func (m *memoryStore) Update(_ context.Context, inv Invoice) error {
	m.invoices[inv.ID] = &inv
	return nil
}

func (m *memoryStore) Delete(_ context.Context, id int64) error {
	if _, ok := m.invoices[id]; !ok {
		return shared.ErrNotFound
	}
	delete(m.invoices, id)
	return nil
}

func (m *memoryStore) Orders() orders.TxRepository { return m.book }

type recordingPublisher struct{ events []events.Event }

func (r *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	r.events = append(r.events, e)
	return nil
}

var manager = shared.Principal{UserID: 1, Groups: []string{shared.GroupManufacturer}}

func newFixture() (*memoryStore, *recordingPublisher, *Service) {
	store := newMemoryStore()
	store.addProduct(10, 1, 20, "100")
	store.addProduct(10, 2, 5, "40")
	store.addProduct(20, 3, 5, "1")
	store.retailers[50] = 10
	store.states[50] = "Karnataka"
	store.retailers[51] = 10
	store.states[51] = "Kerala"
	pub := &recordingPublisher{}
	svc := NewService(store, nil, Options{Publisher: pub})
	svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return store, pub, svc
}

func TestCreateStandaloneComputesTaxAndPostsStock(t *testing.T) {
	store, pub, svc := newFixture()

	inv, err := svc.Create(context.Background(), manager, 10, CreateRequest{
		Number:     "INV-1",
		RetailerID: 50,
		Items:      []ItemInput{{ProductID: 1, Quantity: 2}, {ProductID: 2, Quantity: 3}},
	})
	require.NoError(t, err)
	require.True(t, inv.Standalone())
	require.Equal(t, PaymentCash, inv.PaymentMode)
	require.Equal(t, StatusUnpaid, inv.PaymentStatus)
	require.Equal(t, svc.now(), inv.InvoiceDate)

	require.True(t, dec("320").Equal(inv.Totals.Taxable))
	require.True(t, dec("28.8").Equal(inv.Totals.CGST))
	require.True(t, dec("28.8").Equal(inv.Totals.SGST))
	require.True(t, inv.Totals.IGST.IsZero())
	require.True(t, dec("377.6").Equal(inv.Totals.Grand))

	require.Equal(t, int64(18), store.book.stock.Product(1).Available)
	require.Equal(t, int64(2), store.book.stock.Product(2).Available)
	require.Equal(t, map[int64]int64{1: 2, 2: 3}, store.book.stock.Movements(inventory.InvoiceSource(inv.ID)))

	require.Len(t, pub.events, 1)
	require.Equal(t, events.InvoiceCreated, pub.events[0].Type)
}

func TestCreateInterStateUsesIGST(t *testing.T) {
	_, _, svc := newFixture()
	price := dec("10.555")
	inv, err := svc.Create(context.Background(), manager, 10, CreateRequest{
		Number:     "INV-2",
		RetailerID: 51,
		Items:      []ItemInput{{ProductID: 1, Quantity: 1, Price: &price}},
	})
	require.NoError(t, err)
	require.True(t, inv.Totals.CGST.IsZero())
	require.True(t, dec("10.56").Equal(inv.Items[0].Price))
	require.True(t, dec("10.56").Equal(inv.Totals.Taxable))
	require.True(t, dec("1.9").Equal(inv.Totals.IGST))
	require.True(t, dec("18").Equal(inv.Items[0].GSTRate))
}

func TestCreateValidation(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()
	negative := dec("-1")
	missingOrder := int64(999)
	cases := map[string]struct {
		req  CreateRequest
		want error
	}{
		"no items":          {req: CreateRequest{Number: "A", RetailerID: 50}, want: httpx.ErrValidation},
		"duplicate product": {req: CreateRequest{Number: "A", RetailerID: 50, Items: []ItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 1, Quantity: 2}}}, want: ErrDuplicateProduct},
		"negative price":    {req: CreateRequest{Number: "A", RetailerID: 50, Items: []ItemInput{{ProductID: 1, Quantity: 1, Price: &negative}}}, want: ErrNegativePrice},
		"no retailer":       {req: CreateRequest{Number: "A", Items: []ItemInput{{ProductID: 1, Quantity: 1}}}, want: ErrRetailerRequired},
		"foreign retailer":  {req: CreateRequest{Number: "A", RetailerID: 77, Items: []ItemInput{{ProductID: 1, Quantity: 1}}}, want: ErrUnknownRetailer},
		"foreign product":   {req: CreateRequest{Number: "A", RetailerID: 50, Items: []ItemInput{{ProductID: 3, Quantity: 1}}}, want: ErrUnknownProduct},
		"missing order":     {req: CreateRequest{Number: "A", OrderID: &missingOrder, Items: []ItemInput{{ProductID: 1, Quantity: 1}}}, want: httpx.ErrNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, manager, 10, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()
	req := CreateRequest{Number: "INV-9", RetailerID: 50, Items: []ItemInput{{ProductID: 1, Quantity: 1}}}
	_, err := svc.Create(ctx, manager, 10, req)
	require.NoError(t, err)
	_, err = svc.Create(ctx, manager, 10, req)
	require.ErrorIs(t, err, ErrDuplicateNumber)
	require.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestOrderInvoiceSharesOrderSource(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	store.book.orders[100] = &orders.Order{
		ID: 100, CompanyID: 10, RetailerID: 50, Status: orders.StatusDelivered,
		Items: []orders.Item{{ProductID: 1, Quantity: 4}},
	}
	store.book.stock.PutOrder(100, "delivered", map[int64]int64{1: 4})

	// the delivery already posted the order's stock-out
	_, err := inventory.NewLedger(nil).SyncStockOut(ctx, store.book.stock, 10, inventory.OrderSource(100),
		[]inventory.Line{{ProductID: 1, Quantity: 4}})
	require.NoError(t, err)
	require.Equal(t, int64(16), store.book.stock.Product(1).Available)

	orderID := int64(100)
	inv, err := svc.Create(ctx, manager, 10, CreateRequest{
		Number:  "INV-3",
		OrderID: &orderID,
		Items:   []ItemInput{{ProductID: 1, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(50), inv.RetailerID)
	require.Equal(t, int64(16), store.book.stock.Product(1).Available, "delivery and invoice post once")

	_, err = svc.Update(ctx, manager, 10, inv.ID, UpdateRequest{Items: []ItemInput{{ProductID: 1, Quantity: 1}}})
	require.ErrorIs(t, err, ErrLinkedInvoice)

	require.NoError(t, svc.Delete(ctx, manager, 10, inv.ID))
	require.Equal(t, int64(16), store.book.stock.Product(1).Available, "order stock-out stays after invoice delete")
}

func TestOrderInvoiceRules(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	store.book.orders[101] = &orders.Order{ID: 101, CompanyID: 10, RetailerID: 50, Status: orders.StatusCancelled}
	store.book.orders[102] = &orders.Order{
		ID: 102, CompanyID: 10, RetailerID: 50, Status: orders.StatusPending,
		Items: []orders.Item{{ProductID: 2, Quantity: 2}},
	}
	items := []ItemInput{{ProductID: 2, Quantity: 2}}

	cancelled := int64(101)
	_, err := svc.Create(ctx, manager, 10, CreateRequest{Number: "X1", OrderID: &cancelled, Items: items})
	require.ErrorIs(t, err, ErrOrderCancelled)

	pending := int64(102)
	_, err = svc.Create(ctx, manager, 10, CreateRequest{Number: "X2", OrderID: &pending, RetailerID: 51, Items: items})
	require.ErrorIs(t, err, ErrRetailerMismatch)

	_, err = svc.Create(ctx, manager, 10, CreateRequest{Number: "X3", OrderID: &pending, Items: items})
	require.NoError(t, err)
	require.Equal(t, int64(3), store.book.stock.Product(2).Available)
	require.Equal(t, map[int64]int64{2: 2}, store.book.stock.Movements(inventory.OrderSource(102)))
}

func TestOpenOrderInvoiceMovesDemandToShipped(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	store.book.orders[7] = &orders.Order{
		ID: 7, CompanyID: 10, RetailerID: 50, Status: orders.StatusPending,
		Items: []orders.Item{{ProductID: 1, Quantity: 15}},
	}
	store.book.stock.PutOrder(7, "pending", map[int64]int64{1: 15})
	_, err := inventory.NewLedger(nil).Reconcile(ctx, store.book.stock, 1)
	require.NoError(t, err)
	require.Equal(t, int64(15), store.book.stock.Product(1).Required)

	orderID := int64(7)
	_, err = svc.Create(ctx, manager, 10, CreateRequest{Number: "INV-7", OrderID: &orderID, Items: []ItemInput{{ProductID: 1, Quantity: 15}}})
	require.NoError(t, err)

	p := store.book.stock.Product(1)
	require.Equal(t, int64(5), p.Available)
	require.Equal(t, int64(15), p.Shipped)
	require.Zero(t, p.Required)
	require.Equal(t, inventory.StatusSufficient, p.Status)
}

func TestUpdateAppliesDelta(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	inv, err := svc.Create(ctx, manager, 10, CreateRequest{
		Number:     "INV-4",
		RetailerID: 50,
		Items:      []ItemInput{{ProductID: 1, Quantity: 5}, {ProductID: 2, Quantity: 1}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(15), store.book.stock.Product(1).Available)
	require.Equal(t, int64(4), store.book.stock.Product(2).Available)

	updated, err := svc.Update(ctx, manager, 10, inv.ID, UpdateRequest{
		PaymentStatus: StatusPaid,
		Items:         []ItemInput{{ProductID: 1, Quantity: 7}},
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, updated.PaymentStatus)
	require.True(t, dec("826").Equal(updated.Totals.Grand))
	require.Equal(t, int64(13), store.book.stock.Product(1).Available)
	require.Equal(t, int64(5), store.book.stock.Product(2).Available)

	_, err = svc.Update(ctx, manager, 10, inv.ID, UpdateRequest{Items: []ItemInput{{ProductID: 1, Quantity: 7}}})
	require.NoError(t, err)
	require.Equal(t, int64(13), store.book.stock.Product(1).Available)
}

func TestDeleteStandaloneReleasesStock(t *testing.T) {
	store, _, svc := newFixture()
	ctx := context.Background()
	inv, err := svc.Create(ctx, manager, 10, CreateRequest{
		Number:     "INV-5",
		RetailerID: 50,
		Items:      []ItemInput{{ProductID: 1, Quantity: 6}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(14), store.book.stock.Product(1).Available)

	require.NoError(t, svc.Delete(ctx, manager, 10, inv.ID))
	require.Equal(t, int64(20), store.book.stock.Product(1).Available)
	require.Equal(t, int64(0), store.book.stock.Product(1).Shipped)
	require.Empty(t, store.book.stock.Movements(inventory.InvoiceSource(inv.ID)))

	err = svc.Delete(ctx, manager, 10, inv.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListCountAndAging(t *testing.T) {
	_, _, svc := newFixture()
	ctx := context.Background()
	due := svc.now().AddDate(0, 0, -40)
	for i, status := range []PaymentStatus{StatusPaid, StatusUnpaid, StatusPartial} {
		_, err := svc.Create(ctx, manager, 10, CreateRequest{
			Number:        "L" + string(rune('A'+i)),
			RetailerID:    50,
			DueDate:       &due,
			PaymentStatus: status,
			Items:         []ItemInput{{ProductID: 2, Quantity: 1}},
		})
		require.NoError(t, err)
	}

	page, err := svc.List(ctx, Filter{CompanyID: 10, Page: 1, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, 3, page.Pagination.Total)

	unpaid, err := svc.List(ctx, Filter{CompanyID: 10, PaymentStatus: StatusUnpaid})
	require.NoError(t, err)
	require.Len(t, unpaid.Items, 1)

	_, err = svc.List(ctx, Filter{CompanyID: 10, PaymentStatus: "overdue"})
	require.ErrorIs(t, err, httpx.ErrValidation)

	n, err := svc.Count(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 3, n)

	bucket, err := svc.Aging(ctx, 10, time.Time{})
	require.NoError(t, err)
	require.True(t, dec("94.4").Equal(bucket.Bucket60))
	require.True(t, bucket.Current.IsZero())
}
