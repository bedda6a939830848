// Package inventorytest provides an in-memory inventory.TxStore for tests.
package inventorytest

import (
	"context"
	"slices"
	"sync"

	"github.com/vendorflow/vendorflow/internal/inventory"
)

type orderRow struct {
	status string
	items  map[int64]int64
}

// MemStore keeps products, open demand and movements in memory.
type MemStore struct {
	mu        sync.Mutex
	products  map[int64]inventory.Counters
	orders    map[int64]*orderRow
	movements map[inventory.Source]map[int64]inventory.Movement
}

var _ inventory.TxStore = (*MemStore)(nil)

// New returns an empty store.
func New() *MemStore {
	return &MemStore{
		products:  make(map[int64]inventory.Counters),
		orders:    make(map[int64]*orderRow),
		movements: make(map[inventory.Source]map[int64]inventory.Movement),
	}
}

// AddProduct seeds a product with available stock.
func (m *MemStore) AddProduct(companyID, productID, available int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID] = inventory.Counters{
		ProductID: productID,
		CompanyID: companyID,
		Available: available,
		Status:    inventory.StatusSufficient,
	}
}

// PutOrder creates or replaces an order and its items.
func (m *MemStore) PutOrder(orderID int64, status string, items map[int64]int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[int64]int64, len(items))
	for k, v := range items {
		copied[k] = v
	}
	m.orders[orderID] = &orderRow{status: status, items: copied}
}

// SetOrderStatus changes an order's status.
func (m *MemStore) SetOrderStatus(orderID int64, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[orderID]; ok {
		o.status = status
	}
}

// DeleteOrder removes an order.
func (m *MemStore) DeleteOrder(orderID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, orderID)
}

// Product returns the counters of one product.
func (m *MemStore) Product(productID int64) inventory.Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[productID]
}

// Movements returns the movements of a source keyed by product.
func (m *MemStore) Movements(src inventory.Source) map[int64]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int64)
	for id, mv := range m.movements[src] {
		out[id] = mv.Quantity
	}
	return out
}

func (m *MemStore) LockProducts(_ context.Context, ids []int64) ([]inventory.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	var out []inventory.Counters
	for _, id := range slices.Compact(sorted) {
		if c, ok := m.products[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemStore) CompanyProductIDs(_ context.Context, companyID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for id, c := range m.products {
		if c.CompanyID == companyID {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

func (m *MemStore) OpenDemand(_ context.Context, ids []int64) (map[int64]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]int64)
	for orderID, o := range m.orders {
		if o.status != "pending" && o.status != "allocated" {
			continue
		}
		posted := m.movements[inventory.OrderSource(orderID)]
		for pid, qty := range o.items {
			if slices.Contains(ids, pid) {
				out[pid] += max(0, qty-posted[pid].Quantity)
			}
		}
	}
	return out, nil
}

func (m *MemStore) SaveCounters(_ context.Context, c inventory.Counters) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[c.ProductID] = c
	return nil
}

func (m *MemStore) ListMovements(_ context.Context, src inventory.Source) ([]inventory.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []inventory.Movement
	for _, mv := range m.movements[src] {
		out = append(out, mv)
	}
	return out, nil
}

func (m *MemStore) PutMovement(_ context.Context, mv inventory.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.movements[mv.Source]
	if !ok {
		bucket = make(map[int64]inventory.Movement)
		m.movements[mv.Source] = bucket
	}
	bucket[mv.ProductID] = mv
	return nil
}

func (m *MemStore) DeleteMovement(_ context.Context, src inventory.Source, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.movements[src], productID)
	return nil
}
