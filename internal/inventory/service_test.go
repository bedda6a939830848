package inventory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/inventory"
	"github.com/vendorflow/vendorflow/internal/inventory/inventorytest"
)

type memoryRepo struct {
	store *inventorytest.MemStore
}

func (m memoryRepo) WithTx(ctx context.Context, fn func(context.Context, inventory.TxStore) error) error {
	return fn(ctx, m.store)
}

func (m memoryRepo) Movements(context.Context, inventory.MovementFilter) ([]inventory.Movement, error) {
	return nil, nil
}

type countingLocker struct {
	keys []string
}

func (l *countingLocker) Acquire(_ context.Context, key string) func() {
	l.keys = append(l.keys, key)
	return func() {}
}

func TestServiceReceiveLocksCompanyAndChecksOwnership(t *testing.T) {
	store := inventorytest.New()
	store.AddProduct(1, 10, 0)
	store.AddProduct(2, 20, 0)
	locker := &countingLocker{}
	svc := inventory.NewService(memoryRepo{store: store}, nil, locker, nil)

	c, err := svc.Receive(context.Background(), 1, 10, 4)
	require.NoError(t, err)
	require.Equal(t, int64(4), c.Available)
	require.Equal(t, []string{"inventory:company:1:lock"}, locker.keys)

	_, err = svc.Receive(context.Background(), 1, 20, 4)
	require.ErrorIs(t, err, inventory.ErrForeignProduct)
}

func TestServiceReconcileCompany(t *testing.T) {
	store := inventorytest.New()
	store.AddProduct(1, 10, 1)
	store.AddProduct(1, 11, 9)
	store.PutOrder(5, "pending", map[int64]int64{10: 2, 11: 2})
	svc := inventory.NewService(memoryRepo{store: store}, nil, nil, nil)

	out, err := svc.ReconcileCompany(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, inventory.StatusOnDemand, store.Product(10).Status)
	require.Equal(t, inventory.StatusSufficient, store.Product(11).Status)
}
