package dashboard

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/masterdata/categories"
	"github.com/vendorflow/vendorflow/internal/orders"
	"github.com/vendorflow/vendorflow/internal/platform/cache"
	"github.com/vendorflow/vendorflow/internal/shared"
	"github.com/vendorflow/vendorflow/internal/shipments"
)

type fakeSources struct {
	calls   atomic.Int32
	failing bool
}

func (f *fakeSources) Counts(_ context.Context, companyID int64) (orders.Counts, error) {
	f.calls.Add(1)
	if f.failing {
		return orders.Counts{}, errors.New("db down")
	}
	return orders.Counts{OrdersPlaced: int(companyID), PendingOrders: 2, EmployeesAvailable: 3, RetailersAvailable: 4}, nil
}

func (f *fakeSources) StockByCategory(context.Context, int64) ([]categories.Stock, error) {
	f.calls.Add(1)
	return []categories.Stock{{ID: 1, Name: "Grains", Value: 5}, {ID: 2, Name: "Oils, Fats", Value: 2}}, nil
}

func (f *fakeSources) Stats(context.Context, int64) ([]shipments.MonthlyStat, error) {
	f.calls.Add(1)
	return []shipments.MonthlyStat{{Month: "January", Product: "Rice", Count: 12}}, nil
}

func (f *fakeSources) Count(context.Context, int64) (int, error) {
	f.calls.Add(1)
	return 9, nil
}

func (f *fakeSources) Recent(_ context.Context, companyID int64, limit int) ([]shared.AuditLog, error) {
	return []shared.AuditLog{{CompanyID: companyID, Action: "create", EntityID: "1", Meta: map[string]any{"limit": limit}}}, nil
}

func newService(t *testing.T, src *fakeSources) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	c := cache.NewJSONCache(client, "dashboard", TTL)
	return NewService(Sources{Counts: src, Categories: src, Shipments: src, Invoices: src, Activity: src}, c, nil), mr
}

func TestCountsAreCached(t *testing.T) {
	src := &fakeSources{}
	svc, mr := newService(t, src)
	ctx := context.Background()

	first, err := svc.Counts(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 10, first.OrdersPlaced)

	second, err := svc.Counts(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, int32(1), src.calls.Load())
	require.True(t, mr.Exists("dashboard:10:counts"))

	mr.FastForward(TTL + time.Second)
	_, err = svc.Counts(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.calls.Load())
}

func TestOverviewLoadsEveryWidget(t *testing.T) {
	src := &fakeSources{}
	svc, _ := newService(t, src)

	o, err := svc.Overview(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 4, o.Counts.RetailersAvailable)
	require.Len(t, o.CategoryStock, 2)
	require.Equal(t, "January", o.ShipmentStats[0].Month)
	require.Equal(t, 9, o.InvoiceCount)
	require.Equal(t, int32(4), src.calls.Load())
}

func TestOverviewPropagatesErrors(t *testing.T) {
	svc, _ := newService(t, &fakeSources{failing: true})
	_, err := svc.Overview(context.Background(), 10)
	require.Error(t, err)
}

func TestInvalidateDropsCompanyKeysOnly(t *testing.T) {
	src := &fakeSources{}
	svc, mr := newService(t, src)
	ctx := context.Background()

	_, err := svc.InvoiceCount(ctx, 1)
	require.NoError(t, err)
	_, err = svc.InvoiceCount(ctx, 10)
	require.NoError(t, err)

	svc.Invalidate(ctx, 1)
	require.False(t, mr.Exists("dashboard:1:invoice_count"))
	require.True(t, mr.Exists("dashboard:10:invoice_count"))
}

func TestWithoutCacheLoadsDirectly(t *testing.T) {
	src := &fakeSources{}
	svc := NewService(Sources{Counts: src, Categories: src, Shipments: src, Invoices: src}, nil, nil)
	ctx := context.Background()

	_, err := svc.InvoiceCount(ctx, 10)
	require.NoError(t, err)
	_, err = svc.InvoiceCount(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, int32(2), src.calls.Load())

	recent, err := svc.RecentActions(ctx, 10, 5)
	require.NoError(t, err)
	require.Empty(t, recent)
}

func TestCSVExports(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCategoryStockCSV(&buf, []categories.Stock{{Name: "Grains", Value: 5}, {Name: "Oils, Fats", Value: 2}}))
	require.Equal(t, "Category,Products\nGrains,5\n\"Oils, Fats\",2\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteShipmentStatsCSV(&buf, []shipments.MonthlyStat{{Month: "March", Product: "Dal", Count: 7}}))
	require.Equal(t, "Month,Product,Quantity\nMarch,Dal,7\n", buf.String())
}
