package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendorflow/vendorflow/internal/inventory"
	jobmetrics "github.com/vendorflow/vendorflow/internal/jobs"
)

type staticCompanies []int64

func (s staticCompanies) CompanyIDs(context.Context) ([]int64, error) { return s, nil }

type fakeReconciler struct {
	calls    []int64
	failFor  map[int64]bool
	counters map[int64][]inventory.Counters
}

func (f *fakeReconciler) ReconcileCompany(_ context.Context, companyID int64) ([]inventory.Counters, error) {
	f.calls = append(f.calls, companyID)
	if f.failFor[companyID] {
		return nil, errors.New("boom")
	}
	return f.counters[companyID], nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type(), Queue: QueueDefault}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

func TestStockReconcileCoversEveryCompany(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	rec := &fakeReconciler{counters: map[int64][]inventory.Counters{
		1: {
			{ProductID: 10, Status: inventory.StatusOnDemand},
			{ProductID: 11, Status: inventory.StatusSufficient},
		},
		2: {{ProductID: 20, Status: inventory.StatusSufficient}},
	}}
	job := NewStockReconcileJob(staticCompanies{1, 2}, rec, nil, metrics)

	task, err := NewStockReconcileTask(0, time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{1, 2}, rec.calls)
}

func TestStockReconcileSingleCompany(t *testing.T) {
	rec := &fakeReconciler{}
	job := NewStockReconcileJob(nil, rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewStockReconcileTask(7, time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []int64{7}, rec.calls)
}

func TestStockReconcileContinuesAfterFailure(t *testing.T) {
	rec := &fakeReconciler{failFor: map[int64]bool{1: true}}
	job := NewStockReconcileJob(staticCompanies{1, 2, 3}, rec, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewStockReconcileTask(0, time.Now())
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
	assert.Equal(t, []int64{1, 2, 3}, rec.calls)
}

func TestStockReconcileRejectsBadPayload(t *testing.T) {
	job := NewStockReconcileJob(staticCompanies{}, &fakeReconciler{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeStockReconcile, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestShortageGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	rec := &fakeReconciler{counters: map[int64][]inventory.Counters{
		4: {
			{ProductID: 1, Status: inventory.StatusOnDemand},
			{ProductID: 2, Status: inventory.StatusOnDemand},
		},
	}}
	job := NewStockReconcileJob(nil, rec, nil, metrics)
	task, err := NewStockReconcileTask(4, time.Now())
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	count, err := testutil.GatherAndCount(reg, "vendorflow_stock_on_demand_products")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = testutil.GatherAndCount(reg, "vendorflow_jobs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClientSchedulesProductSync(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.ScheduleProductSync(context.Background(), 42, 7))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskTypeProductSync, enq.tasks[0].Type())

	var payload ProductSyncPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, ProductSyncPayload{ProductID: 42, UserID: 7}, payload)
}

func TestClientEnqueuesEmail(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	info, err := client.EnqueueSendEmail(context.Background(), SendEmailPayload{To: "a@b.c", Subject: "Hi", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeSendEmail, info.Type)
	require.Len(t, enq.tasks, 1)
}
