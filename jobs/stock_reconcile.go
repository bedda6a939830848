package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vendorflow/vendorflow/internal/inventory"
	jobmetrics "github.com/vendorflow/vendorflow/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CompanySource lists the companies a full reconcile run covers.
type CompanySource interface {
	CompanyIDs(ctx context.Context) ([]int64, error)
}

// Reconciler recomputes the stock counters of one company.
type Reconciler interface {
	ReconcileCompany(ctx context.Context, companyID int64) ([]inventory.Counters, error)
}

// PoolCompanies reads company ids straight from PostgreSQL.
type PoolCompanies struct {
	Pool *pgxpool.Pool
}

// CompanyIDs implements CompanySource.
func (p PoolCompanies) CompanyIDs(ctx context.Context) ([]int64, error) {
	if p.Pool == nil {
		return nil, errors.New("stock reconcile: pool not configured")
	}
	rows, err := p.Pool.Query(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// StockReconcileJob recomputes required quantity and status for every product. It
// repairs counters that drifted because of manual edits or deleted orders.
type StockReconcileJob struct {
	Companies  CompanySource
	Reconciler Reconciler
	Logger     *slog.Logger
	Metrics    *jobmetrics.Metrics
	clock      func() time.Time
}

// NewStockReconcileJob wires dependencies for the reconcile handler.
func NewStockReconcileJob(companies CompanySource, reconciler Reconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *StockReconcileJob {
	return &StockReconcileJob{
		Companies:  companies,
		Reconciler: reconciler,
		Logger:     logger,
		Metrics:    metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes one reconcile run. A failing company is logged and the run
// continues; the task fails when any company failed so asynq retries it.
func (j *StockReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Reconciler == nil {
		return errors.New("stock reconcile: handler not configured")
	}
	var payload StockReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskTypeStockReconcile)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	ids, err := j.targets(ctx, payload)
	if err != nil {
		resultErr = err
		logger.Error("list companies", slog.Any("error", err))
		return resultErr
	}

	var failed, products, shortages int
	for _, companyID := range ids {
		counters, err := j.Reconciler.ReconcileCompany(ctx, companyID)
		if err != nil {
			failed++
			logger.Error("reconcile company", slog.Int64("company_id", companyID), slog.Any("error", err))
			continue
		}
		short := 0
		for _, c := range counters {
			if c.Status == inventory.StatusOnDemand {
				short++
			}
		}
		products += len(counters)
		shortages += short
		j.metrics().SetShortages(companyID, short)
	}

	logger.Info("completed stock reconcile",
		slog.Int("companies", len(ids)),
		slog.Int("products", products),
		slog.Int("on_demand", shortages),
		slog.Duration("duration", time.Since(start)),
	)
	if failed > 0 {
		resultErr = fmt.Errorf("stock reconcile: %d of %d companies failed", failed, len(ids))
	}
	return resultErr
}

func (j *StockReconcileJob) targets(ctx context.Context, payload StockReconcilePayload) ([]int64, error) {
	if payload.CompanyID > 0 {
		return []int64{payload.CompanyID}, nil
	}
	if j.Companies == nil {
		return nil, errors.New("stock reconcile: company source not configured")
	}
	return j.Companies.CompanyIDs(ctx)
}

func (j *StockReconcileJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskTypeStockReconcile))
	}
	return slog.Default().With(slog.String("job", TaskTypeStockReconcile))
}

func (j *StockReconcileJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *StockReconcileJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
