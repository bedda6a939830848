package inventory

import "context"

// TxStore is the transactional view the ledger works against. Every method must run
// inside the caller's database transaction.
type TxStore interface {
	// LockProducts locks the rows FOR UPDATE in ascending id order. Unknown ids are omitted.
	LockProducts(ctx context.Context, ids []int64) ([]Counters, error)
	// CompanyProductIDs lists every product id of a company.
	CompanyProductIDs(ctx context.Context, companyID int64) ([]int64, error)
	// OpenDemand sums order-item quantities of pending and allocated orders per product,
	// less whatever each order has already posted as stock-out.
	OpenDemand(ctx context.Context, ids []int64) (map[int64]int64, error)
	SaveCounters(ctx context.Context, c Counters) error
	ListMovements(ctx context.Context, src Source) ([]Movement, error)
	PutMovement(ctx context.Context, m Movement) error
	DeleteMovement(ctx context.Context, src Source, productID int64) error
}

// Locker serialises writers of one company's counters across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) func()
}
