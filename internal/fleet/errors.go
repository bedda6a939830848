package fleet

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrTruckTaken indicates a truck already assigned to another employee.
	ErrTruckTaken = fmt.Errorf("%w: truck is assigned to another employee", httpx.ErrConflict)
	// ErrForeignTruck indicates a truck of another company.
	ErrForeignTruck = fmt.Errorf("%w: truck does not belong to the company", httpx.ErrValidation)
	// ErrForeignRetailer indicates a retailer of another company.
	ErrForeignRetailer = fmt.Errorf("%w: retailer does not belong to the company", httpx.ErrValidation)
	// ErrNotEmployee indicates the caller has no employee record.
	ErrNotEmployee = fmt.Errorf("%w: employee record not found", httpx.ErrNotFound)
)
