package orders

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrNoItems indicates an order without lines.
	ErrNoItems = fmt.Errorf("%w: an order needs at least one item", httpx.ErrValidation)
	// ErrDuplicateProduct indicates the same product on two lines.
	ErrDuplicateProduct = fmt.Errorf("%w: duplicate product in order", httpx.ErrValidation)
	// ErrUnknownRetailer indicates a retailer outside the company.
	ErrUnknownRetailer = fmt.Errorf("%w: retailer does not belong to the company", httpx.ErrValidation)
	// ErrNotPending indicates an edit of an order that left pending.
	ErrNotPending = fmt.Errorf("%w: only pending orders can be modified", httpx.ErrConflict)
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = fmt.Errorf("%w: invalid order status transition", httpx.ErrConflict)
	// ErrInvoiced indicates a cancel or edit of an order that has an invoice.
	ErrInvoiced = fmt.Errorf("%w: invoiced orders cannot be cancelled or edited", httpx.ErrConflict)
	// ErrNotConnected indicates a retailer without an approved connection.
	ErrNotConnected = fmt.Errorf("%w: no approved connection with this company", httpx.ErrForbidden)
	// ErrConnectionSuspended indicates a suspended connection.
	ErrConnectionSuspended = fmt.Errorf("%w: connection with this company is suspended", httpx.ErrForbidden)
)
