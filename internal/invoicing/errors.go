package invoicing

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	ErrDuplicateProduct = fmt.Errorf("%w: a product may appear only once per invoice", httpx.ErrValidation)
	ErrUnknownProduct   = fmt.Errorf("%w: product does not belong to the company", httpx.ErrValidation)
	ErrNegativePrice    = fmt.Errorf("%w: price cannot be negative", httpx.ErrValidation)
	ErrRetailerRequired = fmt.Errorf("%w: retailer_id is required for invoices without an order", httpx.ErrValidation)
	ErrRetailerMismatch = fmt.Errorf("%w: retailer does not match the order", httpx.ErrValidation)
	ErrUnknownRetailer  = fmt.Errorf("%w: retailer does not belong to the company", httpx.ErrValidation)
	ErrDuplicateNumber  = fmt.Errorf("%w: invoice number already used", httpx.ErrDuplicate)
	ErrOrderCancelled   = fmt.Errorf("%w: cancelled orders cannot be invoiced", httpx.ErrConflict)
	ErrLinkedInvoice    = fmt.Errorf("%w: invoices raised for an order cannot be edited", httpx.ErrConflict)
)
