package inventory

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: quantity must be greater than zero", httpx.ErrValidation)
	// ErrUnknownProduct indicates a product id with no row.
	ErrUnknownProduct = fmt.Errorf("%w: unknown product", httpx.ErrValidation)
	// ErrForeignProduct indicates a product that belongs to another company.
	ErrForeignProduct = fmt.Errorf("%w: product belongs to another company", httpx.ErrValidation)
	// ErrInvalidSource indicates a malformed movement source.
	ErrInvalidSource = fmt.Errorf("%w: invalid stock movement source", httpx.ErrValidation)
)
