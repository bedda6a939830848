package shared

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	ErrNotFound      = httpx.ErrNotFound
	ErrDuplicate     = httpx.ErrDuplicate
	ErrValidation    = httpx.ErrValidation
	ErrInvalidID     = fmt.Errorf("%w: invalid ID", httpx.ErrValidation)
	ErrRequiredField = fmt.Errorf("%w: field is required", httpx.ErrValidation)
)

// Required builds a validation error naming the missing field.
func Required(field string) error {
	return fmt.Errorf("%w: %s", ErrRequiredField, field)
}
