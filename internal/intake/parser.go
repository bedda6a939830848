// Package intake turns scanned QR labels into stock receipts.
package intake

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

// ErrInvalidQR reports a label that does not follow name=X|category=Y|quantity=N.
var ErrInvalidQR = fmt.Errorf("%w: invalid QR code data", httpx.ErrValidation)

// Entry is a parsed QR label.
type Entry struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Quantity int64  `json:"quantity"`
}

// Parse reads a label of pipe separated key=value pairs. Keys are case-insensitive,
// unknown keys are ignored and category defaults to Uncategorized.
func Parse(text string) (Entry, error) {
	fold := cases.Fold()
	var (
		e        Entry
		quantity string
	)
	for _, part := range strings.Split(text, "|") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return Entry{}, fmt.Errorf("%w: %q is not a key=value pair", ErrInvalidQR, strings.TrimSpace(part))
		}
		value = strings.TrimSpace(value)
		switch fold.String(strings.TrimSpace(key)) {
		case "name":
			e.Name = value
		case "category":
			e.Category = value
		case "quantity":
			quantity = value
		}
	}
	if e.Name == "" {
		return Entry{}, fmt.Errorf("%w: name is required", ErrInvalidQR)
	}
	if quantity == "" {
		return Entry{}, fmt.Errorf("%w: quantity is required", ErrInvalidQR)
	}
	qty, err := strconv.ParseInt(quantity, 10, 64)
	if err != nil || qty <= 0 {
		return Entry{}, fmt.Errorf("%w: quantity must be a positive integer", ErrInvalidQR)
	}
	e.Quantity = qty
	if e.Category == "" {
		e.Category = shared.DefaultCategory
	}
	return e, nil
}

// SameName compares product names under Unicode case folding.
func SameName(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}
