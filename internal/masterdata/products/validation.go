package products

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
)

var hundred = decimal.NewFromInt(100)

func (s *Service) validate(p *Product) error {
	p.Name = strings.TrimSpace(p.Name)
	p.Unit = strings.ToUpper(strings.TrimSpace(p.Unit))
	p.HSNCode = strings.TrimSpace(p.HSNCode)
	if p.Name == "" {
		return shared.Required("name")
	}
	if p.Unit == "" {
		p.Unit = shared.DefaultUnit
	}
	if !shared.ValidUnit(p.Unit) {
		return fmt.Errorf("%w: unknown unit %q", shared.ErrValidation, p.Unit)
	}
	if p.HSNCode == "" {
		p.HSNCode = shared.DefaultHSN
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", shared.ErrValidation)
	}
	if p.Available < 0 {
		return fmt.Errorf("%w: available quantity cannot be negative", shared.ErrValidation)
	}
	rates := map[string]decimal.Decimal{"cgst_rate": p.CGSTRate, "sgst_rate": p.SGSTRate, "igst_rate": p.IGSTRate, "cess_rate": p.CessRate}
	for name, rate := range rates {
		if rate.IsNegative() || rate.GreaterThan(hundred) {
			return fmt.Errorf("%w: %s must be between 0 and 100", shared.ErrValidation, name)
		}
	}
	p.Price = p.Price.Round(2)
	return nil
}
