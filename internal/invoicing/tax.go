package invoicing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// IntraState reports whether supply happens inside one state. Missing states are
// treated as inter-state.
func (p Parties) IntraState() bool {
	company := strings.TrimSpace(p.CompanyState)
	return company != "" && strings.EqualFold(company, strings.TrimSpace(p.RetailerState))
}

// ComputeItem prices and taxes one line. Every amount is rounded half-up to two places.
func ComputeItem(p ProductTax, qty int64, price decimal.Decimal, intraState bool) Item {
	taxable := round(price.Mul(decimal.NewFromInt(qty)))
	item := Item{
		ProductID:    p.ID,
		ProductName:  p.Name,
		Quantity:     qty,
		Price:        round(price),
		TaxableValue: taxable,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
		Cess:         percent(taxable, p.CessRate),
		HSNCode:      p.HSNCode,
	}
	if intraState {
		item.CGST = percent(taxable, p.CGSTRate)
		item.SGST = percent(taxable, p.SGSTRate)
		item.GSTRate = p.CGSTRate.Add(p.SGSTRate)
	} else {
		item.IGST = percent(taxable, p.IGSTRate)
		item.GSTRate = p.IGSTRate
	}
	return item
}

// SumTotals adds up the item amounts.
func SumTotals(items []Item) Totals {
	t := Totals{
		Taxable: decimal.Zero,
		CGST:    decimal.Zero,
		SGST:    decimal.Zero,
		IGST:    decimal.Zero,
		Cess:    decimal.Zero,
	}
	for _, it := range items {
		t.Taxable = t.Taxable.Add(it.TaxableValue)
		t.CGST = t.CGST.Add(it.CGST)
		t.SGST = t.SGST.Add(it.SGST)
		t.IGST = t.IGST.Add(it.IGST)
		t.Cess = t.Cess.Add(it.Cess)
	}
	t.Grand = t.Taxable.Add(t.CGST).Add(t.SGST).Add(t.IGST).Add(t.Cess)
	return t
}

func percent(amount, rate decimal.Decimal) decimal.Decimal {
	return round(amount.Mul(rate).Div(hundred))
}

// round is half away from zero, which is half-up for the non-negative amounts used here.
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
