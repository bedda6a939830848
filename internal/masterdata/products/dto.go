package products

import "github.com/shopspring/decimal"

// ProductForm is the create/update payload. A nil AvailableQuantity on update
// leaves stock untouched.
type ProductForm struct {
	CategoryID        *int64          `json:"category_id,omitempty"`
	Name              string          `json:"name" validate:"required,max=255"`
	Unit              string          `json:"unit,omitempty" validate:"omitempty,len=3"`
	Price             decimal.Decimal `json:"price"`
	HSNCode           string          `json:"hsn_code,omitempty" validate:"omitempty,max=10"`
	CGSTRate          decimal.Decimal `json:"cgst_rate"`
	SGSTRate          decimal.Decimal `json:"sgst_rate"`
	IGSTRate          decimal.Decimal `json:"igst_rate"`
	CessRate          decimal.Decimal `json:"cess_rate"`
	AvailableQuantity *int64          `json:"available_quantity,omitempty" validate:"omitempty,gte=0"`
}

func (f ProductForm) toProduct(companyID int64) Product {
	p := Product{
		CompanyID:  companyID,
		CategoryID: f.CategoryID,
		Name:       f.Name,
		Unit:       f.Unit,
		Price:      f.Price,
		HSNCode:    f.HSNCode,
		CGSTRate:   f.CGSTRate,
		SGSTRate:   f.SGSTRate,
		IGSTRate:   f.IGSTRate,
		CessRate:   f.CessRate,
	}
	if f.AvailableQuantity != nil {
		p.Available = *f.AvailableQuantity
	}
	return p
}

// UnitOption is one entry of the unit list endpoint.
type UnitOption struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}
