package products

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vendorflow/vendorflow/internal/inventory"
)

// CatalogItem is a product as a connected retailer sees it.
type CatalogItem struct {
	ProductID   int64            `json:"product_id"`
	CompanyID   int64            `json:"company_id"`
	CompanyName string           `json:"company_name"`
	Category    string           `json:"category_name,omitempty"`
	Name        string           `json:"name"`
	Unit        string           `json:"unit"`
	Price       decimal.Decimal  `json:"price"`
	Available   int64            `json:"available_quantity"`
	Status      inventory.Status `json:"status"`
}

// Product is a sellable item of a company together with its stock counters.
type Product struct {
	ID         int64            `json:"product_id"`
	CompanyID  int64            `json:"company_id"`
	CategoryID *int64           `json:"category_id,omitempty"`
	Category   string           `json:"category_name,omitempty"`
	Name       string           `json:"name"`
	Unit       string           `json:"unit"`
	Price      decimal.Decimal  `json:"price"`
	HSNCode    string           `json:"hsn_code"`
	CGSTRate   decimal.Decimal  `json:"cgst_rate"`
	SGSTRate   decimal.Decimal  `json:"sgst_rate"`
	IGSTRate   decimal.Decimal  `json:"igst_rate"`
	CessRate   decimal.Decimal  `json:"cess_rate"`
	Available  int64            `json:"available_quantity"`
	Required   int64            `json:"total_required_quantity"`
	Shipped    int64            `json:"total_shipped"`
	Status     inventory.Status `json:"status"`
	CreatedBy  *int64           `json:"created_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}
