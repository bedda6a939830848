package invoicing

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode is how an invoice is settled.
type PaymentMode string

const (
	PaymentCash PaymentMode = "cash"
	PaymentUPI  PaymentMode = "upi"
	PaymentCard PaymentMode = "card"
	PaymentBank PaymentMode = "bank"
)

// PaymentStatus tracks settlement of an invoice.
type PaymentStatus string

const (
	StatusPaid    PaymentStatus = "paid"
	StatusUnpaid  PaymentStatus = "unpaid"
	StatusPartial PaymentStatus = "partial"
)

// Invoice is a GST tax invoice raised by a company for a retailer.
type Invoice struct {
	ID                  int64         `json:"id"`
	Number              string        `json:"invoice_number"`
	CompanyID           int64         `json:"company_id"`
	RetailerID          int64         `json:"retailer_id"`
	RetailerName        string        `json:"retailer_name"`
	OrderID             *int64        `json:"order_id,omitempty"`
	InvoiceDate         time.Time     `json:"invoice_date"`
	DueDate             *time.Time    `json:"due_date,omitempty"`
	IsEInvoiceGenerated bool          `json:"is_einvoice_generated"`
	IRN                 string        `json:"irn"`
	Totals              Totals        `json:"totals"`
	PaymentMode         PaymentMode   `json:"payment_mode"`
	PaymentStatus       PaymentStatus `json:"payment_status"`
	Items               []Item        `json:"items"`
	CreatedBy           int64         `json:"created_by,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// Standalone reports whether the invoice carries its own stock-out.
func (i Invoice) Standalone() bool { return i.OrderID == nil }

// Totals are the invoice-level sums of the item taxes.
type Totals struct {
	Taxable decimal.Decimal `json:"total_taxable_value"`
	CGST    decimal.Decimal `json:"total_cgst"`
	SGST    decimal.Decimal `json:"total_sgst"`
	IGST    decimal.Decimal `json:"total_igst"`
	Cess    decimal.Decimal `json:"total_cess"`
	Grand   decimal.Decimal `json:"grand_total"`
}

// Item is one invoice line with its computed taxes.
type Item struct {
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name,omitempty"`
	Quantity     int64           `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	TaxableValue decimal.Decimal `json:"taxable_value"`
	GSTRate      decimal.Decimal `json:"gst_rate"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	Cess         decimal.Decimal `json:"cess"`
	HSNCode      string          `json:"hsn_code"`
}

// ItemInput is an invoice line in a request body. Price defaults to the product price.
type ItemInput struct {
	ProductID int64            `json:"product_id" validate:"required,gt=0"`
	Quantity  int64            `json:"quantity" validate:"required,gt=0"`
	Price     *decimal.Decimal `json:"price,omitempty"`
}

// CreateRequest is the payload for raising an invoice.
type CreateRequest struct {
	Number              string        `json:"invoice_number" validate:"required,max=20"`
	RetailerID          int64         `json:"retailer_id" validate:"omitempty,gt=0"`
	OrderID             *int64        `json:"order_id,omitempty" validate:"omitempty,gt=0"`
	InvoiceDate         time.Time     `json:"invoice_date"`
	DueDate             *time.Time    `json:"due_date,omitempty"`
	IsEInvoiceGenerated bool          `json:"is_einvoice_generated"`
	IRN                 string        `json:"irn" validate:"max=100"`
	PaymentMode         PaymentMode   `json:"payment_mode" validate:"omitempty,oneof=cash upi card bank"`
	PaymentStatus       PaymentStatus `json:"payment_status" validate:"omitempty,oneof=paid unpaid partial"`
	Items               []ItemInput   `json:"items" validate:"required,min=1,dive"`
}

// UpdateRequest replaces the editable fields of a standalone invoice.
type UpdateRequest struct {
	DueDate             *time.Time    `json:"due_date,omitempty"`
	IsEInvoiceGenerated bool          `json:"is_einvoice_generated"`
	IRN                 string        `json:"irn" validate:"max=100"`
	PaymentMode         PaymentMode   `json:"payment_mode" validate:"omitempty,oneof=cash upi card bank"`
	PaymentStatus       PaymentStatus `json:"payment_status" validate:"omitempty,oneof=paid unpaid partial"`
	Items               []ItemInput   `json:"items" validate:"required,min=1,dive"`
}

// ProductTax is the product data needed to price and tax an invoice line.
type ProductTax struct {
	ID        int64
	CompanyID int64
	Name      string
	Price     decimal.Decimal
	HSNCode   string
	CGSTRate  decimal.Decimal
	SGSTRate  decimal.Decimal
	IGSTRate  decimal.Decimal
	CessRate  decimal.Decimal
}

// Parties are the places of supply that decide between intra- and inter-state tax.
type Parties struct {
	CompanyState  string
	RetailerState string
}

// Filter narrows List.
type Filter struct {
	CompanyID     int64
	PaymentStatus PaymentStatus
	Page          int
	PerPage       int
}

// AgingBucket sums outstanding grand totals by days past due.
type AgingBucket struct {
	Current   decimal.Decimal `json:"current"`
	Bucket30  decimal.Decimal `json:"days_1_30"`
	Bucket60  decimal.Decimal `json:"days_31_60"`
	Bucket90  decimal.Decimal `json:"days_61_90"`
	Bucket120 decimal.Decimal `json:"days_over_90"`
}
