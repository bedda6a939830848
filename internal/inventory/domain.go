package inventory

import (
	"fmt"
	"time"
)

// Status is the derived stock state of a product.
type Status string

const (
	// StatusSufficient means open demand is covered by available stock.
	StatusSufficient Status = "sufficient"
	// StatusOnDemand means open demand exceeds available stock.
	StatusOnDemand Status = "on_demand"
)

// DeriveStatus returns on_demand iff required > available.
func DeriveStatus(required, available int64) Status {
	if required > available {
		return StatusOnDemand
	}
	return StatusSufficient
}

// SourceType identifies what caused a stock-out.
type SourceType string

const (
	// SourceOrder marks stock that left through an order's delivery or invoice.
	SourceOrder SourceType = "order"
	// SourceInvoice marks stock that left through a standalone invoice.
	SourceInvoice SourceType = "invoice"
)

// Source keys a group of movements.
type Source struct {
	Type SourceType `json:"source_type"`
	ID   int64      `json:"source_id"`
}

// OrderSource returns the source for an order.
func OrderSource(orderID int64) Source { return Source{Type: SourceOrder, ID: orderID} }

// InvoiceSource returns the source for a standalone invoice.
func InvoiceSource(invoiceID int64) Source { return Source{Type: SourceInvoice, ID: invoiceID} }

func (s Source) String() string { return fmt.Sprintf("%s:%d", s.Type, s.ID) }

// Valid reports whether the source can key movements.
func (s Source) Valid() bool {
	return (s.Type == SourceOrder || s.Type == SourceInvoice) && s.ID > 0
}

// Line is a requested quantity of one product.
type Line struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// Counters holds the stock counters of one product row.
type Counters struct {
	ProductID int64  `json:"product_id"`
	CompanyID int64  `json:"company_id"`
	Available int64  `json:"available_quantity"`
	Required  int64  `json:"total_required_quantity"`
	Shipped   int64  `json:"total_shipped"`
	Status    Status `json:"status"`
}

// Movement records stock that left for a source.
type Movement struct {
	CompanyID int64     `json:"company_id"`
	Source    Source    `json:"source"`
	ProductID int64     `json:"product_id"`
	Quantity  int64     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	CompanyID int64
	ProductID int64
	Source    Source
	Limit     int
}

// ReceiveRequest is the payload for a manual stock receipt.
type ReceiveRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gt=0"`
}
