package orders

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAllocated Status = "allocated"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:   {StatusAllocated, StatusCancelled},
	StatusAllocated: {StatusDelivered, StatusCancelled},
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAllocated, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Open reports whether the order still counts towards required stock.
func (s Status) Open() bool {
	return s == StatusPending || s == StatusAllocated
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Order is a retailer's purchase from a company.
type Order struct {
	ID           int64     `json:"order_id"`
	CompanyID    int64     `json:"company_id"`
	RetailerID   int64     `json:"retailer_id"`
	RetailerName string    `json:"retailer_name"`
	ConnectionID *int64    `json:"connection_id,omitempty"`
	PlacedBy     int64     `json:"placed_by"`
	OrderDate    time.Time `json:"order_date"`
	Status       Status    `json:"status"`
	Items        []Item    `json:"items"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProductIDs returns the distinct product ids of the order.
func (o Order) ProductIDs() []int64 {
	ids := make([]int64, 0, len(o.Items))
	for _, it := range o.Items {
		ids = append(ids, it.ProductID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// Item is one order line.
type Item struct {
	ID          int64  `json:"id,omitempty"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name,omitempty"`
	Quantity    int64  `json:"quantity"`
}

// ItemInput is an order line in a request body.
type ItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

// PlaceRequest is the payload for placing an order on behalf of a retailer.
type PlaceRequest struct {
	RetailerID int64       `json:"retailer_id" validate:"required,gt=0"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// RetailerPlaceRequest is the payload a connected retailer sends.
type RetailerPlaceRequest struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ReplaceItemsRequest swaps the lines of a pending order.
type ReplaceItemsRequest struct {
	Items []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// ProductRef is the part of a product an order needs.
type ProductRef struct {
	ID        int64
	CompanyID int64
	Name      string
	Price     decimal.Decimal
}

// ConnectionRef is the connection a retailer orders through.
type ConnectionRef struct {
	ID         int64
	RetailerID int64
	Status     string
}

// Filter narrows order listings.
type Filter struct {
	CompanyID      int64
	RetailerUserID int64
	EmployeeID     int64
	Status         Status
	Page           int
	PerPage        int
}

// Counts are the headline counters of a company.
type Counts struct {
	OrdersPlaced       int `json:"orders_placed"`
	PendingOrders      int `json:"pending_orders"`
	EmployeesAvailable int `json:"employees_available"`
	RetailersAvailable int `json:"retailers_available"`
}
