package shipments

import (
	"slices"
	"time"
)

// Status is the delivery state of a shipment.
type Status string

const (
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

var transitions = map[Status][]Status{
	StatusInTransit: {StatusDelivered, StatusFailed},
	StatusFailed:    {StatusInTransit},
}

// CanTransition reports whether a shipment may move from one status to another.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Shipment tracks the delivery of one order.
type Shipment struct {
	ID           int64     `json:"shipment_id"`
	OrderID      int64     `json:"order_id"`
	CompanyID    int64     `json:"company_id"`
	RetailerName string    `json:"retailer_name"`
	EmployeeID   *int64    `json:"employee_id,omitempty"`
	EmployeeName string    `json:"employee_name,omitempty"`
	LicensePlate string    `json:"truck_license_plate"`
	ShipmentDate time.Time `json:"shipment_date"`
	Status       Status    `json:"status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Allocated reports whether an employee carries the shipment.
func (s Shipment) Allocated() bool { return s.EmployeeID != nil }

// EmployeeRef is the part of an employee allocation needs.
type EmployeeRef struct {
	ID         int64
	CompanyID  int64
	RetailerID *int64
	TruckID    *int64
}

// StatusUpdate describes a status change request. A non-zero CompanyID scopes the
// shipment to a company; a non-zero EmployeeID restricts it to that employee's shipments.
type StatusUpdate struct {
	ShipmentID int64
	Status     Status
	CompanyID  int64
	EmployeeID int64
}

// ApproveRequest is the payload for approving an order into shipping.
type ApproveRequest struct {
	OrderID int64 `json:"order_id" validate:"required,gt=0"`
}

// AllocateRequest is the payload for assigning an employee.
type AllocateRequest struct {
	OrderID    int64 `json:"order_id" validate:"required,gt=0"`
	EmployeeID int64 `json:"employee_id" validate:"required,gt=0"`
}

// StatusRequest is the payload for changing a shipment status.
type StatusRequest struct {
	ShipmentID int64  `json:"shipment_id" validate:"required,gt=0"`
	Status     Status `json:"status" validate:"required,oneof=in_transit delivered failed"`
}

// MonthlyStat is the quantity of one product invoiced in one month.
type MonthlyStat struct {
	Month   string `json:"month"`
	Product string `json:"product"`
	Count   int64  `json:"count"`
}
