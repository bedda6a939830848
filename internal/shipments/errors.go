package shipments

import (
	"fmt"

	"github.com/vendorflow/vendorflow/internal/platform/httpx"
)

var (
	// ErrShipmentExists indicates an order that was already approved.
	ErrShipmentExists = fmt.Errorf("%w: order already has a shipment", httpx.ErrConflict)
	// ErrNotApproved indicates allocation of an order without a shipment.
	ErrNotApproved = fmt.Errorf("%w: order has not been approved for shipping", httpx.ErrConflict)
	// ErrAlreadyAllocated indicates a shipment that already has an employee.
	ErrAlreadyAllocated = fmt.Errorf("%w: shipment already allocated", httpx.ErrConflict)
	// ErrNotAllocated indicates delivery of a shipment without an employee.
	ErrNotAllocated = fmt.Errorf("%w: shipment has no employee allocated", httpx.ErrConflict)
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = fmt.Errorf("%w: invalid shipment status transition", httpx.ErrConflict)
	// ErrEmployeeNotEligible indicates an employee outside the company and the order's retailer.
	ErrEmployeeNotEligible = fmt.Errorf("%w: employee cannot deliver this order", httpx.ErrValidation)
	// ErrNoTruck indicates an employee without a truck.
	ErrNoTruck = fmt.Errorf("%w: employee has no truck assigned", httpx.ErrValidation)
	// ErrNotAssignee indicates an employee updating someone else's shipment.
	ErrNotAssignee = fmt.Errorf("%w: shipment is not assigned to you", httpx.ErrForbidden)
)
