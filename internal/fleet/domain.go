package fleet

import "time"

// DefaultContact is stored when an employee has no phone number.
const DefaultContact = "Not Provided"

// Truck is a delivery vehicle of a company.
type Truck struct {
	ID           int64     `json:"truck_id"`
	CompanyID    int64     `json:"company_id"`
	LicensePlate string    `json:"license_plate"`
	Capacity     int       `json:"capacity"`
	IsAvailable  bool      `json:"is_available"`
	CreatedAt    time.Time `json:"created_at"`
}

// TruckInput is the payload for creating or updating a truck.
type TruckInput struct {
	LicensePlate string `json:"license_plate" validate:"required,max=20"`
	Capacity     int    `json:"capacity" validate:"required,gt=0"`
	IsAvailable  *bool  `json:"is_available,omitempty"`
}

// Employee is a delivery employee linked to a user account.
type Employee struct {
	ID           int64     `json:"employee_id"`
	CompanyID    int64     `json:"company_id"`
	RetailerID   *int64    `json:"retailer_id,omitempty"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Contact      string    `json:"contact"`
	TruckID      *int64    `json:"truck_id,omitempty"`
	LicensePlate string    `json:"license_plate,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EmployeeInput is the payload for adding an employee.
type EmployeeInput struct {
	UserID     int64  `json:"user_id" validate:"required,gt=0"`
	Contact    string `json:"contact,omitempty" validate:"omitempty,max=20"`
	TruckID    *int64 `json:"truck_id,omitempty" validate:"omitempty,gt=0"`
	RetailerID *int64 `json:"retailer_id,omitempty" validate:"omitempty,gt=0"`
}
