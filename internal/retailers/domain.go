package retailers

import (
	"time"

	"github.com/shopspring/decimal"
)

// Retailer is a company-scoped customer record. UserID links it to a retailer
// account when the record came from the connection workflow.
type Retailer struct {
	ID                    int64           `json:"retailer_id"`
	CompanyID             int64           `json:"company_id"`
	UserID                *int64          `json:"user_id,omitempty"`
	Name                  string          `json:"name"`
	ContactPerson         string          `json:"contact_person,omitempty"`
	Email                 string          `json:"email,omitempty"`
	Contact               string          `json:"contact"`
	AddressLine1          string          `json:"address_line1"`
	AddressLine2          string          `json:"address_line2,omitempty"`
	City                  string          `json:"city"`
	State                 string          `json:"state"`
	Pincode               string          `json:"pincode"`
	Country               string          `json:"country"`
	GSTIN                 string          `json:"gstin,omitempty"`
	DistanceFromWarehouse decimal.Decimal `json:"distance_from_warehouse"`
	IsActive              bool            `json:"is_active"`
	CreatedAt             time.Time       `json:"created_at"`
}

// RetailerInput is the payload for adding a retailer.
type RetailerInput struct {
	Name                  string          `json:"name" validate:"required,max=255"`
	ContactPerson         string          `json:"contact_person,omitempty" validate:"omitempty,max=255"`
	Email                 string          `json:"email,omitempty" validate:"omitempty,email"`
	Contact               string          `json:"contact" validate:"required,max=20"`
	AddressLine1          string          `json:"address_line1" validate:"required,max=255"`
	AddressLine2          string          `json:"address_line2,omitempty" validate:"omitempty,max=255"`
	City                  string          `json:"city" validate:"required,max=100"`
	State                 string          `json:"state" validate:"required,max=100"`
	Pincode               string          `json:"pincode" validate:"required"`
	Country               string          `json:"country,omitempty" validate:"omitempty,max=100"`
	GSTIN                 string          `json:"gstin,omitempty" validate:"omitempty,len=15"`
	DistanceFromWarehouse decimal.Decimal `json:"distance_from_warehouse"`
}

// Profile holds the business details of a retailer account.
type Profile struct {
	UserID        int64     `json:"user_id"`
	BusinessName  string    `json:"business_name"`
	ContactPerson string    `json:"contact_person"`
	Phone         string    `json:"phone"`
	Email         string    `json:"email"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	Pincode       string    `json:"pincode"`
	GSTIN         string    `json:"gstin"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfileInput updates a retailer profile.
type ProfileInput struct {
	BusinessName  string `json:"business_name" validate:"required,max=255"`
	ContactPerson string `json:"contact_person,omitempty" validate:"omitempty,max=255"`
	Phone         string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Address       string `json:"address,omitempty"`
	City          string `json:"city,omitempty" validate:"omitempty,max=100"`
	State         string `json:"state,omitempty" validate:"omitempty,max=100"`
	Pincode       string `json:"pincode,omitempty"`
	GSTIN         string `json:"gstin,omitempty" validate:"omitempty,len=15"`
}

// DefaultCountry is stored when a retailer omits the country.
const DefaultCountry = "India"
