package categories

import "time"

// Category groups products of one company.
type Category struct {
	ID        int64     `json:"id"`
	CompanyID int64     `json:"company_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Stock is the product count of one category, shaped for charts.
type Stock struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// CategoryForm is the create/update payload.
type CategoryForm struct {
	Name string `json:"name" validate:"required,max=255"`
}
