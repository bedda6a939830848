package companies

// CompanyForm is the create/update payload.
type CompanyForm struct {
	Name    string `json:"name" validate:"required,max=255"`
	GSTIN   string `json:"gstin" validate:"required,len=15"`
	Address string `json:"address" validate:"required"`
	State   string `json:"state" validate:"required,max=100"`
	City    string `json:"city" validate:"required,max=100"`
	Pincode string `json:"pincode" validate:"required"`
	Phone   string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
}

func (f CompanyForm) toCompany() Company {
	return Company{
		Name:    f.Name,
		GSTIN:   f.GSTIN,
		Address: f.Address,
		State:   f.State,
		City:    f.City,
		Pincode: f.Pincode,
		Phone:   f.Phone,
		Email:   f.Email,
	}
}
