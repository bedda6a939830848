package categories

import (
	"strings"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
)

func (s *Service) validate(c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return shared.Required("name")
	}
	if c.CompanyID <= 0 {
		return shared.Required("company")
	}
	return nil
}
