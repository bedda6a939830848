package companies

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ttacon/libphonenumber"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
)

var (
	gstinPattern   = regexp.MustCompile(`^[0-9]{2}[A-Z]{5}[0-9]{4}[A-Z][1-9A-Z]Z[0-9A-Z]$`)
	pincodePattern = regexp.MustCompile(`^[1-9][0-9]{5}$`)
)

// PhoneRegion is the default region used to parse national numbers.
const PhoneRegion = "IN"

// ValidateGSTIN checks the 15 character GSTIN layout.
func ValidateGSTIN(gstin string) error {
	if !gstinPattern.MatchString(gstin) {
		return fmt.Errorf("%w: invalid GSTIN %q", shared.ErrValidation, gstin)
	}
	return nil
}

// ValidatePincode checks a six digit postal code.
func ValidatePincode(pin string) error {
	if !pincodePattern.MatchString(pin) {
		return fmt.Errorf("%w: pincode must be 6 digits", shared.ErrValidation)
	}
	return nil
}

// NormalizePhone validates a phone number and returns it in E.164 form.
func NormalizePhone(raw string) (string, error) {
	num, err := libphonenumber.Parse(raw, PhoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", fmt.Errorf("%w: invalid phone number %q", shared.ErrValidation, raw)
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func (s *Service) validate(c *Company) error {
	c.Name = strings.TrimSpace(c.Name)
	c.GSTIN = strings.ToUpper(strings.TrimSpace(c.GSTIN))
	c.Pincode = strings.TrimSpace(c.Pincode)
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Name == "" {
		return shared.Required("name")
	}
	if err := ValidateGSTIN(c.GSTIN); err != nil {
		return err
	}
	if err := ValidatePincode(c.Pincode); err != nil {
		return err
	}
	if c.Phone != "" {
		phone, err := NormalizePhone(c.Phone)
		if err != nil {
			return err
		}
		c.Phone = phone
	}
	return nil
}
