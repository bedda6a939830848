package retailers

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/vendorflow/vendorflow/internal/masterdata/companies"
	"github.com/vendorflow/vendorflow/internal/platform/httpx"
	"github.com/vendorflow/vendorflow/internal/shared"
)

// Store is the persistence used by Service.
type Store interface {
	Create(ctx context.Context, rt Retailer) (Retailer, error)
	List(ctx context.Context, companyID int64, limit, offset int) ([]Retailer, int, error)
	Get(ctx context.Context, companyID, id int64) (Retailer, error)
	CountActive(ctx context.Context, companyID int64) (int, error)
	EnsureForUser(ctx context.Context, companyID, userID int64) (int64, error)
	CreateProfile(ctx context.Context, userID int64, email string) error
	GetProfile(ctx context.Context, userID int64) (Profile, error)
	SaveProfile(ctx context.Context, p Profile) (Profile, error)
}

// Service manages retailers and retailer profiles.
type Service struct {
	store  Store
	audit  shared.AuditRecorder
	logger *slog.Logger
}

// NewService constructs Service.
func NewService(store Store, audit shared.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger}
}

// Add creates a retailer for the company.
func (s *Service) Add(ctx context.Context, actor shared.Principal, companyID int64, in RetailerInput) (Retailer, error) {
	rt := Retailer{
		CompanyID:             companyID,
		Name:                  strings.TrimSpace(in.Name),
		ContactPerson:         strings.TrimSpace(in.ContactPerson),
		Email:                 strings.TrimSpace(in.Email),
		AddressLine1:          strings.TrimSpace(in.AddressLine1),
		AddressLine2:          strings.TrimSpace(in.AddressLine2),
		City:                  strings.TrimSpace(in.City),
		State:                 strings.TrimSpace(in.State),
		Pincode:               strings.TrimSpace(in.Pincode),
		Country:               strings.TrimSpace(in.Country),
		GSTIN:                 strings.ToUpper(strings.TrimSpace(in.GSTIN)),
		DistanceFromWarehouse: in.DistanceFromWarehouse,
		IsActive:              true,
	}
	if rt.Name == "" {
		return Retailer{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	if rt.Country == "" {
		rt.Country = DefaultCountry
	}
	if rt.DistanceFromWarehouse.IsNegative() {
		return Retailer{}, fmt.Errorf("%w: distance cannot be negative", httpx.ErrValidation)
	}
	phone, err := companies.NormalizePhone(in.Contact)
	if err != nil {
		return Retailer{}, err
	}
	rt.Contact = phone
	if err := companies.ValidatePincode(rt.Pincode); err != nil {
		return Retailer{}, err
	}
	if rt.GSTIN != "" {
		if err := companies.ValidateGSTIN(rt.GSTIN); err != nil {
			return Retailer{}, err
		}
	}

	created, err := s.store.Create(ctx, rt)
	if err != nil {
		return Retailer{}, err
	}
	shared.RecordQuietly(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:   actor.UserID,
		CompanyID: companyID,
		Action:    "create",
		Entity:    "retailer",
		EntityID:  strconv.FormatInt(created.ID, 10),
		Meta:      map[string]any{"name": created.Name},
	})
	return created, nil
}

// List returns a page of the company's retailers.
func (s *Service) List(ctx context.Context, companyID int64, page, perPage int) (shared.Page[Retailer], error) {
	page, perPage = shared.NormalizePage(page, perPage)
	items, total, err := s.store.List(ctx, companyID, perPage, shared.Offset(page, perPage))
	if err != nil {
		return shared.Page[Retailer]{}, fmt.Errorf("list retailers: %w", err)
	}
	if items == nil {
		items = []Retailer{}
	}
	return shared.Page[Retailer]{Items: items, Pagination: shared.NewPagination(page, perPage, total)}, nil
}

// Get loads one retailer of the company.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Retailer, error) {
	return s.store.Get(ctx, companyID, id)
}

// CountActive counts active retailers; used by dashboard counters.
func (s *Service) CountActive(ctx context.Context, companyID int64) (int, error) {
	return s.store.CountActive(ctx, companyID)
}

// Profile returns the profile of a retailer account.
func (s *Service) Profile(ctx context.Context, userID int64) (Profile, error) {
	return s.store.GetProfile(ctx, userID)
}

// UpdateProfile replaces the profile fields of a retailer account.
func (s *Service) UpdateProfile(ctx context.Context, userID int64, in ProfileInput) (Profile, error) {
	p := Profile{
		UserID:        userID,
		BusinessName:  strings.TrimSpace(in.BusinessName),
		ContactPerson: strings.TrimSpace(in.ContactPerson),
		Email:         strings.TrimSpace(in.Email),
		Address:       strings.TrimSpace(in.Address),
		City:          strings.TrimSpace(in.City),
		State:         strings.TrimSpace(in.State),
		Pincode:       strings.TrimSpace(in.Pincode),
		GSTIN:         strings.ToUpper(strings.TrimSpace(in.GSTIN)),
	}
	if in.Phone != "" {
		phone, err := companies.NormalizePhone(in.Phone)
		if err != nil {
			return Profile{}, err
		}
		p.Phone = phone
	}
	if p.Pincode != "" {
		if err := companies.ValidatePincode(p.Pincode); err != nil {
			return Profile{}, err
		}
	}
	if p.GSTIN != "" {
		if err := companies.ValidateGSTIN(p.GSTIN); err != nil {
			return Profile{}, err
		}
	}
	return s.store.SaveProfile(ctx, p)
}
