package categories

import (
	"context"
	"strings"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Category, int, error) {
	if filters.CompanyID <= 0 {
		return nil, 0, shared.Required("company")
	}
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	if err := s.validate(&category); err != nil {
		return Category{}, err
	}
	return s.repo.Create(ctx, category)
}

// GetOrCreate returns the company category with a case-insensitively equal name,
// creating it when missing. A blank name maps to the default category.
func (s *Service) GetOrCreate(ctx context.Context, companyID int64, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = shared.DefaultCategory
	}
	if companyID <= 0 {
		return Category{}, shared.Required("company")
	}
	return s.repo.GetOrCreate(ctx, companyID, name)
}

func (s *Service) Update(ctx context.Context, companyID, id int64, name string) (Category, error) {
	if id <= 0 {
		return Category{}, shared.ErrInvalidID
	}
	c := Category{ID: id, CompanyID: companyID, Name: name}
	if err := s.validate(&c); err != nil {
		return Category{}, err
	}
	return s.repo.Update(ctx, companyID, id, c.Name)
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.Delete(ctx, companyID, id)
}

// StockByCategory returns the product count per category of a company.
func (s *Service) StockByCategory(ctx context.Context, companyID int64) ([]Stock, error) {
	if companyID <= 0 {
		return nil, shared.Required("company")
	}
	return s.repo.Stock(ctx, companyID)
}
