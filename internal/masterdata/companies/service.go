package companies

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vendorflow/vendorflow/internal/masterdata/shared"
	core "github.com/vendorflow/vendorflow/internal/shared"
)

type Service struct {
	repo   Repository
	audit  core.AuditRecorder
	logger *slog.Logger
}

func NewService(repo Repository, audit core.AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns the companies visible to p. Admin sees every company.
func (s *Service) List(ctx context.Context, p core.Principal, filters shared.ListFilters) ([]Company, int, error) {
	ownerID := p.UserID
	if p.IsAdmin() {
		ownerID = 0
	}
	return s.repo.List(ctx, ownerID, filters)
}

// Directory lists every company without owner or contact details.
func (s *Service) Directory(ctx context.Context, filters shared.ListFilters) ([]Directory, int, error) {
	list, total, err := s.repo.List(ctx, 0, filters)
	if err != nil {
		return nil, 0, err
	}
	out := make([]Directory, 0, len(list))
	for _, c := range list {
		out = append(out, Directory{ID: c.ID, Name: c.Name, City: c.City, State: c.State, CreatedAt: c.CreatedAt})
	}
	return out, total, nil
}

func (s *Service) Get(ctx context.Context, p core.Principal, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, shared.ErrInvalidID
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Company{}, err
	}
	if err := s.authorizeLoaded(ctx, p, c); err != nil {
		return Company{}, err
	}
	return c, nil
}

func (s *Service) Create(ctx context.Context, p core.Principal, company Company) (Company, error) {
	if err := s.validate(&company); err != nil {
		return Company{}, err
	}
	company.OwnerID = p.UserID
	created, err := s.repo.Create(ctx, company)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, p, created.ID, "create")
	return created, nil
}

// Update replaces the editable fields. Only the owner or an Admin may update.
func (s *Service) Update(ctx context.Context, p core.Principal, id int64, company Company) (Company, error) {
	if err := s.requireOwner(ctx, p, id); err != nil {
		return Company{}, err
	}
	if err := s.validate(&company); err != nil {
		return Company{}, err
	}
	updated, err := s.repo.Update(ctx, id, company)
	if err != nil {
		return Company{}, err
	}
	s.record(ctx, p, id, "update")
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p core.Principal, id int64) error {
	if err := s.requireOwner(ctx, p, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, p, id, "delete")
	return nil
}

// State returns the registered state of a company.
func (s *Service) State(ctx context.Context, id int64) (string, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return c.State, nil
}

// Authorize implements core.CompanyGuard: owner, Admin or an employee of the company.
func (s *Service) Authorize(ctx context.Context, p core.Principal, companyID int64) error {
	if companyID <= 0 {
		return shared.ErrInvalidID
	}
	c, err := s.repo.Get(ctx, companyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return fmt.Errorf("company %d: %w", companyID, err)
		}
		return err
	}
	return s.authorizeLoaded(ctx, p, c)
}

func (s *Service) authorizeLoaded(ctx context.Context, p core.Principal, c Company) error {
	if p.IsAdmin() || c.OwnerID == p.UserID {
		return nil
	}
	ok, err := s.repo.IsEmployee(ctx, p.UserID, c.ID)
	if err != nil {
		return fmt.Errorf("check employee: %w", err)
	}
	if !ok {
		return core.ErrCompanyAccess
	}
	return nil
}

func (s *Service) requireOwner(ctx context.Context, p core.Principal, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsAdmin() && c.OwnerID != p.UserID {
		return core.ErrCompanyAccess
	}
	return nil
}

func (s *Service) record(ctx context.Context, p core.Principal, id int64, action string) {
	core.RecordQuietly(ctx, s.audit, s.logger, core.AuditLog{
		ActorID:   p.UserID,
		CompanyID: id,
		Action:    action,
		Entity:    "company",
		EntityID:  strconv.FormatInt(id, 10),
	})
}
