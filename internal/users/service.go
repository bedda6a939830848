package users

import (
	"context"
	"slices"

	"github.com/vendorflow/vendorflow/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	UserGroups(ctx context.Context, userID int64) ([]string, error)
}

// AuditReader reads recent audit entries.
type AuditReader interface {
	Recent(ctx context.Context, companyID int64, limit int) ([]shared.AuditLog, error)
}

const recentActionsLimit = 10

// Service handles user business logic.
type Service struct {
	repo  RepositoryPort
	audit AuditReader
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, audit AuditReader) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// Groups lists the assignable group names.
func (s *Service) Groups() []string {
	return slices.Clone(shared.Groups)
}

// UserGroups satisfies rbac.GroupResolver.
func (s *Service) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	return s.repo.UserGroups(ctx, userID)
}

// RecentActions returns the newest audit entries of a company.
func (s *Service) RecentActions(ctx context.Context, companyID int64) ([]shared.AuditLog, error) {
	if s.audit == nil {
		return nil, nil
	}
	return s.audit.Recent(ctx, companyID, recentActionsLimit)
}
