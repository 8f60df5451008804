package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, page shared.Page) ([]rbac.Role, int, error)
	Get(ctx context.Context, id int64) (*rbac.Role, error)
	Create(ctx context.Context, in Input) (int64, error)
	Update(ctx context.Context, id int64, in Input) error
	CountAccounts(ctx context.Context, id int64) (int, error)
	Delete(ctx context.Context, id int64) error
}

// Service handles role business logic. Every write that changes the role graph refreshes
// the permission caches of online accounts.
type Service struct {
	repo      RepositoryPort
	refresher rbac.Refresher
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, refresher rbac.Refresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, refresher: refresher, logger: logger}
}

// List returns one page of roles.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]rbac.Role, shared.Pagination, error) {
	roles, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return roles, shared.NewPagination(page.Page, page.PageSize, total), nil
}

// Get returns a role with its menu ids.
func (s *Service) Get(ctx context.Context, id int64) (*rbac.Role, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a role and refreshes online accounts.
func (s *Service) Create(ctx context.Context, in Input) (*rbac.Role, error) {
	in.Value = strings.TrimSpace(in.Value)
	id, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	if err := s.refresher.RefreshAll(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("role created", slog.Int64("role_id", id))
	return s.repo.Get(ctx, id)
}

// Update rewrites a role. The root role keeps its value and stays enabled.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	in.Value = strings.TrimSpace(in.Value)
	if id == rbac.RootRoleID {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}
		if in.Value != current.Value || in.Status != current.Status {
			return shared.ErrRootRoleImmutable
		}
	}
	if err := s.repo.Update(ctx, id, in); err != nil {
		return err
	}
	if err := s.refresher.RefreshAll(ctx); err != nil {
		return err
	}
	s.logger.Info("role updated", slog.Int64("role_id", id))
	return nil
}

// Delete removes a role that no account holds. The root role cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id == rbac.RootRoleID {
		return shared.ErrRootRoleImmutable
	}
	n, err := s.repo.CountAccounts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return shared.ErrRoleInUse
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.refresher.RefreshAll(ctx); err != nil {
		return err
	}
	s.logger.Info("role deleted", slog.Int64("role_id", id))
	return nil
}
