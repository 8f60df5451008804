// Package menus manages the menu tree that grants permissions to roles.
package menus

import (
	"context"
	"errors"
	"log/slog"

	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

// RepositoryPort defines data access methods for menus.
type RepositoryPort interface {
	List(ctx context.Context) ([]rbac.Menu, error)
	ListNavigable(ctx context.Context, roleIDs []int64) ([]rbac.Menu, error)
	Get(ctx context.Context, id int64) (*rbac.Menu, error)
	FindChildMenus(ctx context.Context, id int64) ([]rbac.Menu, error)
	Create(ctx context.Context, m rbac.Menu) (int64, error)
	Update(ctx context.Context, m rbac.Menu) error
	Delete(ctx context.Context, ids []int64) error
}

// RoleSource resolves the roles of an account.
type RoleSource interface {
	ResolveRoleIDs(ctx context.Context, accountID int64) ([]int64, error)
}

// Service handles menu business logic.
type Service struct {
	repo      RepositoryPort
	roles     RoleSource
	refresher rbac.Refresher
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, roles RoleSource, refresher rbac.Refresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, roles: roles, refresher: refresher, logger: logger}
}

// Check validates the placement of m in the tree. Permission nodes need a parent, menus may
// only sit under groups, and nothing may sit under a permission node or itself.
func (s *Service) Check(ctx context.Context, m rbac.Menu) error {
	if m.ParentID == nil {
		if m.Type == rbac.MenuTypePermission {
			return shared.ErrPermissionRequiresParent
		}
		return nil
	}
	if m.ID != 0 && *m.ParentID == m.ID {
		return shared.ErrIllegalMenuParent
	}
	parent, err := s.repo.Get(ctx, *m.ParentID)
	if err != nil {
		if errors.Is(err, shared.ErrMenuNotFound) {
			return shared.ErrParentMenuNotFound
		}
		return err
	}
	switch {
	case parent.Type == rbac.MenuTypePermission:
		return shared.ErrIllegalMenuParent
	case m.Type == rbac.MenuTypeMenu && parent.Type == rbac.MenuTypeMenu:
		return shared.ErrIllegalMenuParent
	}
	if m.ID == 0 {
		return nil
	}
	descendants, err := s.repo.FindChildMenus(ctx, m.ID)
	if err != nil {
		return err
	}
	for _, d := range descendants {
		if d.ID == parent.ID {
			return shared.ErrIllegalMenuParent
		}
	}
	return nil
}

// Tree returns the whole menu tree.
func (s *Service) Tree(ctx context.Context) ([]*rbac.Menu, error) {
	flat, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return BuildTree(flat), nil
}

// Get returns one node.
func (s *Service) Get(ctx context.Context, id int64) (*rbac.Menu, error) {
	return s.repo.Get(ctx, id)
}

// AccountMenus returns the navigable tree of an account. Administrators see every node.
func (s *Service) AccountMenus(ctx context.Context, accountID int64) ([]*rbac.Menu, error) {
	roleIDs, err := s.roles.ResolveRoleIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if rbac.IsAdmin(roleIDs) {
		roleIDs = nil
	} else if roleIDs == nil {
		roleIDs = []int64{}
	}
	flat, err := s.repo.ListNavigable(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	return BuildTree(flat), nil
}

// Create adds a node.
func (s *Service) Create(ctx context.Context, m rbac.Menu) (*rbac.Menu, error) {
	m.ID = 0
	if err := s.Check(ctx, m); err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, err
	}
	m.ID = id
	if m.GrantsPermissions() {
		if err := s.refresher.RefreshAll(ctx); err != nil {
			return nil, err
		}
	}
	s.logger.Info("menu created", slog.Int64("menu_id", id))
	return s.repo.Get(ctx, id)
}

// Update rewrites a node. Online sessions are refreshed when the node grants permissions
// before or after the change.
func (s *Service) Update(ctx context.Context, m rbac.Menu) error {
	current, err := s.repo.Get(ctx, m.ID)
	if err != nil {
		return err
	}
	if err := s.Check(ctx, m); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	if current.GrantsPermissions() || m.GrantsPermissions() || current.Status != m.Status {
		if err := s.refresher.RefreshAll(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("menu updated", slog.Int64("menu_id", m.ID))
	return nil
}

// Delete removes a node together with its descendants.
func (s *Service) Delete(ctx context.Context, id int64) error {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	children, err := s.repo.FindChildMenus(ctx, id)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(children)+1)
	ids = append(ids, id)
	refresh := current.GrantsPermissions()
	for _, c := range children {
		ids = append(ids, c.ID)
		refresh = refresh || c.GrantsPermissions()
	}
	if err := s.repo.Delete(ctx, ids); err != nil {
		return err
	}
	if refresh {
		if err := s.refresher.RefreshAll(ctx); err != nil {
			return err
		}
	}
	s.logger.Info("menu deleted", slog.Int64("menu_id", id), slog.Int("removed", len(ids)))
	return nil
}
