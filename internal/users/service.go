package users

import (
	"context"
	"log/slog"

	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter, page shared.Page) ([]User, int, error)
	Get(ctx context.Context, id int64) (*User, error)
	Create(ctx context.Context, in NewUser) (int64, error)
	ReplaceRoles(ctx context.Context, id int64, roleIDs []int64) error
	UpdateStatus(ctx context.Context, ids []int64, status int) (int64, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	HoldersOfRole(ctx context.Context, roleID int64, ids []int64) ([]int64, error)
	Delete(ctx context.Context, ids []int64) (int64, error)
}

// Sessions is the slice of the session store that account administration invalidates.
type Sessions interface {
	ClearAccount(ctx context.Context, accountID int64) error
	ClearAccounts(ctx context.Context, accountIDs ...int64) error
	BumpPasswordVersion(ctx context.Context, accountID int64) (bool, error)
}

// Service handles user business logic.
type Service struct {
	repo      RepositoryPort
	sessions  Sessions
	refresher rbac.Refresher
	logger    *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, sessions Sessions, refresher rbac.Refresher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, refresher: refresher, logger: logger}
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, filter ListFilter, page shared.Page) ([]User, shared.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter, page)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return users, shared.NewPagination(page.Page, page.PageSize, total), nil
}

// Get returns one user.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.Get(ctx, id)
}

// Create adds an account with the given roles.
func (s *Service) Create(ctx context.Context, username, password, nickname, email string, roleIDs []int64) (*User, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	id, err := s.repo.Create(ctx, NewUser{
		Username:     auth.NormalizeUsername(username),
		PasswordHash: hash,
		Nickname:     nickname,
		Email:        email,
		Status:       auth.StatusEnabled,
		RoleIDs:      roleIDs,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// ResetPassword sets a new password on behalf of the account owner and invalidates the
// tokens it holds.
func (s *Service) ResetPassword(ctx context.Context, id int64, password string) error {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return err
	}
	if _, err := s.sessions.BumpPasswordVersion(ctx, id); err != nil {
		return err
	}
	s.logger.Info("password reset", slog.Int64("account_id", id))
	return nil
}

// UpdateStatus enables or disables an account. Disabling ends its session.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status int) error {
	n, err := s.repo.UpdateStatus(ctx, []int64{id}, status)
	if err != nil {
		return err
	}
	if n == 0 {
		return shared.ErrAccountNotFound
	}
	if status == auth.StatusDisabled {
		return s.sessions.ClearAccount(ctx, id)
	}
	return nil
}

// DisableMany disables several accounts and ends their sessions.
func (s *Service) DisableMany(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := s.repo.UpdateStatus(ctx, ids, auth.StatusDisabled); err != nil {
		return err
	}
	return s.sessions.ClearAccounts(ctx, ids...)
}

// AssignRoles replaces the roles of an account and refreshes its cached permissions.
func (s *Service) AssignRoles(ctx context.Context, id int64, roleIDs []int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.ReplaceRoles(ctx, id, roleIDs); err != nil {
		return err
	}
	return s.refresher.RefreshOne(ctx, id)
}

// Delete removes accounts. Holders of the root role cannot be deleted.
func (s *Service) Delete(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	roots, err := s.repo.HoldersOfRole(ctx, rbac.RootRoleID, ids)
	if err != nil {
		return err
	}
	if len(roots) > 0 {
		return shared.ErrRootAccount
	}
	if _, err := s.repo.Delete(ctx, ids); err != nil {
		return err
	}
	return s.sessions.ClearAccounts(ctx, ids...)
}
