package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/panelkit/panel/internal/platform/httpx"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/shared"
	"github.com/panelkit/panel/internal/token"
)

// initialPasswordVersion is written at every login.
const initialPasswordVersion = 1

// SessionStore is the slice of the session registry the auth service writes.
type SessionStore interface {
	SetToken(ctx context.Context, accountID int64, token string, ttl time.Duration) error
	SetPasswordVersion(ctx context.Context, accountID int64, v int64) error
	BumpPasswordVersion(ctx context.Context, accountID int64) (bool, error)
	ClearAccount(ctx context.Context, accountID int64) error
	Blacklist(ctx context.Context, token string, ttl time.Duration) error
}

// PermissionResolver resolves roles and permission sets.
type PermissionResolver interface {
	ResolveRoleIDs(ctx context.Context, accountID int64) ([]int64, error)
	ResolveRoleValues(ctx context.Context, roleIDs []int64) ([]string, error)
	Permissions(ctx context.Context, accountID int64) (rbac.PermissionSet, error)
	EnumerateAll(ctx context.Context) ([]string, error)
}

// Config holds auth behaviour switches.
type Config struct {
	MultiDeviceLogin bool
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	sessions SessionStore
	resolver PermissionResolver
	codec    *token.Codec
	cfg      Config
	logger   *slog.Logger
}

// NewService constructs a new Service.
func NewService(repo Repository, sessions SessionStore, resolver PermissionResolver, codec *token.Codec, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		sessions: sessions,
		resolver: resolver,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
	}
}

// Login validates credentials and opens a session. Unknown accounts, disabled accounts and
// wrong passwords all fail with the same error.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	account, err := s.repo.FindByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		if errors.Is(err, shared.ErrAccountNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !account.Enabled() || !VerifyPassword(account.PasswordHash, password) {
		return nil, shared.ErrInvalidCredentials
	}

	roleIDs, err := s.resolver.ResolveRoleIDs(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.ResolveRoleValues(ctx, roleIDs)
	if err != nil {
		return nil, err
	}

	signed, err := s.codec.Sign(token.Claims{
		AccountID:       account.ID,
		PasswordVersion: initialPasswordVersion,
		Roles:           roles,
	})
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetToken(ctx, account.ID, signed, s.codec.Expiry()); err != nil {
		return nil, err
	}
	if err := s.sessions.SetPasswordVersion(ctx, account.ID, initialPasswordVersion); err != nil {
		return nil, err
	}

	s.logger.Info("login", slog.Int64("account_id", account.ID))
	return &LoginResult{
		Account: account,
		Token: TokenPayload{
			AccessToken: signed,
			ExpiresIn:   int64(s.codec.Expiry().Seconds()),
		},
	}, nil
}

// Logout revokes rawToken for the rest of its lifetime. Without multi-device login the whole
// session is cleared. With it, the token slot and password version stay in place so other
// devices keep receiving permission refreshes.
func (s *Service) Logout(ctx context.Context, identity *shared.Identity, rawToken string) error {
	if identity == nil {
		return shared.ErrUnauthorized
	}
	ttl := s.codec.RemainingTTL(identity.ExpiresAt)
	if ttl <= 0 {
		ttl = s.codec.Expiry()
	}
	if err := s.sessions.Blacklist(ctx, rawToken, ttl); err != nil {
		return err
	}
	if !s.cfg.MultiDeviceLogin {
		if err := s.sessions.ClearAccount(ctx, identity.AccountID); err != nil {
			return err
		}
	}
	s.logger.Info("logout", slog.Int64("account_id", identity.AccountID))
	return nil
}

// Permissions returns the effective permissions of an account, cache first. Administrators
// get every permission defined in the menu tree.
func (s *Service) Permissions(ctx context.Context, accountID int64) (rbac.PermissionSet, error) {
	set, err := s.resolver.Permissions(ctx, accountID)
	if err != nil {
		return rbac.PermissionSet{}, err
	}
	if !set.All {
		return set, nil
	}
	all, err := s.resolver.EnumerateAll(ctx)
	if err != nil {
		return rbac.PermissionSet{}, err
	}
	return rbac.PermissionSet{All: true, Values: all}, nil
}

// Register creates an enabled account with no roles.
func (s *Service) Register(ctx context.Context, reg Registration) (*Account, error) {
	username := NormalizeUsername(reg.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", httpx.ErrValidation)
	}
	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, shared.ErrAccountExists
	} else if !errors.Is(err, shared.ErrAccountNotFound) {
		return nil, err
	}
	hash, err := HashPassword(reg.Password)
	if err != nil {
		return nil, err
	}
	account := &Account{
		Username:     username,
		PasswordHash: hash,
		Nickname:     reg.Nickname,
		Email:        reg.Email,
		Status:       StatusEnabled,
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return nil, err
	}
	s.logger.Info("account registered", slog.Int64("account_id", account.ID))
	return account, nil
}

// Profile returns the account with its current role values.
func (s *Service) Profile(ctx context.Context, accountID int64) (*Profile, error) {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	roleIDs, err := s.resolver.ResolveRoleIDs(ctx, accountID)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.ResolveRoleValues(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	return &Profile{Account: account, Roles: roles}, nil
}

// ChangePassword replaces the caller's password after checking the current one and bumps
// the password version so every token issued before the change stops working.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, oldPassword, newPassword string) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return err
	}
	if !VerifyPassword(account.PasswordHash, oldPassword) {
		return shared.ErrPasswordMismatch
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, accountID, hash); err != nil {
		return err
	}
	if _, err := s.sessions.BumpPasswordVersion(ctx, accountID); err != nil {
		return err
	}
	s.logger.Info("password changed", slog.Int64("account_id", accountID))
	return nil
}
