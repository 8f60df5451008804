package rbac

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const defaultRefreshConcurrency = 8

// Cache is the slice of the session store the resolver reads and writes.
type Cache interface {
	GetToken(ctx context.Context, accountID int64) (string, bool, error)
	GetPermissionCache(ctx context.Context, accountID int64) ([]string, bool, error)
	SetPermissionCache(ctx context.Context, accountID int64, perms []string) error
	DeletePermissionCache(ctx context.Context, accountID int64) error
	OnlineAccountIDs(ctx context.Context) ([]int64, error)
}

// RefreshObserver receives the outcome of each refresh, scope being "one" or "all".
type RefreshObserver interface {
	ObservePermissionRefresh(scope string, err error)
}

// Resolver computes effective permission sets from the role/menu graph and keeps the
// per-account cache in step with it.
type Resolver struct {
	repo        Repository
	cache       Cache
	logger      *slog.Logger
	concurrency int
	observer    RefreshObserver
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithConcurrency bounds the RefreshAll fan-out.
func WithConcurrency(n int) ResolverOption {
	return func(r *Resolver) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithObserver reports refresh outcomes, typically to metrics.
func WithObserver(o RefreshObserver) ResolverOption {
	return func(r *Resolver) {
		r.observer = o
	}
}

// NewResolver constructs a Resolver.
func NewResolver(repo Repository, cache Cache, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		repo:        repo,
		cache:       cache,
		logger:      slog.Default(),
		concurrency: defaultRefreshConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveRoleIDs returns the role ids assigned to an account.
func (r *Resolver) ResolveRoleIDs(ctx context.Context, accountID int64) ([]int64, error) {
	return r.repo.RoleIDsByAccount(ctx, accountID)
}

// ResolveRoleValues returns the role value tokens for roleIDs.
func (r *Resolver) ResolveRoleValues(ctx context.Context, roleIDs []int64) ([]string, error) {
	return r.repo.RoleValues(ctx, roleIDs)
}

// ResolvePermissions computes the permission set of an account from the database.
// Holders of the root role get the All set without any menu lookup.
func (r *Resolver) ResolvePermissions(ctx context.Context, accountID int64) (PermissionSet, error) {
	roleIDs, err := r.repo.RoleIDsByAccount(ctx, accountID)
	if err != nil {
		return PermissionSet{}, err
	}
	if IsAdmin(roleIDs) {
		return AllPermissions(), nil
	}
	if len(roleIDs) == 0 {
		return PermissionSet{Values: []string{}}, nil
	}
	raw, err := r.repo.PermissionsByRoles(ctx, roleIDs)
	if err != nil {
		return PermissionSet{}, err
	}
	return NewPermissionSet(raw...), nil
}

// Permissions returns the cached set of an account, resolving and caching it on a miss.
// Administrator sets are never cached.
func (r *Resolver) Permissions(ctx context.Context, accountID int64) (PermissionSet, error) {
	cached, ok, err := r.cache.GetPermissionCache(ctx, accountID)
	if err != nil {
		return PermissionSet{}, err
	}
	if ok {
		return PermissionSet{Values: cached}, nil
	}
	set, err := r.ResolvePermissions(ctx, accountID)
	if err != nil {
		return PermissionSet{}, err
	}
	if !set.All {
		if err := r.cache.SetPermissionCache(ctx, accountID, set.Values); err != nil {
			return PermissionSet{}, err
		}
	}
	return set, nil
}

// EnumerateAll lists every permission string defined in the menu tree.
func (r *Resolver) EnumerateAll(ctx context.Context) ([]string, error) {
	raw, err := r.repo.AllPermissions(ctx)
	if err != nil {
		return nil, err
	}
	return SplitPermissions(raw...), nil
}

// RefreshOne recomputes the cached set of an account that currently holds a live token.
// Offline accounts are skipped.
func (r *Resolver) RefreshOne(ctx context.Context, accountID int64) (err error) {
	defer func() { r.observe("one", err) }()
	return r.refresh(ctx, accountID)
}

func (r *Resolver) refresh(ctx context.Context, accountID int64) error {
	_, online, err := r.cache.GetToken(ctx, accountID)
	if err != nil {
		return err
	}
	if !online {
		return nil
	}
	set, err := r.ResolvePermissions(ctx, accountID)
	if err != nil {
		return err
	}
	if set.All {
		return r.cache.DeletePermissionCache(ctx, accountID)
	}
	return r.cache.SetPermissionCache(ctx, accountID, set.Values)
}

// RefreshAll refreshes every online account with bounded concurrency. The first failure
// cancels the remaining work.
func (r *Resolver) RefreshAll(ctx context.Context) (err error) {
	defer func() { r.observe("all", err) }()

	ids, err := r.cache.OnlineAccountIDs(ctx)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, id := range ids {
		g.Go(func() error {
			if err := r.refresh(gctx, id); err != nil {
				return fmt.Errorf("rbac: refresh account %d: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.logger.Debug("permissions refreshed", slog.Int("accounts", len(ids)))
	return nil
}

func (r *Resolver) observe(scope string, err error) {
	if err != nil {
		r.logger.Warn("permission refresh failed", slog.String("scope", scope), slog.Any("error", err))
	}
	if r.observer != nil {
		r.observer.ObservePermissionRefresh(scope, err)
	}
}

var _ Refresher = (*Resolver)(nil)
