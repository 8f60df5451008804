package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/session"
	"github.com/panelkit/panel/internal/shared"
	"github.com/panelkit/panel/internal/token"
	"github.com/panelkit/panel/internal/token/tokentest"
)

type stubRepo struct {
	mu       sync.Mutex
	nextID   int64
	accounts map[int64]*auth.Account
}

func newStubRepo() *stubRepo {
	return &stubRepo{nextID: 1, accounts: map[int64]*auth.Account{}}
}

func (s *stubRepo) add(t *testing.T, username, password string, status int) *auth.Account {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	account := &auth.Account{Username: username, PasswordHash: hash, Status: status}
	require.NoError(t, s.Create(context.Background(), account))
	return account
}

func (s *stubRepo) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Username == username {
			cp := *a
			return &cp, nil
		}
	}
	return nil, shared.ErrAccountNotFound
}

func (s *stubRepo) FindByID(_ context.Context, id int64) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, shared.ErrAccountNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *stubRepo) Create(_ context.Context, account *auth.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.ID = s.nextID
	s.nextID++
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *stubRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return shared.ErrAccountNotFound
	}
	a.PasswordHash = hash
	return nil
}

// stubResolver maps accounts to role values and permissions.
type stubResolver struct {
	roles map[int64][]string
	perms map[int64][]string
	all   []string
}

func (s *stubResolver) ResolveRoleIDs(_ context.Context, accountID int64) ([]int64, error) {
	ids := []int64{}
	for i := range s.roles[accountID] {
		ids = append(ids, accountID*100+int64(i))
	}
	return ids, nil
}

func (s *stubResolver) ResolveRoleValues(_ context.Context, roleIDs []int64) ([]string, error) {
	out := []string{}
	for _, id := range roleIDs {
		out = append(out, s.roles[id/100][id%100])
	}
	return out, nil
}

func (s *stubResolver) Permissions(_ context.Context, accountID int64) (rbac.PermissionSet, error) {
	if rbac.HasAdminRole(s.roles[accountID]) {
		return rbac.PermissionSet{All: true}, nil
	}
	return rbac.PermissionSet{Values: s.perms[accountID]}, nil
}

func (s *stubResolver) EnumerateAll(context.Context) ([]string, error) {
	return s.all, nil
}

type fixture struct {
	service  *auth.Service
	repo     *stubRepo
	resolver *stubResolver
	store    *session.Store
	codec    *token.Codec
	mr       *miniredis.Miniredis
}

func newFixture(t *testing.T, multiDevice bool, opts ...token.Option) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := session.NewStore(client)
	repo := newStubRepo()
	resolver := &stubResolver{roles: map[int64][]string{}, perms: map[int64][]string{}}
	codec := tokentest.NewCodec(t, time.Hour, opts...)
	service := auth.NewService(repo, store, resolver, codec, auth.Config{MultiDeviceLogin: multiDevice}, nil)
	return &fixture{service: service, repo: repo, resolver: resolver, store: store, codec: codec, mr: mr}
}

func TestLoginIssuesTokenAndOpensSession(t *testing.T) {
	f := newFixture(t, true)
	account := f.repo.add(t, "alice", "secret1", auth.StatusEnabled)
	f.resolver.roles[account.ID] = []string{"editor"}
	ctx := context.Background()

	result, err := f.service.Login(ctx, "  alice ", "secret1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, result.Account.ID)
	assert.Equal(t, int64(3600), result.Token.ExpiresIn)

	claims, err := f.codec.Verify(result.Token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, int64(1), claims.PasswordVersion)
	assert.Equal(t, []string{"editor"}, claims.Roles)

	current, ok, err := f.store.GetToken(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, result.Token.AccessToken, current)
	assert.InDelta(t, time.Hour.Seconds(), f.mr.TTL(session.TokenKey(account.ID)).Seconds(), 1)

	pv, ok, err := f.store.GetPasswordVersion(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), pv)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, true)
	f.repo.add(t, "bob", "secret1", auth.StatusEnabled)
	f.repo.add(t, "carol", "secret1", auth.StatusDisabled)
	ctx := context.Background()

	cases := map[string][2]string{
		"unknown":  {"nobody", "secret1"},
		"wrong":    {"bob", "nope"},
		"disabled": {"carol", "secret1"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.service.Login(ctx, c[0], c[1])
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestLogoutBlacklistsForRemainingLifetime(t *testing.T) {
	f := newFixture(t, true)
	account := f.repo.add(t, "dave", "secret1", auth.StatusEnabled)
	ctx := context.Background()
	result, err := f.service.Login(ctx, "dave", "secret1")
	require.NoError(t, err)

	id := &shared.Identity{AccountID: account.ID, Token: result.Token.AccessToken, ExpiresAt: time.Now().Add(10 * time.Minute)}
	require.NoError(t, f.service.Logout(ctx, id, id.Token))

	revoked, err := f.store.IsBlacklisted(ctx, id.Token)
	require.NoError(t, err)
	assert.True(t, revoked)
	ttl := f.mr.TTL(session.BlacklistKey(id.Token))
	assert.True(t, ttl > 9*time.Minute && ttl <= 10*time.Minute, "ttl %s", ttl)

	// other devices stay online for permission refreshes
	_, ok, err := f.store.GetToken(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = f.store.GetPasswordVersion(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogoutMeasuresLifetimeOnCodecClock(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	f := newFixture(t, true, token.WithClock(func() time.Time { return issued }))
	ctx := context.Background()

	id := &shared.Identity{AccountID: 1, ExpiresAt: issued.Add(10 * time.Minute)}
	require.NoError(t, f.service.Logout(ctx, id, "raw-token"))
	assert.Equal(t, 10*time.Minute, f.mr.TTL(session.BlacklistKey("raw-token")))
}

func TestLogoutKeepsNewerSessionWithMultiDevice(t *testing.T) {
	f := newFixture(t, true)
	account := f.repo.add(t, "erin", "secret1", auth.StatusEnabled)
	ctx := context.Background()
	first, err := f.service.Login(ctx, "erin", "secret1")
	require.NoError(t, err)
	second, err := f.service.Login(ctx, "erin", "secret1")
	require.NoError(t, err)

	id := &shared.Identity{AccountID: account.ID, Token: first.Token.AccessToken}
	require.NoError(t, f.service.Logout(ctx, id, id.Token))

	current, ok, err := f.store.GetToken(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, second.Token.AccessToken, current)
}

func TestLogoutClearsAccountWithoutMultiDevice(t *testing.T) {
	f := newFixture(t, false)
	account := f.repo.add(t, "frank", "secret1", auth.StatusEnabled)
	ctx := context.Background()
	result, err := f.service.Login(ctx, "frank", "secret1")
	require.NoError(t, err)

	id := &shared.Identity{AccountID: account.ID, Token: result.Token.AccessToken}
	require.NoError(t, f.service.Logout(ctx, id, id.Token))

	_, ok, err := f.store.GetPasswordVersion(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, f.service.Logout(ctx, nil, ""), shared.ErrUnauthorized)
}

func TestRegister(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	account, err := f.service.Register(ctx, auth.Registration{Username: " grace ", Password: "secret1", Nickname: "G"})
	require.NoError(t, err)
	assert.Equal(t, "grace", account.Username)
	assert.Equal(t, auth.StatusEnabled, account.Status)
	assert.True(t, auth.VerifyPassword(account.PasswordHash, "secret1"))

	_, err = f.service.Register(ctx, auth.Registration{Username: "grace", Password: "other1"})
	assert.ErrorIs(t, err, shared.ErrAccountExists)

	_, err = f.service.Register(ctx, auth.Registration{Username: "   ", Password: "other1"})
	assert.Error(t, err)
}

func TestChangePasswordBumpsVersion(t *testing.T) {
	f := newFixture(t, true)
	account := f.repo.add(t, "heidi", "secret1", auth.StatusEnabled)
	ctx := context.Background()
	_, err := f.service.Login(ctx, "heidi", "secret1")
	require.NoError(t, err)

	err = f.service.ChangePassword(ctx, account.ID, "wrong", "secret2")
	assert.ErrorIs(t, err, shared.ErrPasswordMismatch)

	require.NoError(t, f.service.ChangePassword(ctx, account.ID, "secret1", "secret2"))
	pv, ok, err := f.store.GetPasswordVersion(ctx, account.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), pv)

	_, err = f.service.Login(ctx, "heidi", "secret2")
	assert.NoError(t, err)
}

func TestPermissionsExpandsAdmin(t *testing.T) {
	f := newFixture(t, true)
	f.resolver.roles[1] = []string{rbac.RootRoleValue}
	f.resolver.roles[2] = []string{"viewer"}
	f.resolver.perms[2] = []string{"system:user:list"}
	f.resolver.all = []string{"system:user:list", "system:role:list"}
	ctx := context.Background()

	set, err := f.service.Permissions(ctx, 1)
	require.NoError(t, err)
	assert.True(t, set.All)
	assert.Equal(t, f.resolver.all, set.Values)

	set, err = f.service.Permissions(ctx, 2)
	require.NoError(t, err)
	assert.False(t, set.All)
	assert.Equal(t, []string{"system:user:list"}, set.Values)
}

func TestProfile(t *testing.T) {
	f := newFixture(t, true)
	account := f.repo.add(t, "ivan", "secret1", auth.StatusEnabled)
	f.resolver.roles[account.ID] = []string{"editor", "viewer"}

	profile, err := f.service.Profile(context.Background(), account.ID)
	require.NoError(t, err)
	assert.Equal(t, "ivan", profile.Username)
	assert.Equal(t, []string{"editor", "viewer"}, profile.Roles)

	_, err = f.service.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, shared.ErrAccountNotFound)
}
