package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client), mr
}

func TestKeyNames(t *testing.T) {
	assert.Equal(t, "auth:token:7", TokenKey(7))
	assert.Equal(t, "auth:passwordVersion:7", PasswordVersionKey(7))
	assert.Equal(t, "auth:permission:7", PermissionKey(7))
	assert.Equal(t, "token:blacklist:abc", BlacklistKey("abc"))
}

func TestTokenSlot(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetToken(ctx, 1, "t1", time.Hour))
	require.NoError(t, store.SetToken(ctx, 1, "t2", time.Hour))
	got, ok, err := store.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "t2", got)
	assert.Equal(t, time.Hour, mr.TTL(TokenKey(1)))

	mr.FastForward(time.Hour + time.Second)
	_, ok, err = store.GetToken(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPasswordVersion(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	bumped, err := store.BumpPasswordVersion(ctx, 3)
	require.NoError(t, err)
	assert.False(t, bumped)
	assert.False(t, mr.Exists(PasswordVersionKey(3)), "bump must not create a version")

	require.NoError(t, store.SetPasswordVersion(ctx, 3, 1))
	bumped, err = store.BumpPasswordVersion(ctx, 3)
	require.NoError(t, err)
	assert.True(t, bumped)

	v, ok, err := store.GetPasswordVersion(ctx, 3)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
	assert.Zero(t, mr.TTL(PasswordVersionKey(3)))

	require.NoError(t, store.SetPasswordVersion(ctx, 3, 1))
	v, _, err = store.GetPasswordVersion(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestPermissionCache(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetPermissionCache(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetPermissionCache(ctx, 5, []string{"system:user:list", "system:role:list"}))
	raw, err := mr.Get(PermissionKey(5))
	require.NoError(t, err)
	assert.JSONEq(t, `["system:user:list","system:role:list"]`, raw)

	perms, ok, err := store.GetPermissionCache(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"system:user:list", "system:role:list"}, perms)

	require.NoError(t, store.SetPermissionCache(ctx, 5, nil))
	perms, ok, err = store.GetPermissionCache(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok, "an empty set is still a cache hit")
	assert.Empty(t, perms)

	require.NoError(t, store.DeletePermissionCache(ctx, 5))
	_, ok, err = store.GetPermissionCache(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPermissionCacheCorrupt(t *testing.T) {
	store, mr := newTestStore(t)
	require.NoError(t, mr.Set(PermissionKey(5), "{not json"))

	_, _, err := store.GetPermissionCache(context.Background(), 5)
	require.Error(t, err)
	assert.False(t, IsUnavailable(err))
}

func TestClearAccount(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetToken(ctx, 9, "tok", time.Hour))
	require.NoError(t, store.SetPasswordVersion(ctx, 9, 1))
	require.NoError(t, store.SetPermissionCache(ctx, 9, []string{"a"}))
	require.NoError(t, store.SetToken(ctx, 10, "other", time.Hour))

	require.NoError(t, store.ClearAccount(ctx, 9))
	assert.False(t, mr.Exists(TokenKey(9)))
	assert.False(t, mr.Exists(PasswordVersionKey(9)))
	assert.False(t, mr.Exists(PermissionKey(9)))
	assert.True(t, mr.Exists(TokenKey(10)))

	// clearing an account with nothing stored is fine
	require.NoError(t, store.ClearAccount(ctx, 404))
}

func TestClearAccounts(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, store.SetToken(ctx, id, fmt.Sprintf("t%d", id), time.Hour))
		require.NoError(t, store.SetPasswordVersion(ctx, id, 1))
	}
	require.NoError(t, store.ClearAccounts(ctx, 1, 3))
	require.NoError(t, store.ClearAccounts(ctx))

	assert.False(t, mr.Exists(TokenKey(1)))
	assert.False(t, mr.Exists(PasswordVersionKey(3)))
	assert.True(t, mr.Exists(TokenKey(2)))
	assert.True(t, mr.Exists(PasswordVersionKey(2)))
}

func TestBlacklist(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	listed, err := store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, store.Blacklist(ctx, "tok", 30*time.Second))
	listed, err = store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, listed)
	assert.Equal(t, 30*time.Second, mr.TTL(BlacklistKey("tok")))

	mr.FastForward(31 * time.Second)
	listed, err = store.IsBlacklisted(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, listed)

	require.NoError(t, store.Blacklist(ctx, "expired", 0))
	assert.False(t, mr.Exists(BlacklistKey("expired")))
}

func TestOnlineAccountIDs(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	ids, err := store.OnlineAccountIDs(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	for i := int64(1); i <= 450; i++ {
		require.NoError(t, store.SetToken(ctx, i, "t", time.Hour))
	}
	require.NoError(t, store.SetPasswordVersion(ctx, 999, 1))
	require.NoError(t, mr.Set("auth:token:not-a-number", "x"))

	ids, err = store.OnlineAccountIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 450)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	assert.Equal(t, int64(1), ids[0])
	assert.Equal(t, int64(450), ids[449])
}

func TestIsUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, _, err := store.GetToken(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	assert.False(t, IsUnavailable(nil))
	assert.False(t, IsUnavailable(errors.New("WRONGTYPE")))
	assert.True(t, IsUnavailable(fmt.Errorf("wrapped: %w", &net.OpError{Op: "dial", Err: errors.New("refused")})))
	assert.True(t, IsUnavailable(redis.ErrClosed))
}
