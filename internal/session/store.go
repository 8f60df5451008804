// Package session keeps per-account login state in Redis: the current token, the password
// version, the permission cache and the token blacklist.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	tokenKeyPrefix           = "auth:token:"
	passwordVersionKeyPrefix = "auth:passwordVersion:"
	permissionKeyPrefix      = "auth:permission:"
	blacklistKeyPrefix       = "token:blacklist:"

	scanBatch = 200
)

// TokenKey returns the key holding the current token of an account.
func TokenKey(accountID int64) string {
	return tokenKeyPrefix + strconv.FormatInt(accountID, 10)
}

// PasswordVersionKey returns the key holding the password version of an account.
func PasswordVersionKey(accountID int64) string {
	return passwordVersionKeyPrefix + strconv.FormatInt(accountID, 10)
}

// PermissionKey returns the key holding the cached permission list of an account.
func PermissionKey(accountID int64) string {
	return permissionKeyPrefix + strconv.FormatInt(accountID, 10)
}

// BlacklistKey returns the key marking a revoked token.
func BlacklistKey(token string) string {
	return blacklistKeyPrefix + token
}

// INCR only when the key exists. Returns 0 when nothing was bumped.
var bumpScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
	return redis.call("INCR", KEYS[1])
end
return 0
`)

// Store is the Redis-backed session registry.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// SetToken records token as the account's current token.
func (s *Store) SetToken(ctx context.Context, accountID int64, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, TokenKey(accountID), token, ttl).Err(); err != nil {
		return fmt.Errorf("session: set token: %w", err)
	}
	return nil
}

// GetToken returns the account's current token. ok is false when none is stored.
func (s *Store) GetToken(ctx context.Context, accountID int64) (token string, ok bool, err error) {
	token, err = s.client.Get(ctx, TokenKey(accountID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("session: get token: %w", err)
	}
	return token, true, nil
}

// SetPasswordVersion stores v without expiry.
func (s *Store) SetPasswordVersion(ctx context.Context, accountID int64, v int64) error {
	if err := s.client.Set(ctx, PasswordVersionKey(accountID), v, 0).Err(); err != nil {
		return fmt.Errorf("session: set password version: %w", err)
	}
	return nil
}

// GetPasswordVersion returns the stored password version. ok is false when none is stored.
func (s *Store) GetPasswordVersion(ctx context.Context, accountID int64) (v int64, ok bool, err error) {
	v, err = s.client.Get(ctx, PasswordVersionKey(accountID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("session: get password version: %w", err)
	}
	return v, true, nil
}

// BumpPasswordVersion increments the password version if one exists. Accounts without a
// stored version have no live session and are left alone. bumped reports whether it changed.
func (s *Store) BumpPasswordVersion(ctx context.Context, accountID int64) (bumped bool, err error) {
	n, err := bumpScript.Run(ctx, s.client, []string{PasswordVersionKey(accountID)}).Int64()
	if err != nil {
		return false, fmt.Errorf("session: bump password version: %w", err)
	}
	return n > 0, nil
}

// SetPermissionCache overwrites the cached permission list. The entry has no TTL.
func (s *Store) SetPermissionCache(ctx context.Context, accountID int64, perms []string) error {
	if perms == nil {
		perms = []string{}
	}
	payload, err := json.Marshal(perms)
	if err != nil {
		return fmt.Errorf("session: encode permissions: %w", err)
	}
	if err := s.client.Set(ctx, PermissionKey(accountID), payload, 0).Err(); err != nil {
		return fmt.Errorf("session: set permissions: %w", err)
	}
	return nil
}

// GetPermissionCache returns the cached permission list. ok is false on a cache miss.
func (s *Store) GetPermissionCache(ctx context.Context, accountID int64) (perms []string, ok bool, err error) {
	payload, err := s.client.Get(ctx, PermissionKey(accountID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("session: get permissions: %w", err)
	}
	if err := json.Unmarshal(payload, &perms); err != nil {
		return nil, false, fmt.Errorf("session: decode permissions: %w", err)
	}
	if perms == nil {
		perms = []string{}
	}
	return perms, true, nil
}

// DeletePermissionCache drops the cached permission list.
func (s *Store) DeletePermissionCache(ctx context.Context, accountID int64) error {
	if err := s.client.Del(ctx, PermissionKey(accountID)).Err(); err != nil {
		return fmt.Errorf("session: delete permissions: %w", err)
	}
	return nil
}

// ClearAccount removes the token, password version and permission cache of an account.
// The three deletes are independent; a failure part way leaves the remaining keys in place
// and the next login overwrites them.
func (s *Store) ClearAccount(ctx context.Context, accountID int64) error {
	for _, key := range []string{TokenKey(accountID), PasswordVersionKey(accountID), PermissionKey(accountID)} {
		if err := s.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("session: clear account %d: %w", accountID, err)
		}
	}
	return nil
}

// ClearAccounts clears several accounts in one round trip.
func (s *Store) ClearAccounts(ctx context.Context, accountIDs ...int64) error {
	if len(accountIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(accountIDs)*3)
	for _, id := range accountIDs {
		keys = append(keys, TokenKey(id), PasswordVersionKey(id), PermissionKey(id))
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("session: clear accounts: %w", err)
	}
	return nil
}

// Blacklist marks token as revoked for ttl. A non-positive ttl is a no-op since the token
// has already expired.
func (s *Store) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if token == "" || ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, BlacklistKey(token), token, ttl).Err(); err != nil {
		return fmt.Errorf("session: blacklist: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether token has been revoked.
func (s *Store) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	n, err := s.client.Exists(ctx, BlacklistKey(token)).Result()
	if err != nil {
		return false, fmt.Errorf("session: check blacklist: %w", err)
	}
	return n > 0, nil
}

// OnlineAccountIDs lists accounts holding a live token. It walks the token namespace with
// SCAN so large keyspaces do not block the server.
func (s *Store) OnlineAccountIDs(ctx context.Context) ([]int64, error) {
	var (
		ids    []int64
		cursor uint64
		seen   = make(map[int64]struct{})
	)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, tokenKeyPrefix+"*", scanBatch).Result()
		if err != nil {
			return nil, fmt.Errorf("session: scan tokens: %w", err)
		}
		for _, key := range keys {
			id, err := strconv.ParseInt(strings.TrimPrefix(key, tokenKeyPrefix), 10, 64)
			if err != nil {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
		cursor = next
		if cursor == 0 {
			return ids, nil
		}
	}
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
