package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warden/warden/internal/model"
)

const (
	// userCachePrefix is the Redis key prefix for cached user records.
	userCachePrefix = "principal:user:"
	// apiKeyCachePrefix is the Redis key prefix for cached API key records, by key hash.
	apiKeyCachePrefix = "principal:key:"

	// tombstone replaces invalidated entries for tombstoneTTL. Fills use SETNX,
	// so a read that started before the invalidation cannot write its stale copy back.
	tombstone    = "-"
	tombstoneTTL = 5 * time.Second
)

// cachedUser is the stored form of a user. The password hash is never cached;
// login always reads the store.
type cachedUser struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"full_name,omitempty"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// cachedAPIKey is the stored form of an API key.
type cachedAPIKey struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	KeyHash   string     `json:"key_hash"`
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// GetUser retrieves a cached user by ID.
// Returns nil if not found (cache miss).
func (c *Cache) GetUser(ctx context.Context, id string) (*model.User, error) {
	data, err := c.client.Get(ctx, userCachePrefix+id).Bytes()
	if err != nil || string(data) == tombstone {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedUser
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.User{
		ID:          cached.ID,
		Email:       cached.Email,
		Username:    cached.Username,
		FullName:    cached.FullName,
		IsActive:    cached.IsActive,
		IsSuperuser: cached.IsSuperuser,
		CreatedAt:   cached.CreatedAt,
		UpdatedAt:   cached.UpdatedAt,
	}, nil
}

// SetUser caches a user record unless an entry or tombstone is already present.
func (c *Cache) SetUser(ctx context.Context, user *model.User) error {
	data, err := json.Marshal(cachedUser{
		ID:          user.ID,
		Email:       user.Email,
		Username:    user.Username,
		FullName:    user.FullName,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}

	return c.client.SetNX(ctx, userCachePrefix+user.ID, data, c.ttl).Err()
}

// DeleteUsers invalidates cached user records.
// Used whenever a user is updated or deleted.
func (c *Cache) DeleteUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userCachePrefix + id
	}
	return c.bury(ctx, keys...)
}

// GetAPIKey retrieves a cached API key by its hash.
// Returns nil if not found (cache miss).
func (c *Cache) GetAPIKey(ctx context.Context, keyHash string) (*model.APIKey, error) {
	data, err := c.client.Get(ctx, apiKeyCachePrefix+keyHash).Bytes()
	if err != nil || string(data) == tombstone {
		return nil, nil //nolint:nilerr
	}

	var cached cachedAPIKey
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, nil //nolint:nilerr
	}

	return &model.APIKey{
		ID:        cached.ID,
		UserID:    cached.UserID,
		KeyHash:   cached.KeyHash,
		KeyPrefix: cached.KeyPrefix,
		Name:      cached.Name,
		IsActive:  cached.IsActive,
		ExpiresAt: cached.ExpiresAt,
		CreatedAt: cached.CreatedAt,
	}, nil
}

// SetAPIKey caches an API key record under its hash unless an entry or tombstone is present.
func (c *Cache) SetAPIKey(ctx context.Context, key *model.APIKey) error {
	data, err := json.Marshal(cachedAPIKey{
		ID:        key.ID,
		UserID:    key.UserID,
		KeyHash:   key.KeyHash,
		KeyPrefix: key.KeyPrefix,
		Name:      key.Name,
		IsActive:  key.IsActive,
		ExpiresAt: key.ExpiresAt,
		CreatedAt: key.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal api key: %w", err)
	}

	return c.client.SetNX(ctx, apiKeyCachePrefix+key.KeyHash, data, c.ttl).Err()
}

// DeleteAPIKey invalidates a cached API key.
// Used whenever a key is updated or deleted.
func (c *Cache) DeleteAPIKey(ctx context.Context, keyHash string) error {
	return c.bury(ctx, apiKeyCachePrefix+keyHash)
}

// bury overwrites keys with a short-lived tombstone.
func (c *Cache) bury(ctx context.Context, keys ...string) error {
	ttl := tombstoneTTL
	if c.ttl < ttl {
		ttl = c.ttl
	}
	_, err := c.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, k := range keys {
			p.Set(ctx, k, tombstone, ttl)
		}
		return nil
	})
	return err
}
