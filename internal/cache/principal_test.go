package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warden/warden/internal/model"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewFromClient(client, ttl), mr
}

func TestCache_UserRoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	name := "Ada Lovelace"
	user := &model.User{
		ID:             "01HXUSER",
		Email:          "ada@example.com",
		Username:       "ada",
		HashedPassword: "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		FullName:       &name,
		IsActive:       true,
		IsSuperuser:    true,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, c.SetUser(ctx, user))

	got, err := c.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	want := *user
	want.HashedPassword = ""
	assert.Equal(t, &want, got)
}

func TestCache_PasswordHashNotStored(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)

	require.NoError(t, c.SetUser(context.Background(), &model.User{ID: "u1", HashedPassword: "$argon2id$secret"}))

	raw, err := mr.Get(userCachePrefix + "u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "argon2id")
	assert.NotContains(t, raw, "hashed_password")
}

func TestCache_InvalidationBlocksStaleFill(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	// A reader loaded the active record before an update invalidated it.
	stale := &model.User{ID: "u1", IsActive: true}
	require.NoError(t, c.DeleteUsers(ctx, "u1"))
	require.NoError(t, c.SetUser(ctx, stale))

	got, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got, "stale fill must not land over the tombstone")

	key := &model.APIKey{ID: "k1", KeyHash: "cafe", IsActive: true}
	require.NoError(t, c.DeleteAPIKey(ctx, "cafe"))
	require.NoError(t, c.SetAPIKey(ctx, key))
	gotKey, err := c.GetAPIKey(ctx, "cafe")
	require.NoError(t, err)
	assert.Nil(t, gotKey)

	// Once the tombstone lapses the cache fills again.
	mr.FastForward(tombstoneTTL + time.Second)
	require.NoError(t, c.SetUser(ctx, stale))
	got, err = c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestCache_TombstoneNeverOutlivesTTL(t *testing.T) {
	c, mr := newTestCache(t, time.Second)

	require.NoError(t, c.DeleteUsers(context.Background(), "u1"))
	assert.Equal(t, time.Second, mr.TTL(userCachePrefix+"u1"))
}

func TestCache_MissReturnsNil(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	u, err := c.GetUser(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, u)

	k, err := c.GetAPIKey(ctx, "missing")
	assert.NoError(t, err)
	assert.Nil(t, k)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)

	require.NoError(t, mr.Set(userCachePrefix+"u1", "{not json"))

	u, err := c.GetUser(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Nil(t, u)
}

func TestCache_DeleteUsers(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, c.SetUser(ctx, &model.User{ID: id}))
	}

	require.NoError(t, c.DeleteUsers(ctx, "a", "b"))
	require.NoError(t, c.DeleteUsers(ctx))

	for id, present := range map[string]bool{"a": false, "b": false, "c": true} {
		got, err := c.GetUser(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, present, got != nil, "user %s", id)
	}
}

func TestCache_APIKeyRoundTripAndDelete(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	exp := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	key := &model.APIKey{
		ID:        "01HXKEY",
		UserID:    "01HXUSER",
		KeyHash:   "deadbeef",
		KeyPrefix: "AbCdEfGh",
		Name:      "ci",
		IsActive:  true,
		ExpiresAt: &exp,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, c.SetAPIKey(ctx, key))

	got, err := c.GetAPIKey(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, key, got)

	require.NoError(t, c.DeleteAPIKey(ctx, "deadbeef"))
	got, err = c.GetAPIKey(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCache_EntriesExpire(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.SetUser(ctx, &model.User{ID: "u1"}))
	assert.Equal(t, 30*time.Second, mr.TTL(userCachePrefix+"u1"))

	mr.FastForward(31 * time.Second)

	got, err := c.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewFromClient_DefaultTTL(t *testing.T) {
	c, _ := newTestCache(t, 0)
	assert.Equal(t, DefaultTTL, c.TTL())
}
