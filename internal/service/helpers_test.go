package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/cache"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository/memstore"
	"github.com/warden/warden/internal/testutil"
)

var testSecret = []byte("service-test-secret-0123456789abcdef")

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv wires every service over one in-memory store.
type testEnv struct {
	ctx      context.Context
	store    *memstore.Store
	clock    *fakeClock
	tokens   *auth.TokenService
	recorder *metrics.InMemoryRecorder
	cache    PrincipalCache
	users    *UserService
	keys     *APIKeyService
	auth     *AuthService
	resolver *Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

func newTestEnvWithCache(t *testing.T, c PrincipalCache) *testEnv {
	t.Helper()

	clock := newFakeClock()
	tokens, err := auth.NewTokenService(testSecret, "HS256", auth.WithClock(clock.Now))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	recorder := metrics.NewInMemory()

	users := NewUserService(store, c, logger, recorder)
	users.now = clock.Now
	keys := NewAPIKeyService(store, c, APIKeyConfig{}, logger, recorder)
	keys.now = clock.Now
	resolver := NewResolver(tokens, keys, store, c, logger, recorder)
	resolver.now = clock.Now

	return &testEnv{
		ctx:      context.Background(),
		store:    store,
		clock:    clock,
		tokens:   tokens,
		recorder: recorder,
		cache:    c,
		users:    users,
		keys:     keys,
		auth:     NewAuthService(store, tokens, 30*time.Minute, logger, recorder),
		resolver: resolver,
	}
}

func newRedisCache(t *testing.T) *cache.Cache {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewFromClient(client, time.Minute)
}

// addUser stores a user built by testutil and returns it.
func (e *testEnv) addUser(t *testing.T, username string, superuser bool) *model.User {
	t.Helper()
	u := testutil.NewTestUser(t, username)
	u.IsSuperuser = superuser
	require.NoError(t, e.store.CreateUser(e.ctx, u))
	return u
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := e.tokens.Issue(userID, 30*time.Minute)
	require.NoError(t, err)
	return tok
}

func ptr[T any](v T) *T { return &v }
