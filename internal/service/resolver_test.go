package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
)

func TestResolveFromToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice", false)

	got, err := env.resolver.ResolveFromToken(env.ctx, env.token(t, user.ID))
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	snap := env.recorder.Snapshot()
	assert.Equal(t, uint64(1), snap.Authentications[model.MethodBearer+"/"+metrics.AuthSuccess])
}

func TestResolveFromToken_Failures(t *testing.T) {
	env := newTestEnv(t)
	active := env.addUser(t, "active", false)
	inactive := env.addUser(t, "inactive", false)
	inactive.IsActive = false
	require.NoError(t, env.store.UpdateUser(env.ctx, inactive))

	tests := []struct {
		name    string
		token   func() string
		wantErr []error
	}{
		{"empty", func() string { return "" }, []error{ErrUnauthenticated, ErrCredentialsMissing}},
		{"garbage", func() string { return "not-a-jwt" }, []error{ErrUnauthenticated, auth.ErrInvalidToken}},
		{"unknown subject", func() string { return env.token(t, "01HNOSUCHUSER") }, []error{ErrUserNotFound}},
		{"inactive user", func() string { return env.token(t, inactive.ID) }, []error{ErrInactiveUser}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.resolver.ResolveFromToken(env.ctx, tt.token())
			for _, want := range tt.wantErr {
				assert.ErrorIs(t, err, want)
			}
		})
	}

	t.Run("expired", func(t *testing.T) {
		tok, err := env.tokens.Issue(active.ID, time.Minute)
		require.NoError(t, err)
		env.clock.Advance(2 * time.Minute)

		_, err = env.resolver.ResolveFromToken(env.ctx, tok)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})
}

func TestResolveFromToken_DeletedUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "doomed", false)
	tok := env.token(t, user.ID)

	require.NoError(t, env.store.DeleteUser(env.ctx, user.ID))

	_, err := env.resolver.ResolveFromToken(env.ctx, tok)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestResolveFromToken_PrivilegesComeFromStore(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "promoted", false)
	tok := env.token(t, user.ID)

	got, err := env.resolver.ResolveFromToken(env.ctx, tok)
	require.NoError(t, err)
	assert.False(t, got.IsSuperuser)

	user.IsSuperuser = true
	require.NoError(t, env.store.UpdateUser(env.ctx, user))

	got, err = env.resolver.ResolveFromToken(env.ctx, tok)
	require.NoError(t, err)
	assert.True(t, got.IsSuperuser, "the same token reflects the stored role")
}

func TestResolveFromAPIKey(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "keyowner", false)

	issued, err := env.keys.CreateForUser(env.ctx, owner.ID, CreateAPIKeyInput{Name: "ci"})
	require.NoError(t, err)

	got, err := env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)
}

func TestResolveFromAPIKey_Failures(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner", false)
	sleeper := env.addUser(t, "sleeper", false)

	inactiveKey := ptr(false)
	inactive, err := env.keys.CreateForUser(env.ctx, owner.ID, CreateAPIKeyInput{Name: "off", IsActive: inactiveKey})
	require.NoError(t, err)

	expiring, err := env.keys.CreateForUser(env.ctx, owner.ID, CreateAPIKeyInput{
		Name:      "short",
		ExpiresAt: ptr(env.clock.Now().Add(time.Hour)),
	})
	require.NoError(t, err)

	sleeperKey, err := env.keys.CreateForUser(env.ctx, sleeper.ID, CreateAPIKeyInput{Name: "sleeper"})
	require.NoError(t, err)
	sleeper.IsActive = false
	require.NoError(t, env.store.UpdateUser(env.ctx, sleeper))

	t.Run("missing", func(t *testing.T) {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, "")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, ErrCredentialsMissing)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, ErrAPIKeyInvalid)
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, "has spaces and !")
		assert.ErrorIs(t, err, ErrAPIKeyInvalid)
	})

	t.Run("inactive key", func(t *testing.T) {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, inactive.Plaintext)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, ErrAPIKeyInactive)
	})

	t.Run("inactive owner", func(t *testing.T) {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, sleeperKey.Plaintext)
		assert.ErrorIs(t, err, ErrInactiveUser)
	})

	t.Run("expired key", func(t *testing.T) {
		env.clock.Advance(time.Hour)
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, expiring.Plaintext)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, ErrAPIKeyExpired)
	})
}

func TestResolveFromAPIKey_NeverWrites(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "reader", false)
	issued, err := env.keys.CreateForUser(env.ctx, owner.ID, CreateAPIKeyInput{Name: "ro"})
	require.NoError(t, err)

	before, err := env.store.GetAPIKeyByID(env.ctx, issued.APIKey.ID)
	require.NoError(t, err)
	userBefore, err := env.store.GetUserByID(env.ctx, owner.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
		require.NoError(t, err)
	}

	after, err := env.store.GetAPIKeyByID(env.ctx, issued.APIKey.ID)
	require.NoError(t, err)
	userAfter, err := env.store.GetUserByID(env.ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	assert.Equal(t, userBefore, userAfter)
}

func TestResolver_CacheSeesWrites(t *testing.T) {
	env := newTestEnvWithCache(t, newRedisCache(t))
	admin := env.addUser(t, "root", true)
	user := env.addUser(t, "cached", false)

	issued, err := env.keys.CreateForUser(env.ctx, user.ID, CreateAPIKeyInput{Name: "cached"})
	require.NoError(t, err)

	// Warm the cache.
	_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
	require.NoError(t, err)
	_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
	require.NoError(t, err)
	assert.NotZero(t, env.recorder.Snapshot().PrincipalCacheHits)

	t.Run("key deactivated", func(t *testing.T) {
		_, err := env.keys.Update(env.ctx, user, issued.APIKey.ID, UpdateAPIKeyInput{IsActive: ptr(false)})
		require.NoError(t, err)

		_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
		assert.ErrorIs(t, err, ErrAPIKeyInactive)

		_, err = env.keys.Update(env.ctx, user, issued.APIKey.ID, UpdateAPIKeyInput{IsActive: ptr(true)})
		require.NoError(t, err)
	})

	t.Run("user deactivated", func(t *testing.T) {
		_, err := env.users.Update(env.ctx, admin, user.ID, UpdateUserInput{IsActive: ptr(false)})
		require.NoError(t, err)

		_, err = env.resolver.ResolveFromToken(env.ctx, env.token(t, user.ID))
		assert.ErrorIs(t, err, ErrInactiveUser)
	})

	t.Run("user deleted", func(t *testing.T) {
		require.NoError(t, env.users.Delete(env.ctx, admin, user.ID))

		_, err := env.resolver.ResolveFromToken(env.ctx, env.token(t, user.ID))
		assert.ErrorIs(t, err, ErrUserNotFound)

		_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
		assert.ErrorIs(t, err, ErrUnauthenticated)
		assert.ErrorIs(t, err, ErrAPIKeyInvalid)

		cached, _ := env.cache.GetAPIKey(env.ctx, issued.APIKey.KeyHash)
		assert.Nil(t, cached, "stale key should be evicted")
	})
}

func TestResolveFromAPIKey_DeletedOwner(t *testing.T) {
	tests := []struct {
		name  string
		cache func(t *testing.T) PrincipalCache
	}{
		{"without cache", func(*testing.T) PrincipalCache { return nil }},
		{"with cache", func(t *testing.T) PrincipalCache { return newRedisCache(t) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnvWithCache(t, tt.cache(t))
			admin := env.addUser(t, "root", true)
			owner := env.addUser(t, "owner", false)

			issued, err := env.keys.CreateForUser(env.ctx, owner.ID, CreateAPIKeyInput{Name: "doomed"})
			require.NoError(t, err)
			_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
			require.NoError(t, err)

			_, err = env.users.BulkDelete(env.ctx, admin, []string{owner.ID})
			require.NoError(t, err)

			_, err = env.resolver.ResolveFromAPIKey(env.ctx, issued.Plaintext)
			assert.ErrorIs(t, err, ErrAPIKeyInvalid)
			assert.Equal(t, metrics.AuthUnauthenticated, AuthResult(err))
		})
	}
}

func TestAuthResult(t *testing.T) {
	assert.Equal(t, metrics.AuthSuccess, AuthResult(nil))
	assert.Equal(t, metrics.AuthUnauthenticated, AuthResult(unauthenticated(ErrAPIKeyExpired)))
	assert.Equal(t, metrics.AuthUserNotFound, AuthResult(ErrUserNotFound))
	assert.Equal(t, metrics.AuthInactive, AuthResult(ErrInactiveUser))
	assert.Equal(t, metrics.AuthError, AuthResult(assert.AnError))
}
