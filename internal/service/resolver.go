package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

// TokenVerifier verifies bearer tokens. *auth.TokenService implements it.
type TokenVerifier interface {
	Verify(token string) (*auth.TokenClaims, error)
}

// Resolver turns a bearer token or API key into the stored user it belongs to.
// It only reads; resolution never mutates users or keys.
type Resolver struct {
	tokens  TokenVerifier
	keys    *APIKeyService
	users   UserStore
	cache   PrincipalCache
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewResolver creates a new Resolver. cache and recorder may be nil.
func NewResolver(tokens TokenVerifier, keys *APIKeyService, users UserStore, cache PrincipalCache, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		tokens:  tokens,
		keys:    keys,
		users:   users,
		cache:   cacheOrNoop(cache),
		logger:  logger,
		metrics: recorder,
		now:     time.Now,
	}
}

// ResolveFromToken verifies token and loads its subject.
// Errors: ErrUnauthenticated (invalid or expired token), ErrUserNotFound, ErrInactiveUser.
func (r *Resolver) ResolveFromToken(ctx context.Context, token string) (*model.User, error) {
	start := time.Now()
	user, err := r.resolveToken(ctx, token)
	r.record(model.MethodBearer, start, err)
	return user, err
}

func (r *Resolver) resolveToken(ctx context.Context, token string) (*model.User, error) {
	if token == "" {
		return nil, unauthenticated(ErrCredentialsMissing)
	}
	claims, err := r.tokens.Verify(token)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, unauthenticated(auth.ErrTokenExpired)
		}
		return nil, unauthenticated(auth.ErrInvalidToken)
	}

	// claims.IsSuperuser is ignored; privileges come from the stored record.
	user, err := r.loadUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	return RequireActive(user)
}

// ResolveFromAPIKey looks up key and loads its owner.
// Errors: ErrUnauthenticated (missing, unknown or not live key), ErrUserNotFound, ErrInactiveUser.
func (r *Resolver) ResolveFromAPIKey(ctx context.Context, key string) (*model.User, error) {
	start := time.Now()
	user, err := r.resolveAPIKey(ctx, key)
	r.record(model.MethodAPIKey, start, err)
	return user, err
}

func (r *Resolver) resolveAPIKey(ctx context.Context, key string) (*model.User, error) {
	if key == "" {
		return nil, unauthenticated(ErrCredentialsMissing)
	}
	apiKey, err := r.keys.Resolve(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, unauthenticated(ErrAPIKeyInvalid)
	}
	if err != nil {
		return nil, err
	}

	now := r.now()
	if !r.keys.IsLive(apiKey, now) {
		if !apiKey.IsActive {
			return nil, unauthenticated(ErrAPIKeyInactive)
		}
		return nil, unauthenticated(ErrAPIKeyExpired)
	}

	user, err := r.loadUser(ctx, apiKey.UserID)
	if errors.Is(err, ErrUserNotFound) {
		// Deleting the owner cascaded to the key; only a cached copy remained.
		r.keys.invalidate(ctx, apiKey)
		return nil, unauthenticated(ErrAPIKeyInvalid)
	}
	if err != nil {
		return nil, err
	}
	return RequireActive(user)
}

// loadUser reads a user through the cache.
func (r *Resolver) loadUser(ctx context.Context, id string) (*model.User, error) {
	if user, _ := r.cache.GetUser(ctx, id); user != nil {
		r.metrics.IncPrincipalCacheHit()
		return user, nil
	}
	r.metrics.IncPrincipalCacheMiss()

	user, err := r.users.GetUserByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load principal: %w", err)
	}

	if err := r.cache.SetUser(ctx, user); err != nil {
		r.logger.Warn("failed to cache user", slog.String("user_id", id), slog.String("error", err.Error()))
	}
	return user, nil
}

func (r *Resolver) record(method string, start time.Time, err error) {
	r.metrics.ObserveResolveDuration(method, time.Since(start))
	r.metrics.IncAuthentication(method, AuthResult(err))
}

// AuthResult classifies a resolution error for metrics and logs.
func AuthResult(err error) string {
	switch {
	case err == nil:
		return metrics.AuthSuccess
	case errors.Is(err, ErrUnauthenticated):
		return metrics.AuthUnauthenticated
	case errors.Is(err, ErrUserNotFound):
		return metrics.AuthUserNotFound
	case errors.Is(err, ErrInactiveUser):
		return metrics.AuthInactive
	default:
		return metrics.AuthError
	}
}
