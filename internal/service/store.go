package service

import (
	"context"
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/warden/warden/internal/model"
)

// UserStore persists users. *repository.Repository implements it.
// Implementations return repository.ErrUserNotFound, ErrEmailExists and ErrUsernameExists.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	DeleteUsers(ctx context.Context, ids []string) (int64, error)
	ListUsers(ctx context.Context, q model.UserQuery) ([]*model.User, int64, error)
}

// APIKeyStore persists API keys. *repository.Repository implements it.
// Implementations return repository.ErrAPIKeyNotFound and ErrAPIKeyExists.
type APIKeyStore interface {
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error)
	GetAPIKeyByHash(ctx context.Context, hash string) (*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, q model.APIKeyQuery) ([]*model.APIKey, int64, error)
	UpdateAPIKey(ctx context.Context, key *model.APIKey) error
	DeleteAPIKey(ctx context.Context, id string) error
}

// PrincipalCache is a read-through cache for records used during authentication.
// *cache.Cache implements it. Misses return nil, nil.
type PrincipalCache interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	SetUser(ctx context.Context, user *model.User) error
	DeleteUsers(ctx context.Context, ids ...string) error
	GetAPIKey(ctx context.Context, keyHash string) (*model.APIKey, error)
	SetAPIKey(ctx context.Context, key *model.APIKey) error
	DeleteAPIKey(ctx context.Context, keyHash string) error
}

// noopCache is used when no cache is configured.
type noopCache struct{}

func (noopCache) GetUser(context.Context, string) (*model.User, error)     { return nil, nil }
func (noopCache) SetUser(context.Context, *model.User) error               { return nil }
func (noopCache) DeleteUsers(context.Context, ...string) error             { return nil }
func (noopCache) GetAPIKey(context.Context, string) (*model.APIKey, error) { return nil, nil }
func (noopCache) SetAPIKey(context.Context, *model.APIKey) error           { return nil }
func (noopCache) DeleteAPIKey(context.Context, string) error               { return nil }

func cacheOrNoop(c PrincipalCache) PrincipalCache {
	if c == nil {
		return noopCache{}
	}
	return c
}

// generateULID generates a new ULID string.
func generateULID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}
