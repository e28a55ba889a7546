package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

const (
	// maxKeyRetries bounds regeneration after a key_hash collision.
	maxKeyRetries = 3

	// Bounds for CreateWithExpiry.
	MinValidDays = 1
	MaxValidDays = 365
)

// APIKeyConfig configures an APIKeyService.
type APIKeyConfig struct {
	KeyLength        int
	DefaultValidDays int
}

// APIKeyService handles API key business logic.
type APIKeyService struct {
	store   APIKeyStore
	cache   PrincipalCache
	cfg     APIKeyConfig
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewAPIKeyService creates a new APIKeyService. cache and recorder may be nil.
func NewAPIKeyService(store APIKeyStore, cache PrincipalCache, cfg APIKeyConfig, logger *slog.Logger, recorder metrics.Recorder) *APIKeyService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.KeyLength == 0 {
		cfg.KeyLength = auth.DefaultAPIKeyLength
	}
	if cfg.DefaultValidDays == 0 {
		cfg.DefaultValidDays = 30
	}
	return &APIKeyService{
		store:   store,
		cache:   cacheOrNoop(cache),
		cfg:     cfg,
		logger:  logger,
		metrics: recorder,
		now:     time.Now,
	}
}

// CreateAPIKeyInput defines input for creating an API key.
type CreateAPIKeyInput struct {
	Name      string
	IsActive  *bool // nil means active
	ExpiresAt *time.Time
}

// UpdateAPIKeyInput defines a partial API key update. Nil fields are unchanged.
type UpdateAPIKeyInput struct {
	Name      *string
	IsActive  *bool
	ExpiresAt *time.Time
	// ClearExpiry removes the expiry. It wins over ExpiresAt.
	ClearExpiry bool
}

// CreateForUser persists a new key owned by userID and returns it with its plaintext.
func (s *APIKeyService) CreateForUser(ctx context.Context, userID string, input CreateAPIKeyInput) (*model.IssuedAPIKey, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	now := s.now().UTC()
	if input.ExpiresAt != nil && !input.ExpiresAt.After(now) {
		return nil, invalid("expires_at must be in the future")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}

	var expiresAt *time.Time
	if input.ExpiresAt != nil {
		exp := input.ExpiresAt.UTC()
		expiresAt = &exp
	}

	for attempt := 0; attempt < maxKeyRetries; attempt++ {
		gen, err := auth.GenerateAPIKey(s.cfg.KeyLength)
		if err != nil {
			return nil, fmt.Errorf("generate api key: %w", err)
		}

		key := &model.APIKey{
			ID:        generateULID(),
			UserID:    userID,
			KeyHash:   gen.Hash,
			KeyPrefix: gen.Prefix,
			Name:      name,
			IsActive:  active,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}

		err = s.store.CreateAPIKey(ctx, key)
		if errors.Is(err, repository.ErrAPIKeyExists) {
			s.logger.Warn("api key collision, regenerating", slog.Int("attempt", attempt+1))
			continue
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("create api key: %w", err)
		}

		s.metrics.IncAPIKeyCreated()
		return &model.IssuedAPIKey{APIKey: key, Plaintext: gen.Plaintext}, nil
	}

	return nil, conflict("could not generate a unique API key")
}

// CreateWithExpiry is CreateForUser with expires_at defaulting to now + daysValid days.
// daysValid <= 0 selects the configured default.
func (s *APIKeyService) CreateWithExpiry(ctx context.Context, userID string, input CreateAPIKeyInput, daysValid int) (*model.IssuedAPIKey, error) {
	if daysValid <= 0 {
		daysValid = s.cfg.DefaultValidDays
	}
	if daysValid < MinValidDays || daysValid > MaxValidDays {
		return nil, invalid("days_valid must be between %d and %d", MinValidDays, MaxValidDays)
	}
	if input.ExpiresAt == nil {
		exp := s.now().UTC().AddDate(0, 0, daysValid)
		input.ExpiresAt = &exp
	}
	return s.CreateForUser(ctx, userID, input)
}

// IsLive reports whether key may authenticate at now.
func (s *APIKeyService) IsLive(key *model.APIKey, now time.Time) bool {
	return key != nil && key.IsLive(now)
}

// Resolve looks up the key whose value is exactly keyValue.
// It returns ErrNotFound when no record matches.
func (s *APIKeyService) Resolve(ctx context.Context, keyValue string) (*model.APIKey, error) {
	if !auth.ValidateKeyFormat(keyValue) {
		return nil, ErrNotFound
	}
	hash := auth.HashAPIKey(keyValue)

	if key, _ := s.cache.GetAPIKey(ctx, hash); key != nil {
		s.metrics.IncPrincipalCacheHit()
		return key, nil
	}
	s.metrics.IncPrincipalCacheMiss()

	key, err := s.store.GetAPIKeyByHash(ctx, hash)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("resolve api key: %w", err)
	}

	if err := s.cache.SetAPIKey(ctx, key); err != nil {
		s.logger.Warn("failed to cache api key", slog.String("key_id", key.ID), slog.String("error", err.Error()))
	}
	return key, nil
}

// ListForUser returns one page of the keys owned by q.UserID.
func (s *APIKeyService) ListForUser(ctx context.Context, actor *model.User, q model.APIKeyQuery) ([]*model.APIKey, model.Pagination, error) {
	if q.UserID == "" && actor != nil {
		q.UserID = actor.ID
	}
	if err := RequireOwnerOrSuperuser(q.UserID, actor); err != nil {
		return nil, model.Pagination{}, err
	}

	q.Page, q.PageSize = model.NormalizePage(q.Page, q.PageSize)
	keys, total, err := s.store.ListAPIKeysByUserID(ctx, q)
	if err != nil {
		return nil, model.Pagination{}, fmt.Errorf("list api keys: %w", err)
	}
	return keys, model.NewPagination(q.Page, q.PageSize, total), nil
}

// Get returns the key with id if actor owns it or is a superuser.
func (s *APIKeyService) Get(ctx context.Context, actor *model.User, id string) (*model.APIKey, error) {
	key, err := s.store.GetAPIKeyByID(ctx, id)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get api key: %w", err)
	}
	if err := RequireOwnerOrSuperuser(key.UserID, actor); err != nil {
		return nil, err
	}
	return key, nil
}

// Update applies input to the key with id.
func (s *APIKeyService) Update(ctx context.Context, actor *model.User, id string, input UpdateAPIKeyInput) (*model.APIKey, error) {
	key, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, invalid("name must not be empty")
		}
		key.Name = name
	}
	if input.IsActive != nil {
		key.IsActive = *input.IsActive
	}
	switch {
	case input.ClearExpiry:
		key.ExpiresAt = nil
	case input.ExpiresAt != nil:
		if !input.ExpiresAt.After(s.now()) {
			return nil, invalid("expires_at must be in the future")
		}
		exp := input.ExpiresAt.UTC()
		key.ExpiresAt = &exp
	}

	err = s.store.UpdateAPIKey(ctx, key)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update api key: %w", err)
	}

	s.invalidate(ctx, key)
	s.metrics.IncAPIKeyUpdated()
	return key, nil
}

// Delete removes the key with id.
func (s *APIKeyService) Delete(ctx context.Context, actor *model.User, id string) error {
	key, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}

	err = s.store.DeleteAPIKey(ctx, key.ID)
	if errors.Is(err, repository.ErrAPIKeyNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}

	s.invalidate(ctx, key)
	s.metrics.IncAPIKeyDeleted()
	return nil
}

func (s *APIKeyService) invalidate(ctx context.Context, key *model.APIKey) {
	if err := s.cache.DeleteAPIKey(ctx, key.KeyHash); err != nil {
		s.logger.Warn("failed to invalidate cached api key", slog.String("key_id", key.ID), slog.String("error", err.Error()))
	}
}
