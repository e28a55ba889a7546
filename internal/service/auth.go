package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/warden/warden/internal/auth"
	"github.com/warden/warden/internal/metrics"
	"github.com/warden/warden/internal/model"
	"github.com/warden/warden/internal/repository"
)

// TokenIssuer issues bearer tokens. *auth.TokenService implements it.
type TokenIssuer interface {
	Issue(subject string, ttl time.Duration) (string, error)
}

// AccessToken is the result of a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthService handles password login.
type AuthService struct {
	users   UserStore
	tokens  TokenIssuer
	ttl     time.Duration
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewAuthService creates a new AuthService. recorder may be nil.
func NewAuthService(users UserStore, tokens TokenIssuer, ttl time.Duration, logger *slog.Logger, recorder metrics.Recorder) *AuthService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:   users,
		tokens:  tokens,
		ttl:     ttl,
		logger:  logger,
		metrics: recorder,
	}
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnHash spends the cost of one password verification so unknown
// identifiers take as long as wrong passwords.
func burnHash(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = auth.HashPassword("warden-dummy-password")
	})
	_ = auth.CheckPassword(password, dummyHash)
}

// Authenticate checks identifier and password. The identifier is tried as an
// email first, then as a username. Any mismatch is ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(identifier))
	if errors.Is(err, repository.ErrUserNotFound) {
		user, err = s.users.GetUserByUsername(ctx, identifier)
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		burnHash(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if !auth.CheckPassword(password, user.HashedPassword) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Login authenticates and issues an access token for an active user.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*AccessToken, error) {
	user, err := s.Authenticate(ctx, identifier, password)
	if errors.Is(err, ErrInvalidCredentials) {
		s.metrics.IncLogin(metrics.LoginInvalidCredentials)
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if _, err := RequireActive(user); err != nil {
		s.metrics.IncLogin(metrics.LoginInactive)
		return nil, err
	}

	token, err := s.tokens.Issue(user.ID, s.ttl)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.metrics.IncLogin(metrics.LoginSuccess)
	s.logger.Info("login succeeded", slog.String("user_id", user.ID))
	return &AccessToken{AccessToken: token, TokenType: auth.TokenType}, nil
}
