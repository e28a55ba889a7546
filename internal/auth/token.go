package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the minimum HMAC key length accepted by NewTokenService.
const MinSecretLength = 32

// TokenType is returned to clients alongside the access token.
const TokenType = "bearer"

var (
	// ErrInvalidToken covers bad signatures, wrong algorithms and malformed payloads.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenExpired indicates the token's exp is not after the current time.
	ErrTokenExpired = errors.New("token has expired")
	// ErrWeakSecret indicates the signing key is too short.
	ErrWeakSecret = errors.New("signing secret too short")
	// ErrUnsupportedAlgorithm indicates a non-HMAC signing algorithm.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")
)

// TokenClaims is the payload of an access token.
// IsSuperuser is always issued as false and must not be used for authorization.
type TokenClaims struct {
	IsSuperuser bool `json:"is_superuser"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC-signed access tokens.
type TokenService struct {
	key    []byte
	method *jwt.SigningMethodHMAC
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the time source used for iat, exp and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a token service for the given secret and algorithm (HS256, HS384 or HS512).
func NewTokenService(secret []byte, algorithm string, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}

	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "", "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, algorithm)
	}

	s := &TokenService{
		key:    append([]byte(nil), secret...),
		method: method,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a signed token for subject valid for ttl.
func (s *TokenService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("issue token: ttl must be positive")
	}

	now := s.now()
	claims := &TokenClaims{
		IsSuperuser: false,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses token and returns its claims.
// Returns ErrTokenExpired or ErrInvalidToken.
func (s *TokenService) Verify(token string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, s.keyFunc,
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if err := checkExpiry(claims, s.now()); err != nil {
		return nil, err
	}

	return claims, nil
}

func (s *TokenService) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return s.key, nil
}

// checkExpiry rejects claims whose exp is missing or not after now.
// Runs after the parser's own check so a token is never accepted on its word alone.
func checkExpiry(claims *TokenClaims, now time.Time) error {
	if claims.ExpiresAt == nil {
		return fmt.Errorf("%w: missing exp", ErrInvalidToken)
	}
	if !now.Before(claims.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	return nil
}
