package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
)

// Key format: N characters drawn uniformly from [A-Za-z0-9].
// Example: 7a9XkQ3mZp0LwT2bV8cNdR5sHf1gJ4yE
const (
	DefaultAPIKeyLength = 32
	MinAPIKeyLength     = 16
	MaxAPIKeyLength     = 128
	KeyPrefixLen        = 8 // Visible prefix kept for display

	apiKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var (
	// ErrInvalidKeyFormat indicates the key format is invalid.
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	// ErrInvalidKeyLength indicates a key length outside the supported range.
	ErrInvalidKeyLength = errors.New("invalid API key length")
)

// GeneratedKey contains the parts of a newly generated API key.
type GeneratedKey struct {
	Plaintext string // Full key (show once only)
	Hash      string // SHA-256 digest for storage and lookup
	Prefix    string // Visible prefix
}

// GenerateAPIKey creates a new random API key of the given length.
// A length of 0 selects DefaultAPIKeyLength.
func GenerateAPIKey(length int) (*GeneratedKey, error) {
	if length == 0 {
		length = DefaultAPIKeyLength
	}
	if length < MinAPIKeyLength || length > MaxAPIKeyLength {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, length)
	}

	alphabetLen := big.NewInt(int64(len(apiKeyAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return nil, fmt.Errorf("generate key: %w", err)
		}
		buf[i] = apiKeyAlphabet[n.Int64()]
	}
	plaintext := string(buf)

	return &GeneratedKey{
		Plaintext: plaintext,
		Hash:      HashAPIKey(plaintext),
		Prefix:    plaintext[:KeyPrefixLen],
	}, nil
}

// HashAPIKey returns the hex SHA-256 digest used to store and look up a key.
// Keys carry enough entropy that a fast digest is sufficient.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ValidateKeyFormat checks if the key could have been produced by GenerateAPIKey.
func ValidateKeyFormat(key string) bool {
	if len(key) < MinAPIKeyLength || len(key) > MaxAPIKeyLength {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
