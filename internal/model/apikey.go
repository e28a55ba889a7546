package model

import "time"

// APIKey represents an API key entity.
// Only the digest of the key is stored; the plaintext is shown once at creation.
type APIKey struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	KeyHash   string     `json:"-"` // Never serialize
	KeyPrefix string     `json:"key_prefix"`
	Name      string     `json:"name"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsExpired reports whether the key has an expiry at or before now.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && !k.ExpiresAt.After(now)
}

// IsLive reports whether the key may authenticate at now:
// it is active and either has no expiry or expires after now.
func (k *APIKey) IsLive(now time.Time) bool {
	return k.IsActive && !k.IsExpired(now)
}

// Clone returns a copy that shares no pointers with k.
func (k *APIKey) Clone() *APIKey {
	if k == nil {
		return nil
	}
	c := *k
	if k.ExpiresAt != nil {
		exp := *k.ExpiresAt
		c.ExpiresAt = &exp
	}
	return &c
}

// IssuedAPIKey is a freshly created key together with its plaintext value.
type IssuedAPIKey struct {
	APIKey    *APIKey
	Plaintext string
}

// APIKeyQuery is a validated API key listing request.
type APIKeyQuery struct {
	UserID   string
	Page     int
	PageSize int
}
