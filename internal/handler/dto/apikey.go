package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/warden/warden/internal/model"
)

// Bounds of the days_valid query parameter.
const (
	MinDaysValid = 1
	MaxDaysValid = 365
)

// CreateAPIKeyRequest is the body of POST /api-keys.
type CreateAPIKeyRequest struct {
	Name      string     `json:"name"`
	IsActive  *bool      `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// Validate will run validation rules
func (r CreateAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, KeyNameMaxLength)),
	)
}

// UpdateAPIKeyRequest is the body of PATCH /api-keys/{key_id}.
// An explicit null expires_at removes the expiry.
type UpdateAPIKeyRequest struct {
	Name      *string      `json:"name"`
	IsActive  *bool        `json:"is_active"`
	ExpiresAt NullableTime `json:"expires_at"`
}

// Validate will run validation rules
func (r UpdateAPIKeyRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.NilOrNotEmpty, validation.Length(1, KeyNameMaxLength)),
	)
}

// WithExpiryQuery holds the days_valid parameter of POST /api-keys/with-expiry.
type WithExpiryQuery struct {
	DaysValid int `json:"days_valid"`
}

// Validate will run validation rules
func (q WithExpiryQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.DaysValid, validation.Min(MinDaysValid), validation.Max(MaxDaysValid)),
	)
}

// APIKeyResponse represents an API key in API responses. The key itself is never included.
type APIKeyResponse struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	KeyPrefix string     `json:"key_prefix"`
	IsActive  bool       `json:"is_active"`
	ExpiresAt *time.Time `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// APIKeyCreatedResponse is returned once, at creation, with the plaintext key.
type APIKeyCreatedResponse struct {
	APIKeyResponse
	Key string `json:"key"`
}

// APIKeyListResponse is one page of API keys.
type APIKeyListResponse struct {
	Items      []APIKeyResponse `json:"items"`
	Pagination model.Pagination `json:"pagination"`
}

// ToAPIKeyResponse converts an APIKey model to APIKeyResponse DTO.
func ToAPIKeyResponse(k *model.APIKey) APIKeyResponse {
	return APIKeyResponse{
		ID:        k.ID,
		UserID:    k.UserID,
		Name:      k.Name,
		KeyPrefix: k.KeyPrefix,
		IsActive:  k.IsActive,
		ExpiresAt: k.ExpiresAt,
		CreatedAt: k.CreatedAt,
	}
}

// ToAPIKeyCreatedResponse converts a freshly issued key.
func ToAPIKeyCreatedResponse(issued *model.IssuedAPIKey) APIKeyCreatedResponse {
	return APIKeyCreatedResponse{
		APIKeyResponse: ToAPIKeyResponse(issued.APIKey),
		Key:            issued.Plaintext,
	}
}

// ToAPIKeyListResponse converts a page of keys.
func ToAPIKeyListResponse(keys []*model.APIKey, page model.Pagination) APIKeyListResponse {
	items := make([]APIKeyResponse, 0, len(keys))
	for _, k := range keys {
		items = append(items, ToAPIKeyResponse(k))
	}
	return APIKeyListResponse{Items: items, Pagination: page}
}
