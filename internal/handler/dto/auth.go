package dto

import (
	validation "github.com/go-ozzo/ozzo-validation"
)

// GrantTypePassword is the only supported OAuth2 grant.
const GrantTypePassword = "password"

// LoginRequest is the OAuth2 password form of POST /auth/token.
// Username accepts an email address or a username.
type LoginRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	GrantType string `json:"grant_type"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required),
		validation.Field(&r.GrantType, validation.In(GrantTypePassword)),
	)
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules(true)...),
		validation.Field(&r.Username, usernameRules(true)...),
		validation.Field(&r.Password, passwordRules(true)...),
		validation.Field(&r.FullName, validation.Length(1, FullNameMaxLength)),
	)
}
