// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/warden/warden/internal/model"
)

// Field limits shared by request bodies.
const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	PasswordMinLength = 8
	PasswordMaxLength = 128
	FullNameMaxLength = 100
	KeyNameMaxLength  = 100
	EmailMaxLength    = 254
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

func emailRules(required bool) []validation.Rule {
	return withPresence(required, validation.Length(3, EmailMaxLength), is.Email)
}

func usernameRules(required bool) []validation.Rule {
	return withPresence(required,
		validation.Length(UsernameMinLength, UsernameMaxLength),
		validation.Match(usernamePattern).Error("must contain only letters, digits and underscores"),
	)
}

func passwordRules(required bool) []validation.Rule {
	return withPresence(required, validation.Length(PasswordMinLength, PasswordMaxLength))
}

// withPresence prefixes rules with Required, or with NilOrNotEmpty for optional pointer fields.
func withPresence(required bool, rules ...validation.Rule) []validation.Rule {
	presence := validation.NilOrNotEmpty
	if required {
		presence = validation.Required
	}
	return append([]validation.Rule{presence}, rules...)
}

// NullableTime distinguishes an absent JSON field from an explicit null.
type NullableTime struct {
	Set   bool
	Value *time.Time
}

// UnmarshalJSON is only called when the field is present.
func (n *NullableTime) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(data, []byte("null")) {
		n.Value = nil
		return nil
	}
	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	n.Value = &t
	return nil
}

// MarshalJSON writes the value or null.
func (n NullableTime) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// ListQuery carries the paging parameters shared by listings.
type ListQuery struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// Validate checks paging bounds. Zero values select the defaults.
func (q ListQuery) Validate() error {
	return validation.ValidateStruct(&q,
		validation.Field(&q.Page, validation.Min(1), validation.Max(model.MaxPage)),
		validation.Field(&q.PageSize, validation.Min(1), validation.Max(model.MaxPageSize)),
	)
}
