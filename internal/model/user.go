// Package model defines domain entities for the application.
package model

import "time"

// User is an account that can authenticate and own API keys.
type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	Username       string    `json:"username"`
	HashedPassword string    `json:"-"` // Never serialize
	FullName       *string   `json:"full_name"`
	IsActive       bool      `json:"is_active"`
	IsSuperuser    bool      `json:"is_superuser"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Clone returns a copy that shares no pointers with u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.FullName != nil {
		name := *u.FullName
		c.FullName = &name
	}
	return &c
}

// UserSortFields maps accepted sort_by values to their storage columns.
var UserSortFields = map[string]string{
	"id":           "id",
	"email":        "email",
	"username":     "username",
	"full_name":    "full_name",
	"is_active":    "is_active",
	"is_superuser": "is_superuser",
	"created_at":   "created_at",
	"updated_at":   "updated_at",
}

// DefaultUserSort is applied when no sort_by is given.
const DefaultUserSort = "created_at"

// UserFilter narrows a user listing. Nil or empty fields are ignored.
// Email and Username match exactly unless they contain a '%' wildcard.
type UserFilter struct {
	IsActive    *bool  `json:"is_active,omitempty"`
	IsSuperuser *bool  `json:"is_superuser,omitempty"`
	Email       string `json:"email,omitempty"`
	Username    string `json:"username,omitempty"`
}

// IsEmpty reports whether no filter is set.
func (f UserFilter) IsEmpty() bool {
	return f.IsActive == nil && f.IsSuperuser == nil && f.Email == "" && f.Username == ""
}

// UserSearchColumns are matched case-insensitively by the q parameter.
var UserSearchColumns = []string{"email", "username", "full_name"}

// UserQuery is a validated user listing request.
type UserQuery struct {
	Filter   UserFilter
	Search   string
	Sort     Sort
	Page     int
	PageSize int
}
