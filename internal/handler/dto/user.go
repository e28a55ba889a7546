package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/warden/warden/internal/model"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email       string  `json:"email"`
	Username    string  `json:"username"`
	Password    string  `json:"password"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser bool    `json:"is_superuser"`
}

// Validate will run validation rules
func (r CreateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules(true)...),
		validation.Field(&r.Username, usernameRules(true)...),
		validation.Field(&r.Password, passwordRules(true)...),
		validation.Field(&r.FullName, validation.Length(1, FullNameMaxLength)),
	)
}

// UpdateUserRequest is the body of PATCH /users/{user_id} and PATCH /users/me.
// Absent fields are left unchanged.
type UpdateUserRequest struct {
	Email       *string `json:"email"`
	Username    *string `json:"username"`
	Password    *string `json:"password"`
	FullName    *string `json:"full_name"`
	IsActive    *bool   `json:"is_active"`
	IsSuperuser *bool   `json:"is_superuser"`
}

// Validate will run validation rules
func (r UpdateUserRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules(false)...),
		validation.Field(&r.Username, usernameRules(false)...),
		validation.Field(&r.Password, passwordRules(false)...),
		validation.Field(&r.FullName, validation.Length(1, FullNameMaxLength)),
	)
}

// BulkDeleteRequest is the body of POST /users/bulk-delete.
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// Validate will run validation rules
func (r BulkDeleteRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, model.MaxPageSize*10)),
	)
}

// BulkDeleteResponse reports how many users were removed.
type BulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Username    string    `json:"username"`
	FullName    *string   `json:"full_name"`
	IsActive    bool      `json:"is_active"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UserListResponse is one page of users with the applied query echoed back.
type UserListResponse struct {
	Items      []UserResponse   `json:"items"`
	Pagination model.Pagination `json:"pagination"`
	Sorting    model.Sort       `json:"sorting"`
	Filters    model.UserFilter `json:"filters"`
	Search     string           `json:"search,omitempty"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(u *model.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		IsActive:    u.IsActive,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// ToUserListResponse converts a page of users.
func ToUserListResponse(users []*model.User, page model.Pagination, q model.UserQuery) UserListResponse {
	items := make([]UserResponse, 0, len(users))
	for _, u := range users {
		items = append(items, ToUserResponse(u))
	}
	return UserListResponse{
		Items:      items,
		Pagination: page,
		Sorting:    q.Sort,
		Filters:    q.Filter,
		Search:     q.Search,
	}
}
