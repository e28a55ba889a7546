package model

// Authentication methods.
const (
	MethodBearer = "bearer"
	MethodAPIKey = "api_key"
)

// Principal is the authenticated caller of a request.
// This is injected into the request context by auth middleware.
type Principal struct {
	User   *User
	Method string
}

// UserID returns the principal's user id, or "" for a nil principal.
func (p *Principal) UserID() string {
	if p == nil || p.User == nil {
		return ""
	}
	return p.User.ID
}

// IsSuperuser reports whether the principal's stored user record is a superuser.
func (p *Principal) IsSuperuser() bool {
	return p != nil && p.User != nil && p.User.IsSuperuser
}
