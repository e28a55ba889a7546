// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Login results.
const (
	LoginSuccess            = "success"
	LoginInvalidCredentials = "invalid_credentials"
	LoginInactive           = "inactive"
)

// Authentication results.
const (
	AuthSuccess         = "success"
	AuthUnauthenticated = "unauthenticated"
	AuthUserNotFound    = "user_not_found"
	AuthInactive        = "inactive"
	AuthError           = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Credential metrics
	IncLogin(result string)
	IncAuthentication(method, result string) // method: "bearer" or "api_key"
	ObserveResolveDuration(method string, duration time.Duration)
	IncPrincipalCacheHit()
	IncPrincipalCacheMiss()

	// User management metrics
	IncUserRegistered()
	IncUserCreated()
	IncUserUpdated()
	AddUsersDeleted(n int)

	// API key metrics
	IncAPIKeyCreated()
	IncAPIKeyUpdated()
	IncAPIKeyDeleted()
}
