package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncLogin is a no-op.
func (n *NoopRecorder) IncLogin(result string) {}

// IncAuthentication is a no-op.
func (n *NoopRecorder) IncAuthentication(method, result string) {}

// ObserveResolveDuration is a no-op.
func (n *NoopRecorder) ObserveResolveDuration(method string, duration time.Duration) {}

// IncPrincipalCacheHit is a no-op.
func (n *NoopRecorder) IncPrincipalCacheHit() {}

// IncPrincipalCacheMiss is a no-op.
func (n *NoopRecorder) IncPrincipalCacheMiss() {}

// IncUserRegistered is a no-op.
func (n *NoopRecorder) IncUserRegistered() {}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncUserUpdated is a no-op.
func (n *NoopRecorder) IncUserUpdated() {}

// AddUsersDeleted is a no-op.
func (n *NoopRecorder) AddUsersDeleted(count int) {}

// IncAPIKeyCreated is a no-op.
func (n *NoopRecorder) IncAPIKeyCreated() {}

// IncAPIKeyUpdated is a no-op.
func (n *NoopRecorder) IncAPIKeyUpdated() {}

// IncAPIKeyDeleted is a no-op.
func (n *NoopRecorder) IncAPIKeyDeleted() {}
