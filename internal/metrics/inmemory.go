package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests         uint64
	Logins               map[string]uint64 // by result
	Authentications      map[string]uint64 // by "method/result"
	ResolveDurationCount uint64
	ResolveDurationNs    int64
	PrincipalCacheHits   uint64
	PrincipalCacheMisses uint64
	UsersRegistered      uint64
	UsersCreated         uint64
	UsersUpdated         uint64
	UsersDeleted         uint64
	APIKeysCreated       uint64
	APIKeysUpdated       uint64
	APIKeysDeleted       uint64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	mu              sync.Mutex
	logins          map[string]uint64
	authentications map[string]uint64

	httpRequests         uint64
	resolveDurationCount uint64
	resolveDurationNs    int64
	cacheHits            uint64
	cacheMisses          uint64
	usersRegistered      uint64
	usersCreated         uint64
	usersUpdated         uint64
	usersDeleted         uint64
	keysCreated          uint64
	keysUpdated          uint64
	keysDeleted          uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		logins:          make(map[string]uint64),
		authentications: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	logins := make(map[string]uint64, len(m.logins))
	for k, v := range m.logins {
		logins[k] = v
	}
	auths := make(map[string]uint64, len(m.authentications))
	for k, v := range m.authentications {
		auths[k] = v
	}
	m.mu.Unlock()

	return Snapshot{
		Logins:               logins,
		Authentications:      auths,
		HTTPRequests:         atomic.LoadUint64(&m.httpRequests),
		ResolveDurationCount: atomic.LoadUint64(&m.resolveDurationCount),
		ResolveDurationNs:    atomic.LoadInt64(&m.resolveDurationNs),
		PrincipalCacheHits:   atomic.LoadUint64(&m.cacheHits),
		PrincipalCacheMisses: atomic.LoadUint64(&m.cacheMisses),
		UsersRegistered:      atomic.LoadUint64(&m.usersRegistered),
		UsersCreated:         atomic.LoadUint64(&m.usersCreated),
		UsersUpdated:         atomic.LoadUint64(&m.usersUpdated),
		UsersDeleted:         atomic.LoadUint64(&m.usersDeleted),
		APIKeysCreated:       atomic.LoadUint64(&m.keysCreated),
		APIKeysUpdated:       atomic.LoadUint64(&m.keysUpdated),
		APIKeysDeleted:       atomic.LoadUint64(&m.keysDeleted),
	}
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	atomic.AddUint64(&m.httpRequests, 1)
}

// IncLogin increments the login counter for result.
func (m *InMemoryRecorder) IncLogin(result string) {
	m.mu.Lock()
	m.logins[result]++
	m.mu.Unlock()
}

// IncAuthentication increments the authentication counter for method and result.
func (m *InMemoryRecorder) IncAuthentication(method, result string) {
	m.mu.Lock()
	m.authentications[method+"/"+result]++
	m.mu.Unlock()
}

// ObserveResolveDuration records principal resolution duration.
func (m *InMemoryRecorder) ObserveResolveDuration(method string, duration time.Duration) {
	atomic.AddUint64(&m.resolveDurationCount, 1)
	atomic.AddInt64(&m.resolveDurationNs, duration.Nanoseconds())
}

// IncPrincipalCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncPrincipalCacheHit() {
	atomic.AddUint64(&m.cacheHits, 1)
}

// IncPrincipalCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncPrincipalCacheMiss() {
	atomic.AddUint64(&m.cacheMisses, 1)
}

// IncUserRegistered increments the self-registration counter.
func (m *InMemoryRecorder) IncUserRegistered() {
	atomic.AddUint64(&m.usersRegistered, 1)
}

// IncUserCreated increments the admin-created user counter.
func (m *InMemoryRecorder) IncUserCreated() {
	atomic.AddUint64(&m.usersCreated, 1)
}

// IncUserUpdated increments the user updated counter.
func (m *InMemoryRecorder) IncUserUpdated() {
	atomic.AddUint64(&m.usersUpdated, 1)
}

// AddUsersDeleted adds n to the user deleted counter.
func (m *InMemoryRecorder) AddUsersDeleted(n int) {
	if n > 0 {
		atomic.AddUint64(&m.usersDeleted, uint64(n))
	}
}

// IncAPIKeyCreated increments API key created counter.
func (m *InMemoryRecorder) IncAPIKeyCreated() {
	atomic.AddUint64(&m.keysCreated, 1)
}

// IncAPIKeyUpdated increments API key updated counter.
func (m *InMemoryRecorder) IncAPIKeyUpdated() {
	atomic.AddUint64(&m.keysUpdated, 1)
}

// IncAPIKeyDeleted increments API key deleted counter.
func (m *InMemoryRecorder) IncAPIKeyDeleted() {
	atomic.AddUint64(&m.keysDeleted, 1)
}
