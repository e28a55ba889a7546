package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusRecorder_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg)

	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginInvalidCredentials)
	m.IncAuthentication("bearer", AuthSuccess)
	m.AddUsersDeleted(3)
	m.AddUsersDeleted(0)
	m.IncAPIKeyCreated()
	m.ObserveHTTPRequest("GET", "/api/v1/users/me", 200, 5*time.Millisecond)
	m.ObserveResolveDuration("api_key", time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues(LoginSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues(LoginInvalidCredentials)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.authenticationsTotal.WithLabelValues("bearer", AuthSuccess)))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.usersDeletedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apiKeysCreatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequestsTotal.WithLabelValues("GET", "/api/v1/users/me", "200")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["warden_logins_total"])
	assert.True(t, names["warden_principal_resolve_duration_seconds"])
}

func TestPrometheusRecorder_DoubleRegisterPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)
	assert.Panics(t, func() { NewPrometheus(reg) })
}

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	m := NewInMemory()

	m.IncLogin(LoginInactive)
	m.IncAuthentication("api_key", AuthUnauthenticated)
	m.IncAuthentication("api_key", AuthUnauthenticated)
	m.AddUsersDeleted(2)
	m.IncPrincipalCacheHit()
	m.ObserveResolveDuration("bearer", 2*time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.Logins[LoginInactive])
	assert.Equal(t, uint64(2), snap.Authentications["api_key/"+AuthUnauthenticated])
	assert.Equal(t, uint64(2), snap.UsersDeleted)
	assert.Equal(t, uint64(1), snap.PrincipalCacheHits)
	assert.Equal(t, uint64(1), snap.ResolveDurationCount)
	assert.Equal(t, (2 * time.Millisecond).Nanoseconds(), snap.ResolveDurationNs)

	// Snapshot maps are copies.
	snap.Logins[LoginInactive] = 99
	assert.Equal(t, uint64(1), m.Snapshot().Logins[LoginInactive])
}

var (
	_ Recorder = (*PrometheusRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*NoopRecorder)(nil)
)
