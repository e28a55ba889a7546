package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	loginsTotal          *prometheus.CounterVec
	authenticationsTotal *prometheus.CounterVec
	resolveDuration      *prometheus.HistogramVec
	cacheHitsTotal       prometheus.Counter
	cacheMissesTotal     prometheus.Counter

	usersRegisteredTotal prometheus.Counter
	usersCreatedTotal    prometheus.Counter
	usersUpdatedTotal    prometheus.Counter
	usersDeletedTotal    prometheus.Counter

	apiKeysCreatedTotal prometheus.Counter
	apiKeysUpdatedTotal prometheus.Counter
	apiKeysDeletedTotal prometheus.Counter
}

// NewPrometheus creates a recorder and registers its collectors with registry.
func NewPrometheus(registry prometheus.Registerer) *PrometheusRecorder {
	m := &PrometheusRecorder{
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		loginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_logins_total",
				Help: "Password logins by result",
			},
			[]string{"result"},
		),
		authenticationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_authentications_total",
				Help: "Principal resolutions by credential kind and result",
			},
			[]string{"method", "result"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_principal_resolve_duration_seconds",
				Help:    "Time to resolve a credential to a user",
				Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
			},
			[]string{"method"},
		),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_principal_cache_hits_total",
			Help: "Principal cache hits",
		}),
		cacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_principal_cache_misses_total",
			Help: "Principal cache misses",
		}),
		usersRegisteredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_users_registered_total",
			Help: "Self-registered users",
		}),
		usersCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_users_created_total",
			Help: "Users created by superusers",
		}),
		usersUpdatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_users_updated_total",
			Help: "User updates",
		}),
		usersDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_users_deleted_total",
			Help: "Deleted users",
		}),
		apiKeysCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_api_keys_created_total",
			Help: "Created API keys",
		}),
		apiKeysUpdatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_api_keys_updated_total",
			Help: "API key updates",
		}),
		apiKeysDeletedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warden_api_keys_deleted_total",
			Help: "Deleted API keys",
		}),
	}

	registry.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.loginsTotal,
		m.authenticationsTotal,
		m.resolveDuration,
		m.cacheHitsTotal,
		m.cacheMissesTotal,
		m.usersRegisteredTotal,
		m.usersCreatedTotal,
		m.usersUpdatedTotal,
		m.usersDeletedTotal,
		m.apiKeysCreatedTotal,
		m.apiKeysUpdatedTotal,
		m.apiKeysDeletedTotal,
	)

	return m
}

// ObserveHTTPRequest records a served request.
func (m *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncLogin increments the login counter for result.
func (m *PrometheusRecorder) IncLogin(result string) {
	m.loginsTotal.WithLabelValues(result).Inc()
}

// IncAuthentication increments the authentication counter.
func (m *PrometheusRecorder) IncAuthentication(method, result string) {
	m.authenticationsTotal.WithLabelValues(method, result).Inc()
}

// ObserveResolveDuration records principal resolution duration.
func (m *PrometheusRecorder) ObserveResolveDuration(method string, duration time.Duration) {
	m.resolveDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// IncPrincipalCacheHit increments cache hit counter.
func (m *PrometheusRecorder) IncPrincipalCacheHit() { m.cacheHitsTotal.Inc() }

// IncPrincipalCacheMiss increments cache miss counter.
func (m *PrometheusRecorder) IncPrincipalCacheMiss() { m.cacheMissesTotal.Inc() }

// IncUserRegistered increments the self-registration counter.
func (m *PrometheusRecorder) IncUserRegistered() { m.usersRegisteredTotal.Inc() }

// IncUserCreated increments the admin-created user counter.
func (m *PrometheusRecorder) IncUserCreated() { m.usersCreatedTotal.Inc() }

// IncUserUpdated increments the user updated counter.
func (m *PrometheusRecorder) IncUserUpdated() { m.usersUpdatedTotal.Inc() }

// AddUsersDeleted adds n to the deleted users counter.
func (m *PrometheusRecorder) AddUsersDeleted(n int) {
	if n > 0 {
		m.usersDeletedTotal.Add(float64(n))
	}
}

// IncAPIKeyCreated increments API key created counter.
func (m *PrometheusRecorder) IncAPIKeyCreated() { m.apiKeysCreatedTotal.Inc() }

// IncAPIKeyUpdated increments API key updated counter.
func (m *PrometheusRecorder) IncAPIKeyUpdated() { m.apiKeysUpdatedTotal.Inc() }

// IncAPIKeyDeleted increments API key deleted counter.
func (m *PrometheusRecorder) IncAPIKeyDeleted() { m.apiKeysDeletedTotal.Inc() }
