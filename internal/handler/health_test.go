package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)

	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestHealthHandler_Readyz(t *testing.T) {
	tests := []struct {
		name         string
		db           HealthChecker
		cache        HealthChecker
		wantStatus   int
		wantPostgres string
		wantRedis    string
	}{
		{"all healthy", &mockHealthChecker{}, &mockHealthChecker{}, http.StatusOK, "ok", "ok"},
		{"cache disabled", &mockHealthChecker{}, nil, http.StatusOK, "ok", "disabled"},
		{"database down", &mockHealthChecker{err: errors.New("connection refused")}, &mockHealthChecker{}, http.StatusServiceUnavailable, "unavailable", "ok"},
		{"cache down", &mockHealthChecker{}, &mockHealthChecker{err: errors.New("i/o timeout")}, http.StatusServiceUnavailable, "ok", "unavailable"},
		{"no database", nil, nil, http.StatusServiceUnavailable, "not configured", "disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.db, tt.cache, nil)

			rec := httptest.NewRecorder()
			h.Readyz(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if strings.Contains(rec.Body.String(), "refused") || strings.Contains(rec.Body.String(), "timeout") {
				t.Errorf("dependency error leaked into response: %s", rec.Body.String())
			}

			var response HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if response.Checks["postgres"] != tt.wantPostgres {
				t.Errorf("postgres = %q, want %q", response.Checks["postgres"], tt.wantPostgres)
			}
			if response.Checks["redis"] != tt.wantRedis {
				t.Errorf("redis = %q, want %q", response.Checks["redis"], tt.wantRedis)
			}
		})
	}
}
