package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// mockHealthChecker is a mock implementation of HealthChecker for testing.
type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) Ping(ctx context.Context) error {
	return m.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var response HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return response
}

func TestHealthHandler_Healthz(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.Healthz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response := decodeHealth(t, rec); response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestHealthHandler_Readyz_AllHealthy(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{}, &mockHealthChecker{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	response := decodeHealth(t, rec)
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
	for _, name := range []string{"store", "resumes", "redis"} {
		if response.Checks[name] != "ok" {
			t.Errorf("expected %s check 'ok', got %s", name, response.Checks[name])
		}
	}
}

func TestHealthHandler_Readyz_ResumeDirUnhealthy(t *testing.T) {
	resumes := &mockHealthChecker{err: errors.New("resume dir missing")}
	h := NewHealthHandler(&mockHealthChecker{}, resumes, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	h.Readyz(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	response := decodeHealth(t, rec)
	if response.Status != "unhealthy" {
		t.Errorf("expected status 'unhealthy', got %s", response.Status)
	}
	if response.Checks["resumes"] != "error: resume dir missing" {
		t.Errorf("unexpected resumes check: %s", response.Checks["resumes"])
	}
	if response.Checks["store"] != "ok" {
		t.Errorf("expected store check 'ok', got %s", response.Checks["store"])
	}
}

func TestHealthHandler_Readyz_RedisOptional(t *testing.T) {
	h := NewHealthHandler(&mockHealthChecker{}, &mockHealthChecker{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	h.Readyz(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if response := decodeHealth(t, rec); response.Checks["redis"] != "not configured" {
		t.Errorf("expected 'not configured', got %s", response.Checks["redis"])
	}
}
