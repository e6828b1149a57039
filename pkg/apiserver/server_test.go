package apiserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/config"
)

type healthResponse struct {
	Status string `json:"status"`
}

type envelopeResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newTestServer(cfg *config.Config) *Server {
	return NewServer(nil, nil, nil, nil, cfg, zap.NewNop())
}

func TestHealthEndpoint(t *testing.T) {
	server := newTestServer(&config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, recorder.Code)
	}

	var response healthResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Status != "ok" {
		t.Fatalf("expected status ok, got %q", response.Status)
	}
}

func TestAPIAuthRequired(t *testing.T) {
	server := newTestServer(&config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staffs", nil)
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}

	var response envelopeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Message != "missing authorization" {
		t.Fatalf("expected missing authorization error, got %q", response.Message)
	}
}

func TestAPIAuthRejectsMalformedHeader(t *testing.T) {
	server := newTestServer(&config.Config{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staffs", nil)
	req.Header.Set("Authorization", "Basic abc123")
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, recorder.Code)
	}
}

func TestMaintenanceMode(t *testing.T) {
	cfg := &config.Config{}
	cfg.Server.Maintenance = true
	server := newTestServer(cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/staffs", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	recorder := httptest.NewRecorder()

	server.Router().ServeHTTP(recorder, req)

	if recorder.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, recorder.Code)
	}

	var response envelopeResponse
	if err := json.Unmarshal(recorder.Body.Bytes(), &response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if response.Code != "990" {
		t.Fatalf("expected maintenance code 990, got %q", response.Code)
	}
}
