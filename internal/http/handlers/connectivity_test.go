package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleConnectivity(t *testing.T) {
	tests := []struct {
		name        string
		checks      map[string]Check
		wantStatus  int
		wantHealthy bool
	}{
		{
			name: "all upstreams reachable",
			checks: map[string]Check{
				"database": func(ctx context.Context) (string, error) { return "", nil },
				"scraper":  func(ctx context.Context) (string, error) { return "intel-team", nil },
			},
			wantStatus:  http.StatusOK,
			wantHealthy: true,
		},
		{
			name: "one credential rejected",
			checks: map[string]Check{
				"database": func(ctx context.Context) (string, error) { return "", nil },
				"scraper":  func(ctx context.Context) (string, error) { return "", errors.New("credential rejected") },
			},
			wantStatus:  http.StatusServiceUnavailable,
			wantHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewConnectivityHandler(testLogger(), tt.checks)

			rec := httptest.NewRecorder()
			h.HandleConnectivity(rec, httptest.NewRequest(http.MethodGet, "/api/v1/connectivity", nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body struct {
				Healthy bool                         `json:"healthy"`
				Checks  map[string]map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Healthy != tt.wantHealthy {
				t.Errorf("healthy = %v, want %v", body.Healthy, tt.wantHealthy)
			}
			if tt.wantHealthy {
				if got := body.Checks["scraper"]["account"]; got != "intel-team" {
					t.Errorf("scraper account = %q, want %q", got, "intel-team")
				}
			} else {
				if body.Checks["scraper"]["status"] != "error" {
					t.Errorf("scraper check = %+v, want error status", body.Checks["scraper"])
				}
			}
		})
	}
}
