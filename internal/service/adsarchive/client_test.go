package adsarchive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"adscope/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  string
	}{
		{"clean token", "EAAtoken123", "EAAtoken123"},
		{"surrounding whitespace", "  EAAtoken123  ", "EAAtoken123"},
		{"embedded newline from paste", "EAAtoken\n123\r\n", "EAAtoken123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeToken(tt.token); got != tt.want {
				t.Errorf("sanitizeToken(%q) = %q, want %q", tt.token, got, tt.want)
			}
		})
	}
}

func TestFetchPageAdsPagination(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("after") == "page2" {
			fmt.Fprint(w, `{"data":[
				{"id":"ad-3","page_id":"p1","page_name":"Acme","ad_snapshot_url":"https://snapshot.example/3","ad_delivery_start_time":"2026-08-01"}
			],"paging":{}}`)
			return
		}
		fmt.Fprintf(w, `{"data":[
			{"id":"ad-1","page_id":"p1","page_name":"Acme","ad_creative_bodies":["copy one"],"ad_snapshot_url":"https://snapshot.example/1","ad_delivery_start_time":"2026-07-15","ad_delivery_stop_time":"2026-08-10","eu_total_reach":1200},
			{"id":"ad-2","page_id":"p1","page_name":"Acme","ad_snapshot_url":"https://snapshot.example/2","ad_delivery_start_time":"2026-07-20"},
			{"id":"","page_id":"p1","ad_snapshot_url":""}
		],"paging":{"next":"%s/ads_archive?after=page2"}}`, srv.URL)
	}))
	defer srv.Close()

	client := NewClient("token", "US", discardLogger())
	client.baseURL = srv.URL

	ads, err := client.FetchPageAds(context.Background(), "p1")
	if err != nil {
		t.Fatal(err)
	}

	// The malformed row is dropped, both pages are followed.
	if len(ads) != 3 {
		t.Fatalf("expected 3 ads, got %d", len(ads))
	}
	if ads[0].ID != "ad-1" || ads[2].ID != "ad-3" {
		t.Errorf("ads = %v, %v, %v", ads[0].ID, ads[1].ID, ads[2].ID)
	}
	if ads[0].Body == nil || *ads[0].Body != "copy one" {
		t.Error("first ad should carry its creative body")
	}
	if ads[0].StopTime == nil {
		t.Error("first ad should be inactive")
	}
	if ads[1].StopTime != nil {
		t.Error("second ad should still be active")
	}
	if ads[0].Reach != 1200 {
		t.Errorf("Reach = %d", ads[0].Reach)
	}
}

func TestFetchPageAdsInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"Invalid OAuth access token.","code":190}}`)
	}))
	defer srv.Close()

	client := NewClient("bad-token", "US", discardLogger())
	client.baseURL = srv.URL

	_, err := client.FetchPageAds(context.Background(), "p1")
	if !errors.Is(err, domain.ErrCredentialInvalid) {
		t.Errorf("error = %v, want ErrCredentialInvalid", err)
	}
}

func TestParseArchiveDate(t *testing.T) {
	tests := []struct {
		value   string
		wantErr bool
	}{
		{"2026-08-01", false},
		{"2026-08-01T12:30:00+0000", true},
		{"2026-08-01T12:30:00+00:00", false},
		{"not a date", true},
	}

	for _, tt := range tests {
		_, err := parseArchiveDate(tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseArchiveDate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}
