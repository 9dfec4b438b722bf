package httpapi

import (
	"net/http"
	"testing"
	"time"

	"github.com/usrssssx/cannibal-ai/internal/db"
)

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(newFakeDataStore(), nil, Options{})
	c, rec := newJSONContext(http.MethodGet, "/api/v1/health", "")
	if err := server.handleHealth(c); err != nil {
		t.Fatalf("handleHealth() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if envelope := decodeJSend(t, rec); envelope.Status != "success" {
		t.Fatalf("response status = %q, want success", envelope.Status)
	}
}

func TestHandleListSources(t *testing.T) {
	t.Parallel()

	store := newFakeDataStore()
	store.sources = []db.SourceSummary{{SourceID: 1, Name: "Tech", PostCount: 4}}
	server := newTestServer(store, nil, Options{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/sources", "")
	if err := server.handleListSources(c); err != nil {
		t.Fatalf("handleListSources() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestPipelineStatsDayParam(t *testing.T) {
	t.Parallel()

	store := newFakeDataStore()
	server := newTestServer(store, nil, Options{})

	c, rec := newJSONContext(http.MethodGet, "/api/v1/stats?day=2025-03-01", "")
	if err := server.handlePipelineStats(c); err != nil {
		t.Fatalf("handlePipelineStats() error = %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if store.statsDay == nil {
		t.Fatalf("stats never queried")
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !store.statsDay.Equal(want) {
		t.Fatalf("stats day = %s, want %s", store.statsDay, want)
	}

	c, rec = newJSONContext(http.MethodGet, "/api/v1/stats?day=01.03.2025", "")
	if err := server.handlePipelineStats(c); err != nil {
		t.Fatalf("handlePipelineStats() error = %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d for a bad day", rec.Code, http.StatusBadRequest)
	}
}

func TestParsePositiveInt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw     string
		want    int
		wantErr bool
	}{
		{"", 25, false},
		{"10", 10, false},
		{" 10 ", 10, false},
		{"0", 0, true},
		{"201", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePositiveInt(tt.raw, 25, 1, 200)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parsePositiveInt(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if err == nil && got != tt.want {
			t.Fatalf("parsePositiveInt(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseBoolFilter(t *testing.T) {
	t.Parallel()

	boolValue := func(v bool) *bool { return &v }
	tests := []struct {
		raw     string
		want    *bool
		wantErr bool
	}{
		{"", nil, false},
		{"true", boolValue(true), false},
		{"TRUE", boolValue(true), false},
		{"1", boolValue(true), false},
		{"false", boolValue(false), false},
		{"no", boolValue(false), false},
		{"maybe", nil, true},
	}
	for _, tt := range tests {
		got, err := parseBoolFilter(tt.raw)
		if (err != nil) != tt.wantErr {
			t.Fatalf("parseBoolFilter(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
		}
		if tt.wantErr {
			continue
		}
		if (got == nil) != (tt.want == nil) {
			t.Fatalf("parseBoolFilter(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		if got != nil && *got != *tt.want {
			t.Fatalf("parseBoolFilter(%q) = %v, want %v", tt.raw, *got, *tt.want)
		}
	}
}
