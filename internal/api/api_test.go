// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/chronicle/internal/config"
	"github.com/tomtom215/chronicle/internal/relational"
	"github.com/tomtom215/chronicle/internal/search"
)

type fakeIgnore struct {
	mu     sync.Mutex
	set    map[string]bool
	addErr error
}

func (f *fakeIgnore) List() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.set))
	for id := range f.set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (f *fakeIgnore) Add(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return false, f.addErr
	}
	if f.set[id] {
		return false, nil
	}
	f.set[id] = true
	return true, nil
}

func (f *fakeIgnore) Remove(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.set[id] {
		return false, nil
	}
	delete(f.set, id)
	return true, nil
}

type fakeRelational struct {
	versions  map[string][]relational.Version
	forgotten []string
}

func (f *fakeRelational) Versions(_ context.Context, id string) ([]relational.Version, error) {
	return f.versions[id], nil
}

func (f *fakeRelational) ForgetChannel(_ context.Context, id string) (map[string]int64, error) {
	f.forgotten = append(f.forgotten, id)
	return map[string]int64{"messages": 3, "channels": 1}, nil
}

type fakeSearch struct {
	docs      map[string]*search.Document
	forgotten []string
}

func (f *fakeSearch) Get(_ context.Context, id string) (*search.Document, error) {
	if d, ok := f.docs[id]; ok {
		return d, nil
	}
	return nil, search.ErrDocumentNotFound
}

func (f *fakeSearch) ForgetChannel(_ context.Context, id string) (int, error) {
	f.forgotten = append(f.forgotten, id)
	return 2, nil
}

type fixture struct {
	ignore     *fakeIgnore
	relational *fakeRelational
	search     *fakeSearch
	handler    http.Handler
}

func newFixture(t *testing.T, perMinute int, checks map[string]HealthChecker) *fixture {
	t.Helper()
	f := &fixture{
		ignore: &fakeIgnore{set: map[string]bool{"100": true}},
		relational: &fakeRelational{versions: map[string][]relational.Version{
			"555": {
				{CreatedAt: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Content: "edited"},
				{CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Content: "original"},
			},
		}},
		search: &fakeSearch{docs: map[string]*search.Document{
			"555": {ID: "555", Content: "edited", Has: []string{search.TagLink}},
		}},
	}
	f.handler = NewRouter(config.ServerConfig{Timeout: time.Second, AdminRequestsPerMinute: perMinute}, Deps{
		Checks:     checks,
		Ignore:     f.ignore,
		Relational: f.relational,
		Search:     f.search,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var resp Response
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestLive(t *testing.T) {
	f := newFixture(t, 0, nil)
	rec, resp := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || resp.Status != "success" {
		t.Fatalf("GET /healthz = %d %q", rec.Code, resp.Status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	if resp.Metadata.RequestID != rec.Header().Get("X-Request-ID") {
		t.Errorf("metadata request id = %q, header = %q", resp.Metadata.RequestID, rec.Header().Get("X-Request-ID"))
	}
}

func TestReady(t *testing.T) {
	healthy := HealthFunc(func(context.Context) error { return nil })
	broken := HealthFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]HealthChecker
		wantCode   int
		wantStatus string
	}{
		{"no checks", nil, http.StatusOK, "ready"},
		{"all healthy", map[string]HealthChecker{"transport": healthy, "relational": healthy}, http.StatusOK, "ready"},
		{"one failing", map[string]HealthChecker{"transport": healthy, "relational": broken}, http.StatusServiceUnavailable, "not_ready"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 0, tt.checks)
			rec, resp := f.do(t, http.MethodGet, "/readyz", "")
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			data, _ := resp.Data.(map[string]any)
			if data["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %q", data["status"], tt.wantStatus)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 0, nil)
	f.do(t, http.MethodGet, "/healthz", "")

	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chronicle_api_requests_total") {
		t.Error("metrics output missing chronicle_api_requests_total")
	}
}

func TestIgnoreEndpoints(t *testing.T) {
	f := newFixture(t, 0, nil)

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"add new", http.MethodPost, "/admin/ignore", `{"channel_id":"200"}`, http.StatusCreated},
		{"add existing", http.MethodPost, "/admin/ignore", `{"channel_id":"200"}`, http.StatusOK},
		{"add malformed id", http.MethodPost, "/admin/ignore", `{"channel_id":"general"}`, http.StatusBadRequest},
		{"add missing id", http.MethodPost, "/admin/ignore", `{}`, http.StatusBadRequest},
		{"add unknown field", http.MethodPost, "/admin/ignore", `{"channel":"200"}`, http.StatusBadRequest},
		{"add bad json", http.MethodPost, "/admin/ignore", `{`, http.StatusBadRequest},
		{"remove present", http.MethodDelete, "/admin/ignore/100", "", http.StatusOK},
		{"remove absent", http.MethodDelete, "/admin/ignore/100", "", http.StatusNotFound},
		{"remove malformed", http.MethodDelete, "/admin/ignore/abc", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec, _ := f.do(t, tt.method, tt.path, tt.body)
		if rec.Code != tt.wantCode {
			t.Errorf("%s: code = %d, want %d (body %s)", tt.name, rec.Code, tt.wantCode, rec.Body.String())
		}
	}

	_, resp := f.do(t, http.MethodGet, "/admin/ignore", "")
	got, _ := resp.Data.([]any)
	if len(got) != 1 || got[0] != "200" {
		t.Errorf("ignore list = %v, want [200]", resp.Data)
	}
}

func TestAddIgnored_StoreFailure(t *testing.T) {
	f := newFixture(t, 0, nil)
	f.ignore.addErr = errors.New("disk full")

	rec, resp := f.do(t, http.MethodPost, "/admin/ignore", `{"channel_id":"300"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", rec.Code)
	}
	if resp.Error == nil || resp.Error.Code != "IGNORE_UPDATE_FAILED" {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMessageVersions(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec, resp := f.do(t, http.MethodGet, "/admin/messages/555/versions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	versions, _ := resp.Data.([]any)
	if len(versions) != 2 {
		t.Fatalf("versions = %v", resp.Data)
	}
	first, _ := versions[0].(map[string]any)
	if first["content"] != "edited" {
		t.Errorf("newest version = %v, want edited", first["content"])
	}

	if rec, _ := f.do(t, http.MethodGet, "/admin/messages/777/versions", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown message code = %d, want 404", rec.Code)
	}
}

func TestSearchDocument(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec, resp := f.do(t, http.MethodGet, "/admin/search/555", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d", rec.Code)
	}
	doc, _ := resp.Data.(map[string]any)
	if doc["content"] != "edited" {
		t.Errorf("doc = %v", doc)
	}

	rec, resp = f.do(t, http.MethodGet, "/admin/search/777", "")
	if rec.Code != http.StatusNotFound || resp.Error == nil || resp.Error.Code != "NOT_FOUND" {
		t.Errorf("missing doc = %d %+v", rec.Code, resp.Error)
	}
}

func TestForgetChannel(t *testing.T) {
	f := newFixture(t, 0, nil)

	rec, resp := f.do(t, http.MethodPost, "/admin/channels/42/forget", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d (%s)", rec.Code, rec.Body.String())
	}
	if len(f.relational.forgotten) != 1 || f.relational.forgotten[0] != "42" {
		t.Errorf("relational forgotten = %v", f.relational.forgotten)
	}
	if len(f.search.forgotten) != 1 || f.search.forgotten[0] != "42" {
		t.Errorf("search forgotten = %v", f.search.forgotten)
	}
	data, _ := resp.Data.(map[string]any)
	if data["search_documents"] != float64(2) {
		t.Errorf("search_documents = %v", data["search_documents"])
	}
}

func TestRoutesDisabledWithoutDeps(t *testing.T) {
	h := NewRouter(config.ServerConfig{}, Deps{})
	for _, path := range []string{"/admin/ignore", "/admin/search/1", "/admin/messages/1/versions"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", path, rec.Code)
		}
	}
}

func TestAdminRateLimit(t *testing.T) {
	f := newFixture(t, 2, nil)

	codes := make([]int, 0, 3)
	for range 3 {
		rec, _ := f.do(t, http.MethodGet, "/admin/ignore", "")
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	// Probes are outside the limited group.
	if rec, _ := f.do(t, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz after limit = %d", rec.Code)
	}
}

func TestSanitizeLogValue(t *testing.T) {
	if got := sanitizeLogValue("a\nb\x7f"); got != `a\x0ab\x7f` {
		t.Errorf("sanitizeLogValue() = %q", got)
	}
}
