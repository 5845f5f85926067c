package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// noDelay keeps tests fast; the courtesy pause is covered separately.
func noDelay() Option { return WithRequestDelay(0) }

const devToolsJSON = `{
	"category": {
		"id": "development-tools",
		"slug": "development-tools",
		"description": "Ways to develop and manage packages.",
		"subcategories": [
			{"id": "development-tools::build-utils", "slug": "development-tools::build-utils"},
			{"id": "development-tools::cargo-plugins", "slug": "development-tools::cargo-plugins"}
		]
	}
}`

// TestNew_BaseURL tests URL normalization and the default endpoint
func TestNew_BaseURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", DefaultBaseURL},
		{"https://crates.io/api", "https://crates.io/api"},
		{"https://crates.io/api/", "https://crates.io/api"},
		{"http://localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080/", "http://localhost:8080"},
	}

	for _, tt := range tests {
		c := New(tt.input)
		if c.BaseURL() != tt.expected {
			t.Errorf("New(%q).BaseURL() = %q, want %q", tt.input, c.BaseURL(), tt.expected)
		}
	}
}

// TestLookup_Found tests a successful taxonomy lookup
func TestLookup_Found(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/categories/development-tools" {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, devToolsJSON)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"detail": "does not exist"}]}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	cat, found, err := c.Lookup(context.Background(), "development-tools")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !found {
		t.Fatal("Expected category to be found")
	}
	if cat.Slug != "development-tools" {
		t.Errorf("Slug = %q, want development-tools", cat.Slug)
	}
	if len(cat.Subcategories) != 2 {
		t.Errorf("Expected 2 subcategories, got %d", len(cat.Subcategories))
	}
	if !cat.HasSubcategory("development-tools::build-utils") {
		t.Error("Expected qualified subcategory slug to match")
	}
	if cat.HasSubcategory("build-utils") {
		t.Error("Bare subcategory slug must not match")
	}
}

// TestLookup_NotFound tests the registry's explicit absence shape
func TestLookup_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": [{"detail": "category not found"}]}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	cat, found, err := c.Lookup(context.Background(), "nonexistent-cat")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if found {
		t.Error("Expected not found")
	}
	if cat != nil {
		t.Error("Category should be nil for a miss")
	}
}

// TestLookup_CachesFound tests that a repeated lookup issues one request
func TestLookup_CachesFound(t *testing.T) {
	callCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	ctx := context.Background()

	first, _, err := c.Lookup(ctx, "development-tools")
	if err != nil {
		t.Fatalf("First Lookup failed: %v", err)
	}
	second, found, err := c.Lookup(ctx, "development-tools")
	if err != nil {
		t.Fatalf("Second Lookup failed: %v", err)
	}

	if atomic.LoadInt32(&callCount) != 1 {
		t.Errorf("Expected 1 HTTP call (cached), got %d", callCount)
	}
	if !found || second != first {
		t.Error("Second lookup should return the identical cached entry")
	}
}

// TestLookup_CachesNotFound tests that absences are memoized too
func TestLookup_CachesNotFound(t *testing.T) {
	callCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": []}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	ctx := context.Background()

	_, _, _ = c.Lookup(ctx, "missing")
	_, found, err := c.Lookup(ctx, "missing")
	if err != nil {
		t.Fatalf("Second Lookup failed: %v", err)
	}
	if found {
		t.Error("Expected cached absence")
	}
	if atomic.LoadInt32(&callCount) != 1 {
		t.Errorf("Expected 1 HTTP call for repeated miss, got %d", callCount)
	}
}

// TestLookup_DistinctSlugsNotShared tests that different slugs are fetched separately
func TestLookup_DistinctSlugsNotShared(t *testing.T) {
	callCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	ctx := context.Background()

	_, _, _ = c.Lookup(ctx, "one")
	_, _, _ = c.Lookup(ctx, "two")

	if atomic.LoadInt32(&callCount) != 2 {
		t.Errorf("Expected 2 HTTP calls for distinct slugs, got %d", callCount)
	}
}

// TestLookup_MissingCategoryKey tests a 200 body without the expected key
func TestLookup_MissingCategoryKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"crate": {"name": "not-a-category"}}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	_, _, err := c.Lookup(context.Background(), "whatever")
	if err == nil {
		t.Fatal("Expected protocol error for missing category key")
	}
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("errors.Is(err, ErrProtocol) = false for %v", err)
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *ProtocolError, got %T", err)
	}
	if perr.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", perr.StatusCode)
	}
	if !strings.Contains(perr.Reason, "unexpected JSON data") {
		t.Errorf("Reason = %q, want unexpected JSON data", perr.Reason)
	}
}

// TestLookup_Malformed404 tests a 404 body without the errors marker
func TestLookup_Malformed404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message": "gone"}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	_, _, err := c.Lookup(context.Background(), "whatever")
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected *ProtocolError, got %v", err)
	}
	if perr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", perr.StatusCode)
	}
}

// TestLookup_NonJSONBody tests an unparseable response
func TestLookup_NonJSONBody(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusNotFound} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, `<html>definitely not json</html>`)
		}))

		c := New(server.URL, noDelay())
		_, _, err := c.Lookup(context.Background(), "whatever")
		if !errors.Is(err, ErrProtocol) {
			t.Errorf("status %d: expected protocol error, got %v", status, err)
		}
		server.Close()
	}
}

// TestLookup_UnexpectedStatus tests statuses outside {200, 404}
func TestLookup_UnexpectedStatus(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusInternalServerError, http.StatusServiceUnavailable} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
			fmt.Fprint(w, `rate limited or broken`)
		}))

		c := New(server.URL, noDelay())
		_, _, err := c.Lookup(context.Background(), "whatever")
		var perr *ProtocolError
		if !errors.As(err, &perr) {
			t.Fatalf("status %d: expected *ProtocolError, got %v", status, err)
		}
		if perr.StatusCode != status {
			t.Errorf("StatusCode = %d, want %d", perr.StatusCode, status)
		}
		if !strings.Contains(perr.Body, "rate limited or broken") {
			t.Errorf("ProtocolError should carry the raw body, got %q", perr.Body)
		}
		server.Close()
	}
}

// TestLookup_UserAgent tests the client identifier header
func TestLookup_UserAgent(t *testing.T) {
	var gotUA atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	c := New(server.URL, noDelay(), WithUserAgent("categorycheck-test/0.0"))
	_, _, err := c.Lookup(context.Background(), "development-tools")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if ua, _ := gotUA.Load().(string); ua != "categorycheck-test/0.0" {
		t.Errorf("User-Agent = %q, want categorycheck-test/0.0", ua)
	}
}

// TestLookup_SlugEscaping tests that odd slugs stay on the category path
func TestLookup_SlugEscaping(t *testing.T) {
	var gotPath atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath.Store(r.URL.EscapedPath())
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errors": []}`)
	}))
	defer server.Close()

	c := New(server.URL, noDelay())
	_, _, _ = c.Lookup(context.Background(), "odd/slug")

	if p, _ := gotPath.Load().(string); p != "/v1/categories/odd%2Fslug" {
		t.Errorf("Request path = %q, want /v1/categories/odd%%2Fslug", p)
	}
}

// TestLookup_DelayCancellation tests that the courtesy pause honors ctx
func TestLookup_DelayCancellation(t *testing.T) {
	callCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	c := New(server.URL, WithRequestDelay(10*time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, _, err := c.Lookup(ctx, "development-tools")
	if err == nil {
		t.Fatal("Expected error for cancelled context")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Cancellation took too long: %v", elapsed)
	}
	if atomic.LoadInt32(&callCount) != 0 {
		t.Errorf("Expected no HTTP calls after cancellation, got %d", callCount)
	}
}

// TestLookup_DelayBeforeRequest tests that uncached lookups pause first
func TestLookup_DelayBeforeRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	delay := 50 * time.Millisecond
	c := New(server.URL, WithRequestDelay(delay))
	ctx := context.Background()

	start := time.Now()
	if _, _, err := c.Lookup(ctx, "development-tools"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("Uncached lookup returned in %v, want at least %v", elapsed, delay)
	}

	// Cache hit must skip the pause entirely.
	start = time.Now()
	if _, _, err := c.Lookup(ctx, "development-tools"); err != nil {
		t.Fatalf("Cached Lookup failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= delay {
		t.Errorf("Cached lookup paused for %v, want no pause", elapsed)
	}
}

// TestLookup_WithInjectedCache tests an externally owned cache
func TestLookup_WithInjectedCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	cache := NewMemoryCache()
	c := New(server.URL, noDelay(), WithCache(cache))

	if _, _, err := c.Lookup(context.Background(), "development-tools"); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("Expected 1 memoized URL, got %d", cache.Len())
	}
}

// TestLookup_NoopCache tests that NoopCache forces a request every time
func TestLookup_NoopCache(t *testing.T) {
	callCount := int32(0)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&callCount, 1)
		fmt.Fprint(w, devToolsJSON)
	}))
	defer server.Close()

	c := New(server.URL, noDelay(), WithCache(NoopCache{}))
	ctx := context.Background()

	_, _, _ = c.Lookup(ctx, "development-tools")
	_, _, _ = c.Lookup(ctx, "development-tools")

	if atomic.LoadInt32(&callCount) != 2 {
		t.Errorf("Expected 2 HTTP calls with NoopCache, got %d", callCount)
	}
}

// TestLookup_ServerUnreachable tests transport-level failures
func TestLookup_ServerUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // shut it down before use

	c := New(server.URL, noDelay())
	_, _, err := c.Lookup(context.Background(), "anything")
	if !errors.Is(err, ErrProtocol) {
		t.Errorf("Expected protocol error for unreachable registry, got %v", err)
	}
}
