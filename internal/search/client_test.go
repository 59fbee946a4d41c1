// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestClient(url string) *Client {
	return NewClient("tvly-test-key").WithBaseURL(url)
}

func TestSearchParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Query != "go generics" {
			t.Errorf("query = %q", req.Query)
		}
		if req.APIKey == "" {
			t.Error("api_key missing from request")
		}

		fmt.Fprint(w, `{"results":[
			{"title":"Go Blog","url":"https://go.dev/blog","content":"An introduction to generics.","published_date":"2022-03-15"},
			{"title":"Spec","url":"https://go.dev/ref/spec","content":"Type parameters."}
		]}`)
	}))
	defer server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "go generics")
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Go Blog" || results[0].URL != "https://go.dev/blog" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[0].PublishedDate != "2022-03-15" {
		t.Errorf("published date = %q", results[0].PublishedDate)
	}
	if results[1].Summary != "Type parameters." {
		t.Errorf("summary = %q", results[1].Summary)
	}
}

func TestSearchTruncatesLongSummaries(t *testing.T) {
	long := strings.Repeat("é", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"results":[{"title":"T","url":"https://example.com","content":%q}]}`, long)
	}))
	defer server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "q")
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}

	if n := len([]rune(results[0].Summary)); n > MaxSummaryLength {
		t.Errorf("summary has %d runes, want <= %d", n, MaxSummaryLength)
	}
	// Truncation must not split a multi-byte rune.
	if !strings.HasSuffix(results[0].Summary, "...") {
		t.Errorf("truncated summary should end with ellipsis")
	}
}

func TestSearchDegradesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "q")
	if results != nil {
		t.Errorf("non-200 should degrade to nil results, got %v", results)
	}
}

func TestSearchDegradesOnTransportError(t *testing.T) {
	// Point at a closed server so the dial fails.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "q")
	if results != nil {
		t.Errorf("transport failure should degrade to nil results, got %v", results)
	}
}

func TestSearchDegradesOnMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))
	defer server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "q")
	if results != nil {
		t.Errorf("malformed response should degrade to nil results, got %v", results)
	}
}

func TestSearchUnconfiguredReturnsNothing(t *testing.T) {
	c := NewClient("")
	if c.IsConfigured() {
		t.Error("empty key should not be configured")
	}
	if results := c.Search(context.Background(), "q"); results != nil {
		t.Errorf("unconfigured search should return nil, got %v", results)
	}
}

func TestSearchEmptyQueryReturnsNothing(t *testing.T) {
	c := NewClient("tvly-test-key")
	if results := c.Search(context.Background(), "   "); results != nil {
		t.Errorf("blank query should return nil, got %v", results)
	}
}

func TestSearchRespectsMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var entries []string
		for i := 0; i < 10; i++ {
			entries = append(entries, fmt.Sprintf(`{"title":"R%d","url":"https://example.com/%d","content":"x"}`, i, i))
		}
		fmt.Fprintf(w, `{"results":[%s]}`, strings.Join(entries, ","))
	}))
	defer server.Close()

	results := newTestClient(server.URL).WithMaxResults(3).Search(context.Background(), "q")
	if len(results) != 3 {
		t.Errorf("got %d results, want 3", len(results))
	}
}

func TestSearchSkipsResultsMissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[
			{"title":"","url":"https://example.com","content":"no title"},
			{"title":"No URL","url":"","content":"no url"},
			{"title":"OK","url":"https://example.com/ok","content":"kept"}
		]}`)
	}))
	defer server.Close()

	results := newTestClient(server.URL).Search(context.Background(), "q")
	if len(results) != 1 || results[0].Title != "OK" {
		t.Errorf("results = %+v, want single OK entry", results)
	}
}

func TestSearchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer server.Close()

	c := newTestClient(server.URL).WithTimeout(50 * time.Millisecond)
	start := time.Now()
	results := c.Search(context.Background(), "q")
	if results != nil {
		t.Errorf("timed-out search should degrade to nil, got %v", results)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("search took %v, timeout not applied", elapsed)
	}
}

// =============================================================================
// PROMPT BUILDING TESTS
// =============================================================================

func TestBuildPromptNoResults(t *testing.T) {
	// Degraded search must leave the outbound prompt identical to the
	// raw user text.
	if got := BuildPrompt("what is Go", nil); got != "what is Go" {
		t.Errorf("prompt with no results = %q", got)
	}
	if got := BuildPrompt("what is Go", []Result{}); got != "what is Go" {
		t.Errorf("prompt with empty results = %q", got)
	}
}

func TestBuildPromptAppendsContext(t *testing.T) {
	results := []Result{
		{Title: "Go", URL: "https://go.dev", Summary: "The Go programming language.", PublishedDate: "2024-01-01"},
		{Title: "Tour", URL: "https://go.dev/tour", Summary: "An interactive tour."},
	}

	prompt := BuildPrompt("what is Go", results)

	if !strings.HasPrefix(prompt, "what is Go") {
		t.Error("prompt must start with the raw query")
	}
	for _, want := range []string{"[1] Go", "https://go.dev", "Published: 2024-01-01", "[2] Tour", "An interactive tour."} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
