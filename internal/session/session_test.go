// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/usharma123/chatbot/internal/cloud"
	"github.com/usharma123/chatbot/internal/search"
)

const testKey = "sk-or-test1234567890abcdefghijklmnopqrstuv"

// chatPayload captures the messages the completion server received.
type chatPayload struct {
	Model    string              `json:"model"`
	Messages []cloud.ChatMessage `json:"messages"`
}

// newCompletionServer returns a server that streams the given tokens and
// records the request payload into got.
func newCompletionServer(t *testing.T, tokens []string, got *chatPayload) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			if err := json.NewDecoder(r.Body).Decode(got); err != nil {
				t.Errorf("decode chat payload: %v", err)
			}
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, tok := range tokens {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":\"\"}]}\n\n", tok)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func newSearchServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[{"title":"Result","url":"https://example.com","content":"a snippet","published_date":"2025-06-01"}]}`)
	}))
}

func TestNewSessionHasIdentity(t *testing.T) {
	s := New(cloud.NewOpenRouterClient(testKey), search.NewClient(""))

	if s.ID == "" {
		t.Error("session should have an ID")
	}
	if s.Conversation == nil || !s.Conversation.IsEmpty() {
		t.Error("new session should have an empty conversation")
	}
	if s.SearchEnabled() {
		t.Error("search should start disabled")
	}
}

func TestRunTurnStreamsAndAppends(t *testing.T) {
	var payload chatPayload
	server := newCompletionServer(t, []string{"Hello", " world"}, &payload)
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	var streamed strings.Builder
	msg, err := s.RunTurn(context.Background(), "hi there", func(tok string) {
		streamed.WriteString(tok)
	})
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	if streamed.String() != "Hello world" {
		t.Errorf("streamed tokens = %q", streamed.String())
	}
	if msg.Content != "Hello world" {
		t.Errorf("assistant content = %q", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("assistant message should be finalized")
	}

	// History: clean user message plus assistant reply.
	if n := s.Conversation.MessageCount(); n != 2 {
		t.Fatalf("history has %d messages, want 2", n)
	}
	if got := s.Conversation.GetLastUserMessage().Content; got != "hi there" {
		t.Errorf("user message in history = %q", got)
	}

	// Payload sent upstream matches history for a searchless turn.
	if len(payload.Messages) != 1 || payload.Messages[0].Content != "hi there" {
		t.Errorf("upstream payload = %+v", payload.Messages)
	}
}

func TestRunTurnSearchAugmentsPayloadOnly(t *testing.T) {
	searchSrv := newSearchServer(t)
	defer searchSrv.Close()

	var payload chatPayload
	chatSrv := newCompletionServer(t, []string{"answer"}, &payload)
	defer chatSrv.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(chatSrv.URL)
	sc := search.NewClient("tvly-test").WithBaseURL(searchSrv.URL)
	s := New(c, sc)
	s.EnableSearch(true)

	msg, err := s.RunTurn(context.Background(), "latest Go release", nil)
	if err != nil {
		t.Fatalf("RunTurn failed: %v", err)
	}

	// Outbound payload carries the search context.
	if len(payload.Messages) != 1 {
		t.Fatalf("payload has %d messages", len(payload.Messages))
	}
	sent := payload.Messages[0].Content
	if !strings.HasPrefix(sent, "latest Go release") {
		t.Errorf("payload should start with the raw query: %q", sent)
	}
	if !strings.Contains(sent, "https://example.com") {
		t.Errorf("payload missing search context: %q", sent)
	}

	// Displayed transcript stays clean.
	if got := s.Conversation.GetLastUserMessage().Content; got != "latest Go release" {
		t.Errorf("transcript user message = %q, must not include search context", got)
	}

	// Sources attached to the assistant message that used them.
	if !msg.HasSources() {
		t.Fatal("assistant message should carry sources")
	}
	if msg.Sources[0].URL != "https://example.com" {
		t.Errorf("source = %+v", msg.Sources[0])
	}
}

func TestRunTurnSearchDegradation(t *testing.T) {
	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer searchSrv.Close()

	var payload chatPayload
	chatSrv := newCompletionServer(t, []string{"answer"}, &payload)
	defer chatSrv.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(chatSrv.URL)
	sc := search.NewClient("tvly-test").WithBaseURL(searchSrv.URL)
	s := New(c, sc)
	s.EnableSearch(true)

	msg, err := s.RunTurn(context.Background(), "a question", nil)
	if err != nil {
		t.Fatalf("search failure must not fail the turn: %v", err)
	}

	// Degraded search: outbound prompt equals the raw user text.
	if payload.Messages[0].Content != "a question" {
		t.Errorf("payload = %q, want raw query only", payload.Messages[0].Content)
	}
	if msg.HasSources() {
		t.Errorf("degraded turn should have no sources, got %+v", msg.Sources)
	}
}

func TestRunTurnStreamErrorStoredInHistory(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	msg, err := s.RunTurn(context.Background(), "hi", nil)
	if err == nil {
		t.Fatal("expected stream error")
	}

	// The error terminates the turn but is captured as assistant text.
	if !strings.HasPrefix(msg.Content, "Error: ") {
		t.Errorf("assistant content = %q, want error text", msg.Content)
	}
	if msg.IsStreaming {
		t.Error("errored message should not be left streaming")
	}
	if s.Conversation.MessageCount() != 2 {
		t.Errorf("history has %d messages, want user + error reply", s.Conversation.MessageCount())
	}
}

func TestRunTurnRetriesTransientFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"server busy"}}`)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"recovered\"},\"finish_reason\":\"\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	var streamed strings.Builder
	msg, err := s.RunTurn(context.Background(), "hi", func(tok string) {
		streamed.WriteString(tok)
	})
	if err != nil {
		t.Fatalf("RunTurn should recover from a transient failure: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
	if msg.Content != "recovered" {
		t.Errorf("assistant content = %q", msg.Content)
	}
	if streamed.String() != "recovered" {
		t.Errorf("streamed = %q, retry must not duplicate tokens", streamed.String())
	}
}

func TestRunTurnMultiTurnHistory(t *testing.T) {
	var payload chatPayload
	server := newCompletionServer(t, []string{"reply"}, &payload)
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	if _, err := s.RunTurn(context.Background(), "first", nil); err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if _, err := s.RunTurn(context.Background(), "second", nil); err != nil {
		t.Fatalf("turn 2: %v", err)
	}

	// Second request carries the full prior history.
	if len(payload.Messages) != 3 {
		t.Fatalf("second payload has %d messages, want 3", len(payload.Messages))
	}
	if payload.Messages[0].Content != "first" || payload.Messages[1].Content != "reply" || payload.Messages[2].Content != "second" {
		t.Errorf("payload order wrong: %+v", payload.Messages)
	}
}

func TestSessionReset(t *testing.T) {
	server := newCompletionServer(t, []string{"x"}, nil)
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	if _, err := s.RunTurn(context.Background(), "hello", nil); err != nil {
		t.Fatalf("RunTurn: %v", err)
	}

	id := s.ID
	s.Reset()

	if !s.Conversation.IsEmpty() {
		t.Error("reset should clear history")
	}
	if s.ID != id {
		t.Error("reset should keep session identity")
	}
}

func TestSessionSettings(t *testing.T) {
	s := New(cloud.NewOpenRouterClient(testKey), search.NewClient(""))

	s.SetModel("sonnet")
	if got := s.Model(); got != "anthropic/claude-3.5-sonnet" {
		t.Errorf("model = %q", got)
	}
	if s.Conversation.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("conversation model = %q", s.Conversation.Model)
	}

	s.SetTemperature(1.2)
	if got := s.Temperature(); got != 1.2 {
		t.Errorf("temperature = %v", got)
	}

	s.EnableSearch(true)
	if !s.SearchEnabled() {
		t.Error("search should be enabled")
	}
}

func TestRunTurnFinalizesStats(t *testing.T) {
	server := newCompletionServer(t, []string{"a", "b", "c"}, nil)
	defer server.Close()

	c := cloud.NewOpenRouterClient(testKey).WithBaseURL(server.URL)
	s := New(c, search.NewClient(""))

	msg, err := s.RunTurn(context.Background(), "hi", nil)
	if err != nil {
		t.Fatalf("RunTurn: %v", err)
	}
	if msg.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", msg.TokenCount)
	}
	if msg.TotalDuration <= 0 {
		t.Error("TotalDuration should be recorded")
	}
}
