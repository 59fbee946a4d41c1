// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const testAPIKey = "sk-or-test1234567890abcdefghijklmnopqrstuv"

// sseResponse writes a minimal OpenRouter SSE stream to the writer.
func sseResponse(w http.ResponseWriter, tokens []string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, tok := range tokens {
		fmt.Fprintf(w, "data: {\"id\":\"gen-1\",\"model\":\"openrouter/auto\",\"choices\":[{\"delta\":{\"content\":%q},\"finish_reason\":\"\"}]}\n\n", tok)
	}
	fmt.Fprint(w, "data: [DONE]\n\n")
}

// =============================================================================
// CLIENT CONFIGURATION TESTS
// =============================================================================

func TestIsConfigured(t *testing.T) {
	if NewOpenRouterClient("").IsConfigured() {
		t.Error("client with empty key should not be configured")
	}
	if !NewOpenRouterClient(testAPIKey).IsConfigured() {
		t.Error("client with key should be configured")
	}
}

func TestSetModelFriendlyNames(t *testing.T) {
	c := NewOpenRouterClient(testAPIKey)

	c.SetModel("sonnet")
	if got := c.GetModel(); got != "anthropic/claude-3.5-sonnet" {
		t.Errorf("friendly name expansion = %q", got)
	}

	c.SetModel("some-provider/custom-model")
	if got := c.GetModel(); got != "some-provider/custom-model" {
		t.Errorf("full identifier should pass through, got %q", got)
	}
}

func TestSetTemperatureClamps(t *testing.T) {
	c := NewOpenRouterClient(testAPIKey)

	c.SetTemperature(-1)
	if c.GetTemperature() != 0 {
		t.Errorf("temperature below range = %v, want 0", c.GetTemperature())
	}

	c.SetTemperature(5)
	if c.GetTemperature() != 2 {
		t.Errorf("temperature above range = %v, want 2", c.GetTemperature())
	}

	c.SetTemperature(0.3)
	if c.GetTemperature() != 0.3 {
		t.Errorf("temperature in range = %v, want 0.3", c.GetTemperature())
	}
}

func TestAPIKeyMaskedNeverExposesKey(t *testing.T) {
	c := NewOpenRouterClient(testAPIKey)
	masked := c.APIKeyMasked()

	if strings.Contains(masked, "test1234") {
		t.Errorf("masked key %q leaks key material", masked)
	}
	if !strings.Contains(masked, "fingerprint=") {
		t.Errorf("masked key %q missing fingerprint", masked)
	}

	if got := NewOpenRouterClient("").APIKeyMasked(); got != "[not set]" {
		t.Errorf("empty key mask = %q", got)
	}
}

func TestValidateAPIKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want bool
	}{
		{"valid key", testAPIKey, true},
		{"empty", "", false},
		{"wrong prefix", "sk-ant-REDACTED", false},
		{"too short", "sk-or-abc", false},
		{"low entropy", "sk-or-aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", false},
		{"whitespace padded", "  " + testAPIKey + "  ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateAPIKey(tt.key); got != tt.want {
				t.Errorf("ValidateAPIKey(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

// =============================================================================
// NON-STREAMING CHAT TESTS
// =============================================================================

func TestChatNotConfigured(t *testing.T) {
	c := NewOpenRouterClient("")
	_, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("err = %v, want ErrNotConfigured", err)
	}
}

func TestChatSuccess(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"gen-1","model":"openrouter/auto","choices":[{"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`)
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	resp, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}

	if got := resp.GetContent(); got != "hello there" {
		t.Errorf("content = %q", got)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
	if gotAuth != "Bearer "+testAPIKey {
		t.Errorf("Authorization header = %q", gotAuth)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusUnauthorized, ErrAuthFailed},
		{http.StatusPaymentRequired, ErrInsufficientCredits},
		{http.StatusNotFound, ErrModelNotFound},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"code":"","message":"nope"}}`)
			}))
			defer server.Close()

			c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
			_, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestChatRetriesOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"server busy"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"recovered"}}]}`)
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	resp, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("Chat failed after retries: %v", err)
	}
	if resp.GetContent() != "recovered" {
		t.Errorf("content = %q", resp.GetContent())
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestChatDoesNotRetryAuthFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	_, err := c.Chat(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, auth failures must not retry", attempts)
	}
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReaderParsesEvents(t *testing.T) {
	input := "data: first\n\ndata: second\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "first" {
		t.Errorf("first event = %q", data)
	}

	_, data, err = reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("second event = %q", data)
	}
}

func TestSSEReaderIgnoresCommentsAndIDs(t *testing.T) {
	input := ": keepalive comment\nid: 42\ndata: payload\n\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("data = %q", data)
	}
}

func TestSSEReaderHandlesCRLF(t *testing.T) {
	input := "data: windows\r\n\r\n"
	reader := NewSSEReader(strings.NewReader(input))

	_, data, err := reader.ReadEvent()
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if string(data) != "windows" {
		t.Errorf("data = %q", data)
	}
}

// =============================================================================
// STREAMING TESTS
// =============================================================================

func TestChatStreamDeliversTokens(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Accept"); got != "text/event-stream" {
			t.Errorf("Accept header = %q", got)
		}
		sseResponse(w, []string{"Hello", ", ", "world"})
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	var tokens []string
	err := c.ChatStream(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		tokens = append(tokens, chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}

	if got := strings.Join(tokens, ""); got != "Hello, world" {
		t.Errorf("accumulated tokens = %q", got)
	}
}

func TestChatStreamSkipsMalformedChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {not json}\n\n")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"},\"finish_reason\":\"\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	var got strings.Builder
	err := c.ChatStream(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got.WriteString(chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if got.String() != "ok" {
		t.Errorf("content = %q, malformed chunk should be skipped", got.String())
	}
}

func TestChatStreamStopsOnFinishReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"done\"},\"finish_reason\":\"stop\"}]}\n\n")
		// Anything after finish_reason must not be delivered.
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"extra\"},\"finish_reason\":\"\"}]}\n\n")
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	var got strings.Builder
	err := c.ChatStream(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got.WriteString(chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if got.String() != "done" {
		t.Errorf("content = %q", got.String())
	}
}

func TestChatStreamContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"slow\"},\"finish_reason\":\"\"}]}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.ChatStream(ctx, []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
			cancel()
		})
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Error("expected error from cancelled stream")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("stream did not return after cancellation")
	}
}

func TestChatStreamAccumulate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseResponse(w, []string{"a", "b", "c"})
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	content, err := c.ChatStreamAccumulate(context.Background(), []ChatMessage{NewUserMessage("hi")})
	if err != nil {
		t.Fatalf("ChatStreamAccumulate failed: %v", err)
	}
	if content != "abc" {
		t.Errorf("content = %q", content)
	}
}

func TestChatStreamChan(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sseResponse(w, []string{"x", "y"})
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	chunks, errCh := c.ChatStreamChan(context.Background(), []ChatMessage{NewUserMessage("hi")})

	var got strings.Builder
	for chunk := range chunks {
		got.WriteString(chunk.GetContent())
	}
	if err := <-errCh; err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if got.String() != "xy" {
		t.Errorf("content = %q", got.String())
	}
}

func TestChatStreamErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down"}}`)
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	err := c.ChatStream(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(StreamChunk) {})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want rate limited", err)
	}
}

// =============================================================================
// STREAMING RETRY TESTS
// =============================================================================

func TestChatStreamWithRetryRecoversOnServerError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"server busy"}}`)
			return
		}
		sseResponse(w, []string{"re", "covered"})
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	var got strings.Builder
	err := c.ChatStreamWithRetry(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got.WriteString(chunk.GetContent())
	})
	if err != nil {
		t.Fatalf("ChatStreamWithRetry failed: %v", err)
	}
	if got.String() != "recovered" {
		t.Errorf("content = %q, retry must not replay tokens", got.String())
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestChatStreamWithRetryDoesNotRetryAuthFailure(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad key"}}`)
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)
	err := c.ChatStreamWithRetry(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(StreamChunk) {})
	if !errors.Is(err, ErrAuthFailed) {
		t.Errorf("err = %v, want ErrAuthFailed", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, auth failures must not retry", attempts)
	}
}

func TestChatStreamWithRetryFinalAfterDelivery(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"},\"finish_reason\":\"\"}]}\n\n")
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		// Drop the connection mid-stream.
		if hj, ok := w.(http.Hijacker); ok {
			conn, _, _ := hj.Hijack()
			conn.Close()
		}
	}))
	defer server.Close()

	c := NewOpenRouterClient(testAPIKey).WithBaseURL(server.URL)

	var got strings.Builder
	err := c.ChatStreamWithRetry(context.Background(), []ChatMessage{NewUserMessage("hi")}, func(chunk StreamChunk) {
		got.WriteString(chunk.GetContent())
	})
	if err == nil {
		t.Fatal("expected error from dropped stream")
	}

	var streamErr *StreamError
	if !errors.As(err, &streamErr) {
		t.Fatalf("err = %T, want *StreamError", err)
	}
	if streamErr.Partial != "partial" {
		t.Errorf("Partial = %q", streamErr.Partial)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, a failure after delivery must not retry", attempts)
	}
	if got.String() != "partial" {
		t.Errorf("delivered = %q, tokens must not be replayed", got.String())
	}
}

// =============================================================================
// STREAM ERROR AND ACCUMULATOR TESTS
// =============================================================================

func TestStreamErrorPreservesPartial(t *testing.T) {
	inner := errors.New("connection reset")
	err := &StreamError{Partial: "partial text", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("StreamError should unwrap to inner error")
	}
	if !strings.Contains(err.Error(), "partial content received") {
		t.Errorf("Error() = %q", err.Error())
	}
}

// mkChunk builds a StreamChunk the same way the SSE decoder does.
func mkChunk(t *testing.T, content, model, finish string) StreamChunk {
	t.Helper()
	raw := fmt.Sprintf(`{"model":%q,"choices":[{"delta":{"content":%q},"finish_reason":%q}]}`, model, content, finish)
	var chunk StreamChunk
	if err := json.Unmarshal([]byte(raw), &chunk); err != nil {
		t.Fatalf("mkChunk: %v", err)
	}
	return chunk
}

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()
	cb := acc.Callback()

	cb(mkChunk(t, "hello ", "", ""))
	cb(mkChunk(t, "world", "openrouter/auto", "stop"))

	if acc.GetContent() != "hello world" {
		t.Errorf("content = %q", acc.GetContent())
	}
	if !acc.Done || acc.FinishReason != "stop" {
		t.Errorf("Done = %v, FinishReason = %q", acc.Done, acc.FinishReason)
	}

	stats := acc.GetStats()
	if stats.TokenCount != 2 {
		t.Errorf("TokenCount = %d", stats.TokenCount)
	}
	if stats.Model != "openrouter/auto" {
		t.Errorf("Model = %q", stats.Model)
	}
}

func TestRateLimitErrorIs(t *testing.T) {
	err := &RateLimitError{RetryAfter: 2 * time.Second}
	if !errors.Is(err, ErrRateLimited) {
		t.Error("RateLimitError should match ErrRateLimited")
	}
	if !strings.Contains(err.Error(), "retry after") {
		t.Errorf("Error() = %q", err.Error())
	}
}
