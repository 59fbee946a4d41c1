// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessageGeneratesID(t *testing.T) {
	msg := NewUserMessage("hello")

	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID = %q, want msg_ prefix", msg.ID)
	}
	if msg.Role != RoleUser {
		t.Errorf("Role = %v, want user", msg.Role)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q", msg.Content)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestMessageStreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()
	if !msg.IsStreaming {
		t.Fatal("new assistant message should be streaming")
	}

	msg.AppendToken("Hello")
	msg.AppendToken(", ")
	msg.AppendToken("world")

	if got := msg.GetDisplayContent(); got != "Hello, world" {
		t.Errorf("streaming content = %q", got)
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should not be streaming after finalize")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("final content = %q", msg.Content)
	}
	if msg.TokenCount != 3 {
		t.Errorf("TokenCount = %d, want 3", msg.TokenCount)
	}

	// Tokens after finalize are ignored.
	msg.AppendToken("more")
	if msg.Content != "Hello, world" {
		t.Error("finalized message must not change")
	}
}

func TestMessageSetError(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendToken("partial")

	msg.SetError(errors.New("connection reset"))

	if msg.IsStreaming {
		t.Error("errored message should not be streaming")
	}
	if msg.Content != "Error: connection reset" {
		t.Errorf("Content = %q", msg.Content)
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage("a long message that needs truncation eventually")

	preview := msg.Preview(10)
	if RuneCount := len([]rune(preview)); RuneCount > 10 {
		t.Errorf("preview %q has %d runes, want <= 10", preview, RuneCount)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("preview %q should end with ellipsis", preview)
	}

	short := NewUserMessage("short")
	if got := short.Preview(50); got != "short" {
		t.Errorf("short preview = %q", got)
	}
}

func TestMessageSources(t *testing.T) {
	msg := NewMessage(RoleAssistant, "see sources")
	if msg.HasSources() {
		t.Error("message without sources should report none")
	}

	msg.Sources = []Source{
		{Title: "A", URL: "https://a.example", Summary: "first"},
		{Title: "B", URL: "https://b.example", Summary: "second", PublishedDate: "2025-01-01"},
	}
	if !msg.HasSources() {
		t.Error("message with sources should report them")
	}
	if msg.Sources[1].PublishedDate != "2025-01-01" {
		t.Errorf("PublishedDate = %q", msg.Sources[1].PublishedDate)
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversationAppendAndClear(t *testing.T) {
	conv := NewConversation()
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}

	conv.AddUserMessage("first")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("reply")
	asst.FinalizeStream(nil)

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount = %d, want 2", conv.MessageCount())
	}

	// Title auto-generates from the first user message.
	if conv.GetTitle() != "first" {
		t.Errorf("title = %q, want %q", conv.GetTitle(), "first")
	}

	conv.ClearHistory()
	if !conv.IsEmpty() {
		t.Error("conversation should be empty after reset")
	}
	if conv.GetTitle() != "New Conversation" {
		t.Errorf("title after reset = %q", conv.GetTitle())
	}
}

func TestConversationToChatMessages(t *testing.T) {
	conv := NewConversationWithModel("openrouter/auto")
	conv.SystemPrompt = "be brief"
	conv.AddUserMessage("question")
	asst := conv.AddAssistantMessage()
	asst.AppendToken("answer")
	asst.FinalizeStream(nil)

	msgs := conv.ToChatMessages()
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != "be brief" {
		t.Errorf("system message = %+v", msgs[0])
	}
	if msgs[1].Role != "user" || msgs[1].Content != "question" {
		t.Errorf("user message = %+v", msgs[1])
	}
	if msgs[2].Role != "assistant" || msgs[2].Content != "answer" {
		t.Errorf("assistant message = %+v", msgs[2])
	}
}

func TestConversationOverrideKeepsDisplayClean(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("what is the weather")

	augmented := "what is the weather\n\nWeb results:\n[1] ..."
	msgs := conv.ToChatMessagesWithOverride(augmented)

	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	// The payload carries the augmented prompt.
	if msgs[0].Content != augmented {
		t.Errorf("payload content = %q, want augmented prompt", msgs[0].Content)
	}
	// The transcript still shows only what the user typed.
	if got := conv.GetLastUserMessage().Content; got != "what is the weather" {
		t.Errorf("displayed content = %q, must stay clean", got)
	}
}

func TestConversationOverrideTargetsLastUserMessage(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("first question")
	a := conv.AddAssistantMessage()
	a.AppendToken("first answer")
	a.FinalizeStream(nil)
	conv.AddUserMessage("second question")

	msgs := conv.ToChatMessagesWithOverride("second question [augmented]")
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Content != "first question" {
		t.Errorf("earlier user message changed: %q", msgs[0].Content)
	}
	if msgs[2].Content != "second question [augmented]" {
		t.Errorf("override missed last user message: %q", msgs[2].Content)
	}
}

func TestConversationPruneKeepsSystemMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddSystemMessage("system prompt")

	for i := 0; i <= MaxMessages+10; i++ {
		conv.AddUserMessage("filler")
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("MessageCount = %d, want %d", conv.MessageCount(), MaxMessages+1)
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message should survive pruning")
	}
}

func TestConversationEstimateTokens(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("12345678") // ~2 tokens + 4 overhead

	got := conv.EstimateTokens()
	if got != 6 {
		t.Errorf("EstimateTokens = %d, want 6", got)
	}
}
