// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates chat turns against the completion and
// search APIs.
//
// A Session is an explicit context object holding everything a turn needs:
// the conversation history, the cloud client, the search client, and the
// search-enabled flag. It has a defined creation point (New) and teardown
// point (Reset) instead of ambient mutable state.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/usharma123/chatbot/internal/cloud"
	"github.com/usharma123/chatbot/internal/model"
	"github.com/usharma123/chatbot/internal/search"
)

// Session holds the state for one chat session.
type Session struct {
	// ID uniquely identifies this session.
	ID string

	// Conversation is the message history for this session.
	Conversation *model.Conversation

	// CreatedAt is when the session was created.
	CreatedAt time.Time

	cloud         *cloud.OpenRouterClient
	searchClient  *search.Client
	searchEnabled bool
}

// New creates a new session with the given clients.
// Search starts disabled; enable it with EnableSearch.
func New(cloudClient *cloud.OpenRouterClient, searchClient *search.Client) *Session {
	return &Session{
		ID:           uuid.NewString(),
		Conversation: model.NewConversationWithModel(cloudClient.GetModel()),
		CreatedAt:    time.Now(),
		cloud:        cloudClient,
		searchClient: searchClient,
	}
}

// Reset clears the session history. The session keeps its identity,
// model, and temperature settings.
func (s *Session) Reset() {
	s.Conversation.ClearHistory()
}

// EnableSearch toggles search augmentation for subsequent turns.
// Enabling search without a configured search client is allowed; those
// turns simply degrade to no sources.
func (s *Session) EnableSearch(enabled bool) {
	s.searchEnabled = enabled
}

// SearchEnabled reports whether search augmentation is on.
func (s *Session) SearchEnabled() bool {
	return s.searchEnabled
}

// SearchConfigured reports whether the search client has an API key.
func (s *Session) SearchConfigured() bool {
	return s.searchClient != nil && s.searchClient.IsConfigured()
}

// SetModel changes the model for subsequent turns.
func (s *Session) SetModel(modelName string) {
	s.cloud.SetModel(modelName)
	s.Conversation.Model = s.cloud.GetModel()
}

// Model returns the current model identifier.
func (s *Session) Model() string {
	return s.cloud.GetModel()
}

// SetTemperature changes the sampling temperature for subsequent turns.
func (s *Session) SetTemperature(t float64) {
	s.cloud.SetTemperature(t)
	s.Conversation.Temperature = s.cloud.GetTemperature()
}

// Temperature returns the current sampling temperature.
func (s *Session) Temperature() float64 {
	return s.cloud.GetTemperature()
}

// CloudConfigured reports whether the completion client has an API key.
func (s *Session) CloudConfigured() bool {
	return s.cloud.IsConfigured()
}

// RunTurn processes one user submission: optional search, payload build,
// streaming completion, history append. onToken is called for each content
// token as it streams in; it may be nil.
//
// The user message appended to history is always the raw input. When
// search is enabled, the retrieved context is injected only into the
// outbound API payload, never into the displayed transcript.
//
// Streaming errors do not leave a half-open turn: the error text is
// stored as the assistant's content, and the error is also returned so
// the caller can surface it.
func (s *Session) RunTurn(ctx context.Context, input string, onToken func(token string)) (*model.Message, error) {
	s.Conversation.AddUserMessage(input)

	// Optional search augmentation. Failures degrade to no sources and
	// the outbound prompt stays equal to the raw input.
	outbound := input
	var sources []model.Source
	if s.searchEnabled && s.SearchConfigured() {
		results := s.searchClient.Search(ctx, input)
		outbound = search.BuildPrompt(input, results)
		sources = toSources(results)
	}

	payload := s.Conversation.ToChatMessagesWithOverride(outbound)

	asst := s.Conversation.AddAssistantMessage()
	asst.Sources = sources

	stats := model.NewStatistics()
	tokenCount := 0

	// Transient failures before the first token retry with backoff; a
	// failure after delivery has started is surfaced, not replayed.
	err := s.cloud.ChatStreamWithRetry(ctx, payload, func(chunk cloud.StreamChunk) {
		content := chunk.GetContent()
		if content == "" {
			return
		}
		tokenCount++
		stats.RecordFirstToken()
		asst.AppendToken(content)
		if onToken != nil {
			onToken(content)
		}
	})

	if err != nil {
		asst.SetError(err)
		return asst, err
	}

	stats.Finalize(tokenCount)
	asst.FinalizeStream(stats)

	return asst, nil
}

// toSources converts search results to message source citations.
func toSources(results []search.Result) []model.Source {
	if len(results) == 0 {
		return nil
	}
	sources := make([]model.Source, 0, len(results))
	for _, r := range results {
		sources = append(sources, model.Source{
			Title:         r.Title,
			URL:           r.URL,
			Summary:       r.Summary,
			PublishedDate: r.PublishedDate,
		})
	}
	return sources
}
