// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides OpenRouter integration for LLM inference.
//
// OpenRouter provides access to multiple LLM providers through a single API,
// including Claude, GPT-4, and other models. This package implements the
// client for communicating with OpenRouter's chat completions endpoint,
// including streaming over Server-Sent Events and retry with backoff.
//
// # Key Types
//
//   - OpenRouterClient: HTTP client for the OpenRouter API with retry support
//   - ChatMessage: Chat message compatible with the OpenRouter API format
//   - ChatRequest: Request structure for chat completions
//   - SSEReader: Streaming response reader for real-time output
//   - StreamAccumulator: Collects streamed chunks into a complete response
//
// # Usage
//
// Create a client and stream a chat completion:
//
//	client := cloud.NewOpenRouterClient(apiKey)
//	client.SetModel("anthropic/claude-3.5-sonnet")
//	err := client.ChatStream(ctx, messages, func(chunk cloud.StreamChunk) {
//	    fmt.Print(chunk.GetContent())
//	})
//
// # Security
//
// API keys are never logged; only SHA-256 fingerprints appear in diagnostics.
// All requests use TLS 1.2+.
package cloud
