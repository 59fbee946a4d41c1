// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// This package defines the core domain types used throughout the application
// for representing chat conversations, messages, and search citations.
//
// # Key Types
//
//   - Conversation: Append-only container for a chat session
//   - Message: Single message with role, content, timestamp, and sources
//   - Source: One web-search citation attached to an assistant message
//   - Role: Message role enumeration (user, assistant, system)
//
// # Usage
//
// Create a new conversation and add a message:
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//
// Build the upstream request payload while keeping the displayed user
// message clean of injected search context:
//
//	msgs := conv.ToChatMessagesWithOverride(augmentedPrompt)
package model
