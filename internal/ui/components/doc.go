// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the chat TUI.
//
// MessageRenderer is the central piece: it segments assistant text into
// prose and math, renders prose through glamour, typesets inline math to
// unicode with a per-segment literal fallback, and highlights display math
// with chroma. The remaining components (StatusBar, Welcome, SessionList,
// Help, ErrorBox) are stateless renderers driven by the chat model.
package components
