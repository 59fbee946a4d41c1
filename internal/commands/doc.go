// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands implements the slash command system for the chat TUI.
//
// Commands are registered in a Registry and parsed from user input by a
// Parser. Each command's Handler returns a tea.Cmd that emits a message
// consumed by the UI layer. The Completer provides tab completion for
// command names and arguments.
//
// Built-in commands cover conversation management (/new, /clear, /save,
// /load, /sessions, /export), model settings (/model, /models, /temp),
// web search (/search), and application settings (/config, /status,
// /theme, /stats).
package commands
