// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/usharma123/chatbot/internal/cloud"
	"github.com/usharma123/chatbot/internal/export"
	"github.com/usharma123/chatbot/internal/session"
	"github.com/usharma123/chatbot/internal/storage"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// These messages are sent by command handlers to update the application state.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct {
	Topic string // Optional topic for specific help
}

// ClearConversationMsg triggers clearing the conversation.
type ClearConversationMsg struct{}

// SaveCompleteMsg indicates save completion.
type SaveCompleteMsg struct {
	ID    string
	Name  string
	Error error
}

// ConversationLoadedMsg contains the loaded conversation data.
type ConversationLoadedMsg struct {
	Conversation *storage.StoredConversation
	Error        error
}

// SessionListMsg contains the list of saved conversations.
type SessionListMsg struct {
	Sessions []storage.ConversationMeta
	Error    error
}

// ExportCompleteMsg indicates export completion.
type ExportCompleteMsg struct {
	Path   string
	Format string
	Error  error
}

// ModelSwitchMsg indicates a model switch request.
type ModelSwitchMsg struct {
	Model string // The resolved model ID
	Error error
}

// ShowModelsMsg triggers showing the model list.
type ShowModelsMsg struct {
	Models []ModelInfo
}

// ModelInfo describes an available model.
type ModelInfo struct {
	Alias string
	ID    string
}

// TemperatureChangedMsg indicates the sampling temperature was changed.
type TemperatureChangedMsg struct {
	Temperature float64
}

// SearchToggleMsg toggles web search augmentation.
type SearchToggleMsg struct {
	Enabled bool
}

// ShowConfigMsg triggers showing configuration.
type ShowConfigMsg struct {
	Key   string // Optional specific key
	Value string // For setting
}

// ShowStatusMsg triggers showing detailed status.
type ShowStatusMsg struct{}

// ThemeChangedMsg indicates a theme change request.
type ThemeChangedMsg struct {
	Theme string
}

// StatsToggleMsg toggles response statistics display.
type StatsToggleMsg struct {
	Enabled bool
}

// ErrorMsg indicates an error occurred.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// SystemMessageMsg adds a system notice to the chat.
type SystemMessageMsg struct {
	Content string
}

// =============================================================================
// NAVIGATION HANDLERS
// =============================================================================

// HandleHelp shows help information.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	return func() tea.Msg {
		return ShowHelpMsg{Topic: topic}
	}
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// =============================================================================
// CONVERSATION HANDLERS
// =============================================================================

// HandleNew starts a new conversation.
func HandleNew(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearConversationMsg{}
	}
}

// HandleClear clears the conversation history.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearConversationMsg{}
	}
}

// HandleSave saves the current conversation.
func HandleSave(ctx *Context, args []string) tea.Cmd {
	name := ""
	if len(args) > 0 {
		name = strings.Join(args, " ")
	}

	if ctx == nil || ctx.Session == nil || ctx.Storage == nil {
		return func() tea.Msg {
			return SaveCompleteMsg{Error: fmt.Errorf("no active session to save")}
		}
	}

	sess := ctx.Session
	store := ctx.Storage
	return func() tea.Msg {
		if sess.Conversation.IsEmpty() {
			return SaveCompleteMsg{Error: fmt.Errorf("nothing to save")}
		}

		stored := storage.FromConversation(sess.Conversation)
		if name != "" {
			stored.Summary = name
		}

		id, err := store.Save(stored)
		if err != nil {
			return SaveCompleteMsg{Error: err}
		}
		return SaveCompleteMsg{ID: id, Name: stored.Summary}
	}
}

// HandleLoad loads a saved conversation by ID or list index.
func HandleLoad(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		// Show the conversation list instead
		return HandleSessions(ctx, args)
	}

	if ctx == nil || ctx.Storage == nil {
		return func() tea.Msg {
			return ConversationLoadedMsg{Error: fmt.Errorf("storage not available")}
		}
	}

	ref := args[0]
	store := ctx.Storage
	return func() tea.Msg {
		var (
			conv *storage.StoredConversation
			err  error
		)

		// Numeric argument selects by position in the list (1 = most recent)
		if idx, convErr := strconv.Atoi(ref); convErr == nil && idx > 0 {
			conv, err = store.LoadByIndex(idx - 1)
		} else {
			conv, err = store.Load(ref)
		}

		if err != nil {
			return ConversationLoadedMsg{Error: err}
		}
		return ConversationLoadedMsg{Conversation: conv}
	}
}

// HandleSessions shows the saved conversation list.
func HandleSessions(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Storage == nil {
		return func() tea.Msg {
			return SessionListMsg{Error: fmt.Errorf("storage not available")}
		}
	}

	store := ctx.Storage
	return func() tea.Msg {
		metas, err := store.List()
		if err != nil {
			return SessionListMsg{Error: err}
		}
		return SessionListMsg{Sessions: metas}
	}
}

// HandleExport exports the conversation to a file.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "markdown"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
		if format == "md" {
			format = "markdown"
		}
	}

	switch format {
	case "markdown", "json":
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid export format",
				Message: fmt.Sprintf("Unknown format: %s", format),
				Tip:     "Supported formats: markdown, json",
			}
		}
	}

	if ctx == nil || ctx.Session == nil {
		return func() tea.Msg {
			return ExportCompleteMsg{Format: format, Error: fmt.Errorf("no active session to export")}
		}
	}

	sess := ctx.Session
	return func() tea.Msg {
		if sess.Conversation.IsEmpty() {
			return ExportCompleteMsg{Format: format, Error: fmt.Errorf("nothing to export")}
		}

		stored := storage.FromConversation(sess.Conversation)
		if stored.Summary == "" {
			stored.Summary = sess.Conversation.GetTitle()
		}

		var (
			path string
			err  error
		)
		switch format {
		case "json":
			path, err = export.ExportJSON(stored, nil)
		default:
			path, err = export.ExportMarkdown(stored, nil)
		}

		return ExportCompleteMsg{Path: path, Format: format, Error: err}
	}
}

// =============================================================================
// MODEL HANDLERS
// =============================================================================

// HandleModel switches or shows the current model.
func HandleModel(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := ""
		if ctx != nil && ctx.Session != nil {
			current = ctx.Session.Model()
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: fmt.Sprintf("Current model: %s", current)}
		}
	}

	name := args[0]
	if ctx == nil || ctx.Session == nil {
		return func() tea.Msg {
			return ModelSwitchMsg{Error: fmt.Errorf("no active session")}
		}
	}
	sess := ctx.Session
	return func() tea.Msg {
		sess.SetModel(name)
		return ModelSwitchMsg{Model: sess.Model()}
	}
}

// HandleModels lists available models.
func HandleModels(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		aliases := make([]string, 0, len(cloud.OpenRouterModels))
		for alias := range cloud.OpenRouterModels {
			aliases = append(aliases, alias)
		}
		sort.Strings(aliases)

		models := make([]ModelInfo, 0, len(aliases))
		for _, alias := range aliases {
			models = append(models, ModelInfo{Alias: alias, ID: cloud.OpenRouterModels[alias]})
		}
		return ShowModelsMsg{Models: models}
	}
}

// HandleTemperature shows or sets the sampling temperature.
func HandleTemperature(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := 0.0
		if ctx != nil && ctx.Session != nil {
			current = ctx.Session.Temperature()
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: fmt.Sprintf("Current temperature: %.1f", current)}
		}
	}

	value, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid temperature",
				Message: fmt.Sprintf("Not a number: %s", args[0]),
				Tip:     "Use a value between 0.0 and 2.0, e.g. /temp 0.7",
			}
		}
	}

	if value < 0 || value > 2 {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid temperature",
				Message: fmt.Sprintf("%.1f is out of range", value),
				Tip:     "Temperature must be between 0.0 and 2.0",
			}
		}
	}

	var sess *session.Session
	if ctx != nil {
		sess = ctx.Session
	}
	return func() tea.Msg {
		if sess != nil {
			sess.SetTemperature(value)
		}
		return TemperatureChangedMsg{Temperature: value}
	}
}

// =============================================================================
// SEARCH HANDLERS
// =============================================================================

// HandleSearch toggles web search augmentation.
func HandleSearch(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Session == nil {
		return func() tea.Msg {
			return ErrorMsg{Title: "Search unavailable", Message: "No active session"}
		}
	}

	sess := ctx.Session

	var enabled bool
	if len(args) == 0 {
		enabled = !sess.SearchEnabled()
	} else {
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return func() tea.Msg {
				return ErrorMsg{
					Title:   "Invalid argument",
					Message: fmt.Sprintf("Unknown state: %s", args[0]),
					Tip:     "Use /search on or /search off",
				}
			}
		}
	}

	if enabled && !sess.SearchConfigured() {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Search not configured",
				Message: "No Tavily API key is set",
				Tip:     "Set TAVILY_API_KEY or add tavily_key to your config file",
			}
		}
	}

	return func() tea.Msg {
		sess.EnableSearch(enabled)
		return SearchToggleMsg{Enabled: enabled}
	}
}

// =============================================================================
// SETTINGS HANDLERS
// =============================================================================

// HandleConfig shows or edits configuration.
func HandleConfig(ctx *Context, args []string) tea.Cmd {
	key := ""
	value := ""
	if len(args) > 0 {
		key = args[0]
	}
	if len(args) > 1 {
		value = strings.Join(args[1:], " ")
	}
	return func() tea.Msg {
		return ShowConfigMsg{Key: key, Value: value}
	}
}

// HandleStatus shows detailed status information.
func HandleStatus(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ShowStatusMsg{}
	}
}

// HandleTheme changes the color theme.
func HandleTheme(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := "dark"
		if ctx != nil && ctx.Config != nil {
			current = ctx.Config.UI.Theme
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: fmt.Sprintf("Current theme: %s", current)}
		}
	}

	theme := strings.ToLower(args[0])
	switch theme {
	case "dark", "light", "auto":
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid theme",
				Message: fmt.Sprintf("Unknown theme: %s", theme),
				Tip:     "Available themes: dark, light, auto",
			}
		}
	}

	return func() tea.Msg {
		return ThemeChangedMsg{Theme: theme}
	}
}

// HandleStats toggles response statistics display.
func HandleStats(ctx *Context, args []string) tea.Cmd {
	var enabled bool
	if len(args) == 0 {
		if ctx != nil && ctx.Config != nil {
			enabled = !ctx.Config.UI.ShowStats
		} else {
			enabled = true
		}
	} else {
		switch strings.ToLower(args[0]) {
		case "on":
			enabled = true
		case "off":
			enabled = false
		default:
			return func() tea.Msg {
				return ErrorMsg{
					Title:   "Invalid argument",
					Message: fmt.Sprintf("Unknown state: %s", args[0]),
					Tip:     "Use /stats on or /stats off",
				}
			}
		}
	}

	return func() tea.Msg {
		return StatsToggleMsg{Enabled: enabled}
	}
}
