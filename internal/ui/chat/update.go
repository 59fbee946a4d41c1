// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements the update loop for the chat view: key handling,
// slash-command dispatch, and streaming message processing.
package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/usharma123/chatbot/internal/commands"
	"github.com/usharma123/chatbot/internal/ui/components"
	"github.com/usharma123/chatbot/internal/ui/styles"
)

// Update processes a single message through the chat state machine.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamTickMsg:
		return m.handleStreamTick()

	case TurnCompleteMsg:
		return m.handleTurnComplete(msg)

	case commands.ShowHelpMsg:
		m.appendNotice(m.helpView.Render(msg.Topic))
		m.refreshViewport()
		return m, nil

	case commands.ClearConversationMsg:
		if m.sess != nil {
			m.sess.Reset()
		}
		m.entries = nil
		m.refreshViewport()
		return m, nil

	case commands.SaveCompleteMsg:
		if msg.Error != nil {
			m.appendError("Save failed", msg.Error.Error(), "")
		} else {
			m.appendSystem(fmt.Sprintf("Saved conversation %s", msg.ID))
		}
		m.refreshViewport()
		return m, nil

	case commands.ConversationLoadedMsg:
		return m.handleConversationLoaded(msg)

	case commands.SessionListMsg:
		if msg.Error != nil {
			m.appendError("Could not list conversations", msg.Error.Error(), "")
		} else {
			m.appendNotice(m.sessionList.Render(msg.Sessions))
		}
		m.refreshViewport()
		return m, nil

	case commands.ExportCompleteMsg:
		if msg.Error != nil {
			m.appendError("Export failed", msg.Error.Error(), "")
		} else {
			m.appendSystem(fmt.Sprintf("Exported conversation to %s", msg.Path))
		}
		m.refreshViewport()
		return m, nil

	case commands.ModelSwitchMsg:
		if msg.Error != nil {
			m.appendError("Model switch failed", msg.Error.Error(), "Use /models to list available models")
		} else {
			m.appendSystem(fmt.Sprintf("Model set to %s", msg.Model))
			m.syncStatus()
		}
		m.refreshViewport()
		return m, nil

	case commands.ShowModelsMsg:
		m.appendSystem(formatModelList(msg.Models))
		m.refreshViewport()
		return m, nil

	case commands.TemperatureChangedMsg:
		m.appendSystem(fmt.Sprintf("Temperature set to %.1f", msg.Temperature))
		m.refreshViewport()
		return m, nil

	case commands.SearchToggleMsg:
		if msg.Enabled {
			m.appendSystem("Web search enabled. Prompts will be augmented with search results.")
		} else {
			m.appendSystem("Web search disabled.")
		}
		m.syncStatus()
		m.refreshViewport()
		return m, nil

	case commands.ShowConfigMsg:
		m.appendSystem(m.formatConfig(msg.Key))
		m.refreshViewport()
		return m, nil

	case commands.ShowStatusMsg:
		m.appendSystem(m.formatStatus())
		m.refreshViewport()
		return m, nil

	case commands.ThemeChangedMsg:
		return m.handleThemeChange(msg.Theme)

	case commands.StatsToggleMsg:
		m.renderer.ShowStats = msg.Enabled
		if m.cfg != nil {
			m.cfg.UI.ShowStats = msg.Enabled
		}
		m.rerenderTranscript()
		if msg.Enabled {
			m.appendSystem("Response statistics on.")
		} else {
			m.appendSystem("Response statistics off.")
		}
		m.refreshViewport()
		return m, nil

	case commands.ErrorMsg:
		m.appendError(msg.Title, msg.Message, msg.Tip)
		m.refreshViewport()
		return m, nil

	case commands.SystemMessageMsg:
		m.appendSystem(msg.Content)
		m.refreshViewport()
		return m, nil
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.spin, cmd = m.spin.Update(msg)
	cmds = append(cmds, cmd)

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.ready = true

	m.theme.SetSize(msg.Width, msg.Height)
	m.renderer.SetWidth(msg.Width)
	m.input.SetWidth(msg.Width - 4)

	m.viewport.Width = msg.Width
	m.viewport.Height = m.viewportHeight()

	m.rerenderTranscript()
	m.refreshViewport()
	return m, nil
}

// viewportHeight is the transcript height left after the input area,
// status bar, and completion popup.
func (m *Model) viewportHeight() int {
	h := m.height - m.inputHeight() - 1
	if m.completions.Visible {
		h -= m.popupHeight()
	}
	if h < 3 {
		h = 3
	}
	return h
}

func (m *Model) inputHeight() int {
	// Textarea plus the container border.
	return m.input.Height() + 2
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.streaming {
			m.cancelStream()
			return m, nil
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.completions.Visible {
			m.input.SetValue(m.completions.OriginalInput)
			m.clearCompletions()
			return m, nil
		}
		if m.streaming {
			m.cancelStream()
		}
		return m, nil

	case key.Matches(msg, m.keys.Complete):
		m.cycleCompletion()
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		m.entries = nil
		m.refreshViewport()
		return m, nil

	case key.Matches(msg, m.keys.Submit):
		if m.completions.Visible {
			// Enter accepts the highlighted completion without submitting.
			m.applyCompletion()
			m.clearCompletions()
			return m, nil
		}
		return m.handleSubmit()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	// Any other key invalidates the completion popup.
	if m.completions.Visible {
		m.clearCompletions()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// cancelStream aborts the in-flight turn. TurnCompleteMsg still arrives
// once RunTurn observes the cancellation.
func (m *Model) cancelStream() {
	if m.cancelTurn != nil {
		m.cancelTurn()
	}
}

// =============================================================================
// SUBMISSION
// =============================================================================

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}
	if m.streaming {
		return m, nil
	}

	m.input.Reset()

	if commands.IsCommand(input) {
		return m.dispatchCommand(input)
	}

	if m.sess == nil || !m.sess.CloudConfigured() {
		m.appendError("No API key",
			"An OpenRouter API key is required to chat.",
			"Set OPENROUTER_API_KEY or add openrouter_key to your config file")
		m.refreshViewport()
		return m, nil
	}

	// Display-only echo; the session appends the canonical user message.
	m.appendUserEcho(input)

	cmd := m.startTurn(input)
	m.syncStatus()
	m.refreshViewport()
	return m, cmd
}

// dispatchCommand parses and runs a slash command.
func (m *Model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(input)
	if result.Command == nil {
		m.appendError("Unknown command",
			fmt.Sprintf("%s is not a recognized command.", result.CommandName),
			"Type /help to list available commands")
		m.refreshViewport()
		return m, nil
	}

	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		m.appendError("Invalid arguments", err.Error(),
			fmt.Sprintf("Usage: %s", result.Command.Usage))
		m.refreshViewport()
		return m, nil
	}

	return m, result.Command.Handler(m.cmdCtx, result.Args)
}

// =============================================================================
// STREAMING
// =============================================================================

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if !m.streaming {
		return m, nil
	}
	if chunk := m.buf.Flush(); chunk != "" {
		m.streamText += chunk
		m.refreshViewport()
	}
	return m, streamTickCmd()
}

func (m *Model) handleTurnComplete(msg TurnCompleteMsg) (tea.Model, tea.Cmd) {
	m.streaming = false
	m.cancelTurn = nil
	m.streamText = ""
	m.buf.Reset()

	if msg.Err != nil {
		m.appendError("Stream error", msg.Err.Error(),
			"Check your network connection and API key, then try again")
	} else if msg.Message != nil {
		m.appendMessage(msg.Message)
	}

	m.syncStatus()
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// LOAD / THEME
// =============================================================================

func (m *Model) handleConversationLoaded(msg commands.ConversationLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.appendError("Load failed", msg.Error.Error(), "Use /sessions to list saved conversations")
		m.refreshViewport()
		return m, nil
	}

	conv := msg.Conversation.ToConversation()
	m.sess.Conversation = conv
	if conv.Model != "" {
		m.sess.SetModel(conv.Model)
	}
	if conv.Temperature > 0 {
		m.sess.SetTemperature(conv.Temperature)
	}

	m.rebuildFromConversation()
	m.appendSystem(fmt.Sprintf("Loaded conversation %s (%d messages)", msg.Conversation.ID, len(conv.Messages)))
	m.syncStatus()
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m *Model) handleThemeChange(name string) (tea.Model, tea.Cmd) {
	var theme *styles.Theme
	switch name {
	case "dark":
		theme = styles.NewThemeForBackground(true)
	case "light":
		theme = styles.NewThemeForBackground(false)
	default:
		theme = styles.NewTheme()
	}
	theme.SetSize(m.width, m.height)

	m.theme = theme

	renderer := components.NewMessageRenderer(theme)
	renderer.ShowStats = m.renderer.ShowStats
	renderer.SetWidth(m.width)
	m.renderer = renderer

	statusBar := components.NewStatusBar(theme)
	statusBar.Model = m.statusBar.Model
	statusBar.SearchEnabled = m.statusBar.SearchEnabled
	statusBar.TokenEstimate = m.statusBar.TokenEstimate
	statusBar.MessageCount = m.statusBar.MessageCount
	m.statusBar = statusBar

	welcome := components.NewWelcome(theme)
	welcome.Model = m.welcome.Model
	welcome.SearchConfigured = m.welcome.SearchConfigured
	m.welcome = welcome

	m.sessionList = components.NewSessionList(theme)
	m.helpView = components.NewHelp(theme, m.registry)
	m.errBox = components.NewErrorBox(theme)
	m.spin.Style = theme.Spinner

	if m.cfg != nil {
		m.cfg.UI.Theme = name
	}

	m.rerenderTranscript()
	m.appendSystem(fmt.Sprintf("Theme set to %s", name))
	m.syncStatus()
	m.refreshViewport()
	return m, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

// cycleCompletion opens the completion popup on first Tab and advances
// the selection on subsequent Tabs. The highlighted value is spliced
// into the input each time.
func (m *Model) cycleCompletion() {
	if m.completions.Visible {
		m.completions.Next()
		m.applyCompletion()
		return
	}

	value := m.input.Value()
	if !strings.HasPrefix(value, "/") {
		return
	}

	comps := m.completer.Complete(value, len(value))
	m.completions.Update(value, comps)
	if m.completions.Visible {
		m.applyCompletion()
	}
	m.viewport.Height = m.viewportHeight()
}

// applyCompletion splices the selected completion into the input,
// replacing the token being completed.
func (m *Model) applyCompletion() {
	selected := m.completions.GetSelected()
	if selected == nil {
		return
	}

	original := m.completions.OriginalInput
	var line string
	if idx := strings.LastIndex(original, " "); idx >= 0 {
		line = original[:idx+1] + selected.Value
	} else {
		// Completing the command name itself.
		line = selected.Value
	}
	m.input.SetValue(line)
	m.input.CursorEnd()
}

func (m *Model) clearCompletions() {
	m.completions.Clear()
	m.viewport.Height = m.viewportHeight()
}

// =============================================================================
// FORMAT HELPERS
// =============================================================================

func formatModelList(models []commands.ModelInfo) string {
	var sb strings.Builder
	sb.WriteString("Available models:\n")
	for _, mi := range models {
		sb.WriteString(fmt.Sprintf("  %-10s %s\n", mi.Alias, mi.ID))
	}
	sb.WriteString("Switch with /model <alias>")
	return sb.String()
}

func (m *Model) formatConfig(key string) string {
	if m.cfg == nil {
		return "No configuration loaded."
	}
	lines := map[string]string{
		"model":         m.cfg.Chat.DefaultModel,
		"temperature":   fmt.Sprintf("%.1f", m.cfg.Chat.Temperature),
		"system_prompt": m.cfg.Chat.SystemPrompt,
		"search":        fmt.Sprintf("%t", m.cfg.Search.Enabled),
		"max_results":   fmt.Sprintf("%d", m.cfg.Search.MaxResults),
		"theme":         m.cfg.UI.Theme,
		"show_stats":    fmt.Sprintf("%t", m.cfg.UI.ShowStats),
	}

	if key != "" {
		if v, ok := lines[key]; ok {
			return fmt.Sprintf("%s = %s", key, v)
		}
		return fmt.Sprintf("Unknown config key: %s", key)
	}

	order := []string{"model", "temperature", "system_prompt", "search", "max_results", "theme", "show_stats"}
	var sb strings.Builder
	sb.WriteString("Configuration:\n")
	for _, k := range order {
		sb.WriteString(fmt.Sprintf("  %-14s %s\n", k, lines[k]))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m *Model) formatStatus() string {
	if m.sess == nil {
		return "No active session."
	}
	search := "off"
	if m.sess.SearchEnabled() {
		search = "on"
	} else if !m.sess.SearchConfigured() {
		search = "unavailable"
	}
	return fmt.Sprintf(
		"Session %s\n  Model:       %s\n  Temperature: %.1f\n  Search:      %s\n  Messages:    %d\n  Est. tokens: %d",
		m.sess.ID,
		m.sess.Model(),
		m.sess.Temperature(),
		search,
		m.sess.Conversation.MessageCount(),
		m.sess.Conversation.EstimateTokens(),
	)
}
