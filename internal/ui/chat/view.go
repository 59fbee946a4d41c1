// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file renders the chat view: transcript viewport, completion
// popup, input area, and status bar.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/usharma123/chatbot/internal/util"
)

// maxPopupItems caps the completion popup height.
const maxPopupItems = 6

// View renders the full chat screen.
func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(m.viewport.View())
	sb.WriteString("\n")

	if m.completions.Visible {
		sb.WriteString(m.renderCompletionPopup())
		sb.WriteString("\n")
	}

	sb.WriteString(m.theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	sb.WriteString("\n")
	sb.WriteString(m.statusBar.Render(m.width))

	return sb.String()
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport rebuilds the viewport content from the transcript and
// the in-flight stream, then follows the tail unless the user scrolled up.
func (m *Model) refreshViewport() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.transcriptView())
	if atBottom || m.streaming {
		m.viewport.GotoBottom()
	}
}

// transcriptView joins all scrollback entries plus the streaming block.
func (m *Model) transcriptView() string {
	if len(m.entries) == 0 && !m.streaming {
		return m.welcome.Render(m.width, m.viewport.Height)
	}

	blocks := make([]string, 0, len(m.entries)+1)
	for _, e := range m.entries {
		blocks = append(blocks, e.rendered)
	}

	if m.streaming {
		indicator := m.spin.View() + " "
		blocks = append(blocks, indicator+"\n"+m.renderer.RenderStreaming(m.streamText))
	}

	return strings.Join(blocks, "\n\n")
}

// =============================================================================
// COMPLETION POPUP
// =============================================================================

// popupHeight is the rendered height of the completion popup including
// its border.
func (m *Model) popupHeight() int {
	n := len(m.completions.Completions)
	if n > maxPopupItems {
		n = maxPopupItems
	}
	return n + 2
}

// renderCompletionPopup renders the visible window of completions with
// the selection highlighted.
func (m *Model) renderCompletionPopup() string {
	comps := m.completions.Completions
	selected := m.completions.Selected

	// Keep the selection inside the visible window.
	start := 0
	if selected >= maxPopupItems {
		start = selected - maxPopupItems + 1
	}
	end := start + maxPopupItems
	if end > len(comps) {
		end = len(comps)
	}

	var rows []string
	for i := start; i < end; i++ {
		c := comps[i]
		label := c.Display
		if label == "" {
			label = c.Value
		}
		line := label
		if c.Description != "" {
			line += "  " + util.TruncateRunes(c.Description, 40)
		}
		if i == selected {
			rows = append(rows, m.theme.CompletionSelected.Render(line))
		} else {
			rows = append(rows, m.theme.CompletionItem.Render(line))
		}
	}

	popup := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return m.theme.CompletionPopup.Render(popup)
}
