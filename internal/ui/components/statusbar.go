// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/usharma123/chatbot/internal/ui/styles"
	"github.com/usharma123/chatbot/internal/util"
)

// =============================================================================
// STATUS BAR
// =============================================================================

// StatusBar renders the bottom status line of the chat view.
type StatusBar struct {
	theme *styles.Theme

	// Model is the active model ID
	Model string

	// SearchEnabled indicates web search augmentation is on
	SearchEnabled bool

	// TokenEstimate is the estimated token count of the conversation
	TokenEstimate int

	// MessageCount is the number of messages in the conversation
	MessageCount int

	// Streaming indicates a response is in progress
	Streaming bool
}

// NewStatusBar creates a status bar for the given theme.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{theme: theme}
}

// Render renders the status bar at the given width.
func (s *StatusBar) Render(width int) string {
	var left []string

	left = append(left, s.theme.StatusModel.Render(util.TruncateRunes(s.Model, 32)))

	if s.SearchEnabled {
		left = append(left, s.theme.SearchOn.Render("search:on"))
	} else {
		left = append(left, s.theme.SearchOff.Render("search:off"))
	}

	left = append(left, fmt.Sprintf("%d msgs", s.MessageCount))
	left = append(left, fmt.Sprintf("~%d tok", s.TokenEstimate))

	if s.Streaming {
		left = append(left, s.theme.ThinkingText.Render("streaming"))
	}

	leftPart := strings.Join(left, " | ")

	shortcuts := strings.Join([]string{
		s.theme.ShortcutKey.Render("tab") + s.theme.ShortcutDesc.Render(" complete"),
		s.theme.ShortcutKey.Render("/help") + s.theme.ShortcutDesc.Render(" commands"),
		s.theme.ShortcutKey.Render("ctrl+c") + s.theme.ShortcutDesc.Render(" quit"),
	}, "  ")

	gap := width - lipgloss.Width(leftPart) - lipgloss.Width(shortcuts) - 2
	if gap < 1 {
		return s.theme.StatusBar.Width(width).Render(leftPart)
	}

	return s.theme.StatusBar.Width(width).Render(
		leftPart + strings.Repeat(" ", gap) + shortcuts)
}
