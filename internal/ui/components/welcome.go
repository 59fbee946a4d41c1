// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/usharma123/chatbot/internal/ui/styles"
)

// =============================================================================
// WELCOME SCREEN
// =============================================================================

const logo = `
       _           _   _           _
   ___| |__   __ _| |_| |__   ___ | |_
  / __| '_ \ / _` + "`" + ` | __| '_ \ / _ \| __|
 | (__| | | | (_| | |_| |_) | (_) | |_
  \___|_| |_|\__,_|\__|_.__/ \___/ \__|
`

// Welcome renders the initial welcome screen.
type Welcome struct {
	theme *styles.Theme

	// Version string shown under the logo
	Version string

	// Model is the active model ID
	Model string

	// SearchConfigured indicates a search API key is present
	SearchConfigured bool
}

// NewWelcome creates a welcome screen for the given theme.
func NewWelcome(theme *styles.Theme) *Welcome {
	return &Welcome{theme: theme, Version: "0.1.0"}
}

// Render renders the welcome screen centered in the given dimensions.
func (w *Welcome) Render(width, height int) string {
	var sb strings.Builder

	sb.WriteString(w.theme.WelcomeLogo.Render(strings.TrimLeft(logo, "\n")))
	sb.WriteString("\n")
	sb.WriteString(w.theme.WelcomeVersion.Render("v" + w.Version))
	sb.WriteString("\n\n")
	sb.WriteString(w.theme.WelcomeInfo.Render(fmt.Sprintf("Model: %s", w.Model)))
	sb.WriteString("\n")

	if w.SearchConfigured {
		sb.WriteString(w.theme.WelcomeInfo.Render("Web search available - toggle with /search"))
	} else {
		sb.WriteString(w.theme.WelcomeInfo.Render("Web search unavailable (no Tavily key)"))
	}
	sb.WriteString("\n\n")

	sb.WriteString(w.theme.WelcomeInfo.Render("Type a message to start, or "))
	sb.WriteString(w.theme.WelcomeKey.Render("/help"))
	sb.WriteString(w.theme.WelcomeInfo.Render(" for commands"))

	box := w.theme.WelcomeBox.Render(sb.String())

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
