// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/usharma123/chatbot/internal/ui/styles"
)

// =============================================================================
// ERROR BOX
// =============================================================================

// ErrorBox renders a boxed error with an optional recovery tip.
type ErrorBox struct {
	theme *styles.Theme
}

// NewErrorBox creates an error box for the given theme.
func NewErrorBox(theme *styles.Theme) *ErrorBox {
	return &ErrorBox{theme: theme}
}

// Render renders the error box.
func (e *ErrorBox) Render(title, message, tip string) string {
	var sb strings.Builder

	if title == "" {
		title = "Error"
	}
	sb.WriteString(e.theme.ErrorTitle.Render(styles.StatusIndicators.Error + " " + title))

	if message != "" {
		sb.WriteString("\n")
		sb.WriteString(e.theme.ErrorMessage.Render(message))
	}

	if tip != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.theme.ErrorTip.Render("Tip: " + tip))
	}

	return e.theme.ErrorBox.Render(sb.String())
}
