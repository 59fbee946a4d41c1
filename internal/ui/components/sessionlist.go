// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/usharma123/chatbot/internal/storage"
	"github.com/usharma123/chatbot/internal/ui/styles"
	"github.com/usharma123/chatbot/internal/util"
)

// =============================================================================
// SESSION LIST
// =============================================================================

// SessionList renders the saved conversation list shown by /sessions.
type SessionList struct {
	theme *styles.Theme
}

// NewSessionList creates a session list for the given theme.
func NewSessionList(theme *styles.Theme) *SessionList {
	return &SessionList{theme: theme}
}

// Render renders the conversation list.
func (l *SessionList) Render(metas []storage.ConversationMeta) string {
	if len(metas) == 0 {
		return l.theme.SessionList.Render(
			l.theme.SessionMeta.Render("No saved conversations. Use /save to keep one."))
	}

	var sb strings.Builder

	sb.WriteString(l.theme.SessionTitle.Render("Saved conversations"))
	sb.WriteString("\n\n")

	for i, meta := range metas {
		sb.WriteString(fmt.Sprintf("%s %s %s\n",
			l.theme.SessionID.Render(fmt.Sprintf("%d. %s", i+1, meta.ID)),
			l.theme.SessionTitle.Render(util.TruncateRunes(meta.Summary, 40)),
			l.theme.SessionMeta.Render(fmt.Sprintf("(%d msgs, %s)",
				meta.MessageCount,
				meta.UpdatedAt.Format("Jan 2 15:04")))))
	}

	sb.WriteString("\n")
	sb.WriteString(l.theme.SessionMeta.Render("Load with /load <id> or /load <number>"))

	return l.theme.SessionList.Render(strings.TrimRight(sb.String(), "\n"))
}
