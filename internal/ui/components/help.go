// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/usharma123/chatbot/internal/commands"
	"github.com/usharma123/chatbot/internal/ui/styles"
)

// =============================================================================
// HELP VIEW
// =============================================================================

// Help renders the command help shown by /help.
type Help struct {
	theme    *styles.Theme
	registry *commands.Registry
}

// NewHelp creates a help view over the given command registry.
func NewHelp(theme *styles.Theme, registry *commands.Registry) *Help {
	return &Help{theme: theme, registry: registry}
}

// Render renders the help text. An empty topic shows all categories;
// a topic matching a category name shows just that category.
func (h *Help) Render(topic string) string {
	byCategory := h.registry.ByCategory()

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var sb strings.Builder
	sb.WriteString(h.theme.SessionTitle.Render("Commands"))
	sb.WriteString("\n")

	for _, category := range categories {
		if topic != "" && !strings.EqualFold(category, topic) {
			continue
		}

		sb.WriteString("\n")
		sb.WriteString(h.theme.HeaderTitle.Render(category))
		sb.WriteString("\n")

		cmds := byCategory[category]
		sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		for _, cmd := range cmds {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			aliases := ""
			if len(cmd.Aliases) > 0 {
				aliases = h.theme.SessionMeta.Render(" (" + strings.Join(cmd.Aliases, ", ") + ")")
			}
			sb.WriteString(fmt.Sprintf("  %s%s\n      %s\n",
				h.theme.ShortcutKey.Render(usage),
				aliases,
				h.theme.ShortcutDesc.Render(cmd.Description)))
		}
	}

	return h.theme.SessionList.Render(strings.TrimRight(sb.String(), "\n"))
}
