// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package search

import (
	"fmt"
	"strings"
)

// BuildPrompt appends retrieved search context to the user's query for the
// outbound model request. The returned string is used only in the API
// payload; the displayed transcript keeps the raw query.
//
// With no results the query is returned unchanged, so a degraded search
// leaves the outbound prompt identical to what the user typed.
func BuildPrompt(query string, results []Result) string {
	if len(results) == 0 {
		return query
	}

	var b strings.Builder
	b.WriteString(query)
	b.WriteString("\n\nWeb search results for context:\n")

	for i, r := range results {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, r.Title)
		fmt.Fprintf(&b, "URL: %s\n", r.URL)
		if r.PublishedDate != "" {
			fmt.Fprintf(&b, "Published: %s\n", r.PublishedDate)
		}
		if r.Summary != "" {
			fmt.Fprintf(&b, "%s\n", r.Summary)
		}
	}

	b.WriteString("\nUse the results above when they are relevant, and cite URLs when you rely on them.")

	return b.String()
}
