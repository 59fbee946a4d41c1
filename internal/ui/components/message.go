// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides reusable view components for the chat TUI.
package components

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/usharma123/chatbot/internal/model"
	"github.com/usharma123/chatbot/internal/render"
	"github.com/usharma123/chatbot/internal/ui/styles"
)

// =============================================================================
// MESSAGE RENDERER
// =============================================================================

// MessageRenderer renders chat messages with markdown and math formatting.
type MessageRenderer struct {
	theme     *styles.Theme
	width     int
	markdown  *glamour.TermRenderer
	segmenter *render.Renderer

	// ShowStats controls whether assistant statistics are shown
	ShowStats bool
}

// NewMessageRenderer creates a message renderer for the given theme.
func NewMessageRenderer(theme *styles.Theme) *MessageRenderer {
	r := &MessageRenderer{
		theme:     theme,
		width:     80,
		segmenter: render.New(),
		ShowStats: true,
	}
	r.rebuildMarkdown()
	return r
}

// SetWidth updates the wrap width and rebuilds the markdown renderer.
func (r *MessageRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == r.width {
		return
	}
	r.width = width
	r.rebuildMarkdown()
}

func (r *MessageRenderer) rebuildMarkdown() {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(r.width-4),
	)
	if err != nil {
		// Glamour failure degrades to plain text output
		r.markdown = nil
		return
	}
	r.markdown = renderer
}

// Render renders a complete message with its bubble, sources, and stats.
func (r *MessageRenderer) Render(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return r.renderUser(msg)
	case model.RoleSystem:
		return r.renderSystem(msg)
	default:
		return r.renderAssistant(msg)
	}
}

// RenderStreaming renders an in-progress assistant response from the
// partial text accumulated so far.
// PERFORMANCE: Raw text during streaming; full formatting happens once
// on finalize.
func (r *MessageRenderer) RenderStreaming(partial string) string {
	label := r.theme.RoleLabel.Render("Assistant")
	content := partial
	if content == "" {
		content = r.theme.ThinkingText.Render("Thinking...")
	}
	bubble := r.theme.AssistantBubble.Width(r.bubbleWidth()).Render(content)
	return label + "\n" + bubble
}

func (r *MessageRenderer) renderUser(msg *model.Message) string {
	label := r.theme.RoleLabel.Render("You")
	bubble := r.theme.UserBubble.Width(r.bubbleWidth()).Render(msg.Content)
	return lipgloss.JoinVertical(lipgloss.Right, label, bubble)
}

func (r *MessageRenderer) renderSystem(msg *model.Message) string {
	return r.theme.SystemBubble.Render(msg.Content)
}

func (r *MessageRenderer) renderAssistant(msg *model.Message) string {
	var parts []string

	parts = append(parts, r.theme.RoleLabel.Render("Assistant"))

	body := r.renderMixedContent(msg.GetDisplayContent())
	parts = append(parts, r.theme.AssistantBubble.Width(r.bubbleWidth()).Render(body))

	if msg.HasSources() {
		parts = append(parts, r.renderSources(msg.Sources))
	}

	if r.ShowStats && msg.TokenCount > 0 {
		parts = append(parts, r.renderStats(msg))
	}

	return strings.Join(parts, "\n")
}

// =============================================================================
// MIXED CONTENT RENDERING
// =============================================================================

// renderMixedContent segments text into prose and math, renders prose as
// markdown, inlines typeset math into the flow, and gives display math its
// own highlighted block.
func (r *MessageRenderer) renderMixedContent(text string) string {
	segments := r.segmenter.Split(text)

	var out []string
	var flow strings.Builder

	flush := func() {
		if flow.Len() == 0 {
			return
		}
		out = append(out, r.renderMarkdown(flow.String()))
		flow.Reset()
	}

	for _, seg := range segments {
		switch seg.Kind {
		case render.KindMathBlock:
			flush()
			out = append(out, r.renderMathBlock(seg))
		case render.KindMathInline:
			flow.WriteString(r.typesetInline(seg))
		default:
			flow.WriteString(seg.Text)
		}
	}
	flush()

	return strings.TrimRight(strings.Join(out, "\n"), "\n")
}

// renderMarkdown renders prose through glamour, falling back to the raw
// text when rendering fails.
func (r *MessageRenderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return strings.TrimSpace(text)
	}
	rendered, err := r.markdown.Render(text)
	if err != nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimRight(rendered, "\n")
}

// typesetInline converts an inline math segment to its display form. A
// segment the typesetter rejects falls back to its delimited literal text.
func (r *MessageRenderer) typesetInline(seg render.Segment) string {
	result := render.Typeset(seg, typesetUnicode, func(s string) string { return s })
	if result.Fallback {
		return result.Output
	}
	return r.theme.MathInline.Render(result.Output)
}

// renderMathBlock renders display math in a bordered block with TeX
// syntax highlighting.
func (r *MessageRenderer) renderMathBlock(seg render.Segment) string {
	highlighted := highlightTeX(seg.Text)
	return r.theme.MathBlock.Width(r.bubbleWidth() - 4).Render(highlighted)
}

// typesetUnicode converts simple TeX expressions to unicode. Expressions
// it cannot handle are rejected so the caller falls back to the literal.
func typesetUnicode(seg render.Segment) (string, error) {
	out := seg.Text
	for _, tex := range texReplacementOrder {
		out = strings.ReplaceAll(out, tex, texReplacements[tex])
	}
	// An expression still carrying TeX commands is beyond this typesetter
	if strings.Contains(out, "\\") {
		return "", fmt.Errorf("unsupported TeX command in %q", seg.Text)
	}
	return out, nil
}

// texReplacements maps common TeX commands to unicode equivalents.
var texReplacements = map[string]string{
	`\alpha`:   "α",
	`\beta`:    "β",
	`\gamma`:   "γ",
	`\delta`:   "δ",
	`\epsilon`: "ε",
	`\theta`:   "θ",
	`\lambda`:  "λ",
	`\mu`:      "μ",
	`\pi`:      "π",
	`\sigma`:   "σ",
	`\phi`:     "φ",
	`\omega`:   "ω",
	`\infty`:   "∞",
	`\sum`:     "Σ",
	`\prod`:    "Π",
	`\int`:     "∫",
	`\partial`: "∂",
	`\nabla`:   "∇",
	`\pm`:      "±",
	`\times`:   "×",
	`\cdot`:    "·",
	`\div`:     "÷",
	`\leq`:     "≤",
	`\geq`:     "≥",
	`\neq`:     "≠",
	`\approx`:  "≈",
	`\equiv`:   "≡",
	`\in`:      "∈",
	`\subset`:  "⊂",
	`\cup`:     "∪",
	`\cap`:     "∩",
	`\forall`:  "∀",
	`\exists`:  "∃",
	`\sqrt`:    "√",
	`\to`:      "→",
	`\implies`: "⟹",
	`\iff`:     "⟺",
}

// texReplacementOrder lists the replacement keys longest-first.
// UNICODE: \in is a prefix of \infty and \int; replacing it first would
// corrupt the longer commands, so ordering here is load-bearing.
var texReplacementOrder = func() []string {
	keys := make([]string, 0, len(texReplacements))
	for k := range texReplacements {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}()

// highlightTeX applies TeX syntax highlighting using the chroma library.
func highlightTeX(expr string) string {
	lexer := lexers.Get("latex")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, expr)
	if err != nil {
		return expr
	}

	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return expr
	}

	return buf.String()
}

// =============================================================================
// SOURCES AND STATS
// =============================================================================

// renderSources renders search citations below an assistant message.
func (r *MessageRenderer) renderSources(sources []model.Source) string {
	var sb strings.Builder

	sb.WriteString(r.theme.SourceTitle.Render("Sources:"))
	sb.WriteString("\n")
	for i, src := range sources {
		title := src.Title
		if title == "" {
			title = src.URL
		}
		sb.WriteString(fmt.Sprintf("  [%d] %s\n      %s\n",
			i+1,
			r.theme.SourceTitle.Render(title),
			r.theme.SourceURL.Render(src.URL)))
	}

	return r.theme.SourceList.Render(strings.TrimRight(sb.String(), "\n"))
}

// renderStats renders the response statistics line.
func (r *MessageRenderer) renderStats(msg *model.Message) string {
	parts := []string{
		fmt.Sprintf("%s %s",
			r.theme.StatsLabel.Render("tokens:"),
			r.theme.StatsValue.Render(fmt.Sprintf("%d", msg.TokenCount))),
	}

	if msg.TTFT > 0 {
		parts = append(parts, fmt.Sprintf("%s %s",
			r.theme.StatsLabel.Render("ttft:"),
			r.theme.StatsValue.Render(msg.TTFT.Round(10_000_000).String())))
	}

	if msg.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("%s %s",
			r.theme.StatsLabel.Render("speed:"),
			r.theme.StatsValue.Render(fmt.Sprintf("%.1f tok/s", msg.TokensPerSec))))
	}

	return "  " + strings.Join(parts, "  ")
}

func (r *MessageRenderer) bubbleWidth() int {
	w := r.width - 8
	if w < 20 {
		w = 20
	}
	return w
}
