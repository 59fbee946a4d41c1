// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render segments mixed Markdown/LaTeX chat text for display.
package render

// =============================================================================
// SEGMENT TYPE
// =============================================================================

// Kind identifies how a segment should be displayed.
type Kind int

const (
	// KindPlain is ordinary text, rendered by a Markdown engine.
	KindPlain Kind = iota

	// KindMathInline is a math expression rendered within a line of text.
	KindMathInline

	// KindMathBlock is a math expression rendered on its own display line.
	KindMathBlock
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindMathInline:
		return "math-inline"
	case KindMathBlock:
		return "math-block"
	default:
		return "unknown"
	}
}

// IsMath reports whether the kind is one of the math kinds.
func (k Kind) IsMath() bool {
	return k == KindMathInline || k == KindMathBlock
}

// Segment is one typed run of a rendered message, in display order.
// For math kinds, Text carries the inner expression with the surrounding
// delimiters stripped.
type Segment struct {
	Kind Kind
	Text string
}

// Plain creates a plain-text segment.
func Plain(text string) Segment {
	return Segment{Kind: KindPlain, Text: text}
}

// MathInline creates an inline math segment.
func MathInline(expr string) Segment {
	return Segment{Kind: KindMathInline, Text: expr}
}

// MathBlock creates a block math segment.
func MathBlock(expr string) Segment {
	return Segment{Kind: KindMathBlock, Text: expr}
}

// Delimited returns the segment text wrapped back in its delimiter
// convention: $...$ for inline math, $$...$$ for block math, and the
// text unchanged for plain segments.
func (s Segment) Delimited() string {
	switch s.Kind {
	case KindMathInline:
		return "$" + s.Text + "$"
	case KindMathBlock:
		return "$$" + s.Text + "$$"
	default:
		return s.Text
	}
}
