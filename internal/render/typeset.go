// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render segments mixed Markdown/LaTeX chat text for display.
package render

// =============================================================================
// TYPESET RESULT TYPE
// =============================================================================

// Typesetter formats one math segment for display. It receives the inner
// expression via the segment and returns the display form, or an error if
// the expression cannot be typeset.
type Typesetter func(seg Segment) (string, error)

// PlainRenderer formats plain text for display (typically a Markdown
// engine). It must not fail; a renderer that can fail should return its
// input on error.
type PlainRenderer func(text string) string

// Rendered is the display outcome for one segment. When the typesetter
// rejects a math segment, Fallback is true and Output holds the literal
// text wrapped in its original delimiter convention, produced through the
// plain path. The fallback is per-segment: siblings are unaffected.
type Rendered struct {
	Segment  Segment
	Output   string
	Fallback bool
}

// Typeset renders one segment. Math segments go through the typesetter
// with the literal-text fallback; plain segments go straight through the
// plain renderer.
func Typeset(seg Segment, math Typesetter, plain PlainRenderer) Rendered {
	if seg.Kind.IsMath() {
		out, err := math(seg)
		if err != nil {
			return Rendered{Segment: seg, Output: plain(seg.Delimited()), Fallback: true}
		}
		return Rendered{Segment: seg, Output: out}
	}
	return Rendered{Segment: seg, Output: plain(seg.Text)}
}

// TypesetAll renders a segment sequence in order. A typeset failure in one
// segment never aborts the rest.
func TypesetAll(segs []Segment, math Typesetter, plain PlainRenderer) []Rendered {
	out := make([]Rendered, 0, len(segs))
	for _, seg := range segs {
		out = append(out, Typeset(seg, math, plain))
	}
	return out
}
