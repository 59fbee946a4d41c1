// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render segments mixed Markdown/LaTeX chat text for display.
//
// LLM responses interleave plain Markdown with math in several delimiter
// conventions: TeX-style \[...\] and \(...\), bracket-wrapped math like
// [frac{1}{2}], bare backslash commands like \tan x, and conventional
// $...$ / $$...$$ regions. The renderer normalizes all of these to the
// $ / $$ convention and splits the text into an ordered sequence of typed
// segments so the caller can hand plain text to a Markdown engine and
// math expressions to a typesetter.
//
// The segmentation is a delimiter heuristic, not a LaTeX parser. A fixed
// vocabulary of command fragments decides whether a bracketed span is math;
// the vocabulary is data, not code, so it can be extended in tests or at
// call sites.
//
// # Usage
//
//	segs := render.Split("The area is \\[\\pi r^2\\].")
//	for _, seg := range segs {
//		switch seg.Kind {
//		case render.KindMathBlock, render.KindMathInline:
//			// typeset seg.Text
//		default:
//			// markdown seg.Text
//		}
//	}
//
// Split is a pure function: no I/O, no state, safe from any goroutine,
// and restartable (calling it twice on the same input yields the same
// segments).
package render
