// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render segments mixed Markdown/LaTeX chat text for display.
package render

import (
	"regexp"
	"strings"

	"github.com/dlclark/regexp2"
)

// =============================================================================
// PERFORMANCE: Pre-compiled regex (compiled once at startup)
// =============================================================================

var (
	// TeX-style delimiters, non-greedy across newlines.
	texBlockRe  = regexp.MustCompile(`(?s)\\\[(.*?)\\\]`)
	texInlineRe = regexp.MustCompile(`(?s)\\\((.*?)\\\)`)

	// Well-formed math runs: $$...$$ spanning newlines, or single-line $...$.
	// Leftmost-first matching tries the block form before the inline form, so
	// a $$ pair is never misread as two inline delimiters.
	mathRunRe = regexp.MustCompile(`(?s)\$\$.*?\$\$|\$[^$\n]+?\$`)

	// Final segmentation patterns.
	blockMathRe  = regexp.MustCompile(`(?s)\$\$.*?\$\$`)
	inlineMathRe = regexp.MustCompile(`\$[^$\n]+?\$`)

	// Square-bracket spans NOT followed by "(" (those are Markdown links).
	// The negative lookahead needs regexp2; RE2 has no lookaround.
	bracketSpanRe = regexp2.MustCompile(`\[([^\[\]]+)\](?!\()`, regexp2.None)

	// Bare backslash commands: a backslash, letters, then anything up to
	// punctuation, two-or-more consecutive whitespace, or end of text.
	// Known heuristic: this also fires on literal backslash paths in prose;
	// the misfire is accepted rather than guessed around.
	bareCommandRe = regexp2.MustCompile(`\\[a-zA-Z]+[^.,;:!?$]*?(?=[.,;:!?$]|\s{2,}|\z)`, regexp2.None)
)

// =============================================================================
// RENDERER
// =============================================================================

// Renderer splits raw chat text into typed segments. The zero-cost way to
// get one is New; NewWithVocabulary swaps the math vocabulary for testing
// or extension.
type Renderer struct {
	vocab Vocabulary
}

// New creates a renderer with the default math vocabulary.
func New() *Renderer {
	return &Renderer{vocab: DefaultVocabulary()}
}

// NewWithVocabulary creates a renderer with a custom math vocabulary.
func NewWithVocabulary(vocab Vocabulary) *Renderer {
	return &Renderer{vocab: vocab}
}

// Split is a convenience wrapper over New().Split.
func Split(text string) []Segment {
	return New().Split(text)
}

// Split produces the ordered segment sequence for text. Segments are
// emitted left-to-right; Plain segments are never blank after trimming;
// math segments carry the inner expression without delimiters.
//
// Split performs no I/O and holds no state between calls: it is safe to
// call from any goroutine and re-running it on the same input yields the
// same result.
func (r *Renderer) Split(text string) []Segment {
	return r.segment(r.Normalize(text))
}

// Normalize rewrites every recognized math convention in text to the
// $ / $$ convention without segmenting it. The steps are order-sensitive:
// already-classified math runs are carried through untouched so later
// rewrites cannot corrupt them.
func (r *Renderer) Normalize(text string) string {
	// Step 1: \[...\] becomes $$...$$ (block), inner trimmed.
	text = texBlockRe.ReplaceAllStringFunc(text, func(m string) string {
		return "$$" + strings.TrimSpace(m[2:len(m)-2]) + "$$"
	})

	// Step 2: \(...\) becomes $...$ (inline), inner trimmed.
	text = texInlineRe.ReplaceAllStringFunc(text, func(m string) string {
		return "$" + strings.TrimSpace(m[2:len(m)-2]) + "$"
	})

	// Steps 3-5: split into math and non-math runs, rewrite only the
	// non-math runs, and recombine in original order.
	var b strings.Builder
	for _, run := range splitRuns(mathRunRe, text) {
		if run.math {
			b.WriteString(run.text)
		} else {
			b.WriteString(r.normalizeRun(run.text))
		}
	}
	return b.String()
}

// normalizeRun applies the bracket-span and bare-command rewrites to one
// non-math run.
func (r *Renderer) normalizeRun(run string) string {
	// Step 4a: bracketed spans containing a vocabulary term become block
	// math. The scan is non-overlapping, greedy left-to-right: the first
	// valid span wins and scanning resumes after its close bracket.
	run = replaceAll(bracketSpanRe, run, func(m *regexp2.Match) string {
		inner := m.GroupByNumber(1).String()
		if r.vocab.Matches(inner) {
			return "$$" + strings.TrimSpace(inner) + "$$"
		}
		return m.String()
	})

	// Step 4b: bare backslash commands become inline math. Spans already
	// classified by 4a must not be re-processed, so split again and only
	// rewrite the pieces outside math runs.
	var b strings.Builder
	for _, piece := range splitRuns(mathRunRe, run) {
		if piece.math {
			b.WriteString(piece.text)
			continue
		}
		b.WriteString(replaceAll(bareCommandRe, piece.text, func(m *regexp2.Match) string {
			cmd := strings.TrimRight(m.String(), " \t")
			trailing := m.String()[len(cmd):]
			return "$" + cmd + "$" + trailing
		}))
	}
	return b.String()
}

// segment performs the final split of normalized text into segments.
func (r *Renderer) segment(text string) []Segment {
	var segs []Segment

	// Step 6: block math first, spanning newlines.
	for _, run := range splitRuns(blockMathRe, text) {
		if run.math {
			segs = append(segs, MathBlock(run.text[2:len(run.text)-2]))
			continue
		}

		// Step 7: inline math within the non-block parts.
		for _, sub := range splitRuns(inlineMathRe, run.text) {
			if sub.math {
				segs = append(segs, MathInline(sub.text[1:len(sub.text)-1]))
			} else if strings.TrimSpace(sub.text) != "" {
				segs = append(segs, Plain(sub.text))
			}
		}
	}

	return segs
}

// =============================================================================
// HELPERS
// =============================================================================

// textRun is one alternating piece of a split: math runs matched the
// pattern, non-math runs are the text between matches.
type textRun struct {
	text string
	math bool
}

// splitRuns splits s on re, keeping both the matches and the text between
// them in document order. Empty between-text is skipped.
func splitRuns(re *regexp.Regexp, s string) []textRun {
	var runs []textRun
	last := 0
	for _, loc := range re.FindAllStringIndex(s, -1) {
		if loc[0] > last {
			runs = append(runs, textRun{text: s[last:loc[0]]})
		}
		runs = append(runs, textRun{text: s[loc[0]:loc[1]], math: true})
		last = loc[1]
	}
	if last < len(s) {
		runs = append(runs, textRun{text: s[last:]})
	}
	return runs
}

// replaceAll runs a regexp2 replacement with an evaluator, returning the
// input unchanged if the engine errors (it cannot for our anchored-free
// patterns, but the API returns one).
func replaceAll(re *regexp2.Regexp, s string, eval func(*regexp2.Match) string) string {
	out, err := re.ReplaceFunc(s, func(m regexp2.Match) string {
		return eval(&m)
	}, -1, -1)
	if err != nil {
		return s
	}
	return out
}
