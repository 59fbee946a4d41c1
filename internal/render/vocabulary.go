// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render segments mixed Markdown/LaTeX chat text for display.
package render

import "strings"

// =============================================================================
// MATH VOCABULARY
// =============================================================================

// Vocabulary is the set of substrings used to decide whether a bracketed
// span is LaTeX. It is plain data so callers can extend or replace it.
type Vocabulary []string

// DefaultVocabulary returns the standard math vocabulary: common LaTeX
// command fragments, Greek letter names, trig and calculus operators, and
// comparison/set symbols. A single backslash is included so any explicit
// command qualifies.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		"\\",
		"frac", "cdot", "text", "sqrt", "sum", "int",
		"alpha", "beta", "gamma", "delta", "theta", "pi",
		"sigma", "mu", "lambda", "omega",
		"sin", "cos", "tan", "log", "exp",
		"partial", "nabla",
		"leq", "geq", "neq", "approx", "equiv",
		"rightarrow", "leftarrow", "infty",
		"forall", "exists",
		"cup", "cap", "setminus", "subset", "subseteq", "superset",
		"wedge", "vee", "oplus", "otimes",
		"pm", "times", "div", "prod",
		"lim", "det", "ker", "dim", "Re", "Im",
	}
}

// Matches reports whether the text contains any vocabulary term.
// This is a substring check, not a token match: "fraction" matches "frac".
// The heuristic errs toward classifying bracketed spans as math.
func (v Vocabulary) Matches(text string) bool {
	for _, term := range v {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}
