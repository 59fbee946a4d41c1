// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"
	"testing"
)

func TestNewTheme(t *testing.T) {
	theme := NewTheme()
	if theme == nil {
		t.Fatal("expected theme")
	}
}

func TestNewThemeForBackground(t *testing.T) {
	dark := NewThemeForBackground(true)
	if !dark.IsDark {
		t.Error("expected dark theme")
	}

	light := NewThemeForBackground(false)
	if light.IsDark {
		t.Error("expected light theme")
	}
}

func TestLayoutModes(t *testing.T) {
	theme := NewThemeForBackground(true)

	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	for _, tt := range tests {
		theme.SetSize(tt.width, 40)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: layout = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestStatusIndicators(t *testing.T) {
	// Shape indicators must survive terminals without color support
	if !strings.Contains(RenderSuccess("saved"), "[OK]") {
		t.Error("success indicator missing")
	}
	if !strings.Contains(RenderError("failed"), "[X]") {
		t.Error("error indicator missing")
	}
	if !strings.Contains(RenderWarning("careful"), "[!]") {
		t.Error("warning indicator missing")
	}
	if !strings.Contains(RenderInfo("note"), "[i]") {
		t.Error("info indicator missing")
	}
}

func TestRenderStatus(t *testing.T) {
	if !strings.Contains(RenderStatus(true, "done"), "[OK]") {
		t.Error("expected success indicator")
	}
	if !strings.Contains(RenderStatus(false, "broke"), "[X]") {
		t.Error("expected error indicator")
	}
}
