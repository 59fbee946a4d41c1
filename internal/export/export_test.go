// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/usharma123/chatbot/internal/storage"
)

func sampleConversation() *storage.StoredConversation {
	now := time.Now()
	return &storage.StoredConversation{
		ID:        "conv_test1234",
		Summary:   "Orbital mechanics question",
		Model:     "anthropic/claude-3.5-sonnet",
		CreatedAt: now.Add(-time.Hour),
		UpdatedAt: now,
		Messages: []storage.StoredMessage{
			{
				ID:        "m1",
				Role:      "user",
				Content:   "Explain Hohmann transfer orbits",
				Timestamp: now.Add(-time.Hour),
			},
			{
				ID:           "m2",
				Role:         "assistant",
				Content:      "A Hohmann transfer uses two burns.",
				Timestamp:    now,
				TokenCount:   12,
				DurationMs:   1500,
				TokensPerSec: 8.0,
				TTFTMs:       200,
				Sources: []storage.StoredSource{
					{Title: "Hohmann transfer", URL: "https://example.com/hohmann", PublishedDate: "2023-06-15"},
					{Title: "", URL: "https://example.com/orbits"},
				},
			},
		},
	}
}

func TestMarkdownExport(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	content, err := exporter.Export(sampleConversation())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	out := string(content)

	checks := []string{
		"title: Orbital mechanics question",
		"model: anthropic/claude-3.5-sonnet",
		"### [User]",
		"### [Assistant]",
		"Explain Hohmann transfer orbits",
		"A Hohmann transfer uses two burns.",
		"**Sources**:",
		"[Hohmann transfer](https://example.com/hohmann) (2023-06-15)",
		"Tokens: 12",
		"TTFT: 200ms",
	}
	for _, want := range checks {
		if !strings.Contains(out, want) {
			t.Errorf("markdown output missing %q", want)
		}
	}
}

func TestMarkdownExportUntitledSource(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	content, err := exporter.Export(sampleConversation())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	// Sources with no title fall back to the URL as link text
	if !strings.Contains(string(content), "[https://example.com/orbits](https://example.com/orbits)") {
		t.Error("expected URL fallback for untitled source")
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false
	exporter := NewMarkdownExporter(opts)

	content, err := exporter.Export(sampleConversation())
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	out := string(content)
	if strings.Contains(out, "## Session Information") {
		t.Error("expected no metadata section")
	}
	if strings.Contains(out, "<sub>Stats:") {
		t.Error("expected no stats without metadata")
	}
}

func TestMarkdownExportRejectsEmpty(t *testing.T) {
	exporter := NewMarkdownExporter(nil)

	if _, err := exporter.Export(nil); err == nil {
		t.Error("expected error for nil conversation")
	}

	empty := sampleConversation()
	empty.Messages = nil
	if _, err := exporter.Export(empty); err == nil {
		t.Error("expected error for empty conversation")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	exporter := NewJSONExporter(nil)
	conv := sampleConversation()

	content, err := exporter.Export(conv)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var decoded storage.StoredConversation
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("exported JSON is invalid: %v", err)
	}

	if decoded.ID != conv.ID {
		t.Errorf("ID = %q", decoded.ID)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(decoded.Messages))
	}
	if len(decoded.Messages[1].Sources) != 2 {
		t.Errorf("expected 2 sources, got %d", len(decoded.Messages[1].Sources))
	}
}

func TestExportToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportMarkdown(sampleConversation(), opts)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}

	if filepath.Ext(path) != ".md" {
		t.Errorf("expected .md extension, got %q", path)
	}
	if !strings.Contains(filepath.Base(path), "Orbital_mechanics_question") {
		t.Errorf("expected sanitized summary in filename, got %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read exported file: %v", err)
	}
	if !strings.Contains(string(data), "# Orbital mechanics question") {
		t.Error("exported file missing title")
	}
}

func TestExportJSONToFile(t *testing.T) {
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportJSON(sampleConversation(), opts)
	if err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if filepath.Ext(path) != ".json" {
		t.Errorf("expected .json extension, got %q", path)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"simple", "simple"},
		{"with spaces", "with_spaces"},
		{"slash/colon:star*", "slash-colon-star-"},
		{"", "conversation"},
		{"tabs\tand\nnewlines", "tabs_and_newlines"},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.input); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{500, "500ms"},
		{1500, "1.50s"},
		{90000, "1m 30s"},
	}

	for _, tt := range tests {
		if got := formatDuration(tt.ms); got != tt.want {
			t.Errorf("formatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}
