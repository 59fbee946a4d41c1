// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file implements token batching for streaming responses.
//
// Tokens arrive on the stream goroutine far faster than the terminal can
// usefully repaint. Flushing every token forces a full view render per
// token and makes long answers feel janky. The buffer accumulates tokens
// and the update loop drains it on a fixed tick, so redraw frequency is
// bounded regardless of token rate.
package chat

import (
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

const (
	// defaultBatchSize is the token count that marks the buffer as ready
	// to flush before the next tick arrives.
	defaultBatchSize = 15

	// defaultMaxFPS caps the redraw rate during streaming.
	defaultMaxFPS = 30
)

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer accumulates streamed tokens for batched display updates.
//
// PERFORMANCE: Write is called from the stream goroutine while Flush and
// ShouldFlush are called from the update loop, so all state is guarded by
// a mutex. The contended section is a strings.Builder append, which keeps
// the stream goroutine from ever blocking on a render.
type StreamingBuffer struct {
	mu         sync.Mutex
	pending    strings.Builder
	tokenCount int
	lastFlush  time.Time
	batchSize  int
	minFlush   time.Duration
}

// NewStreamingBuffer creates a buffer with the default batching policy.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize: defaultBatchSize,
		minFlush:  time.Second / defaultMaxFPS,
		lastFlush: time.Now(),
	}
}

// Write appends a token to the pending buffer. Safe to call from the
// stream goroutine.
func (b *StreamingBuffer) Write(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.WriteString(token)
	b.tokenCount++
}

// Flush returns the pending content and resets the buffer if either the
// batch size or the minimum flush interval has been reached. Returns an
// empty string when neither condition holds.
func (b *StreamingBuffer) Flush() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.tokenCount == 0 {
		return ""
	}
	if b.tokenCount < b.batchSize && time.Since(b.lastFlush) < b.minFlush {
		return ""
	}
	return b.drainLocked()
}

// ForceFlush returns all pending content regardless of batching policy.
// Used when the stream completes so no trailing tokens are dropped.
func (b *StreamingBuffer) ForceFlush() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tokenCount == 0 {
		return ""
	}
	return b.drainLocked()
}

// drainLocked empties the buffer. Caller must hold the mutex.
func (b *StreamingBuffer) drainLocked() string {
	content := b.pending.String()
	b.pending.Reset()
	b.tokenCount = 0
	b.lastFlush = time.Now()
	return content
}

// Pending reports how many tokens are buffered but not yet flushed.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tokenCount
}

// Reset discards all buffered content.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pending.Reset()
	b.tokenCount = 0
	b.lastFlush = time.Now()
}

// SetBatchSize overrides the flush threshold. Values below 1 are clamped.
func (b *StreamingBuffer) SetBatchSize(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 1 {
		n = 1
	}
	b.batchSize = n
}

// =============================================================================
// TICK COMMAND
// =============================================================================

// streamTickCmd schedules the next buffer drain. The tick interval matches
// the buffer's flush interval so ticks and flushes stay in lockstep.
func streamTickCmd() tea.Cmd {
	return tea.Tick(time.Second/defaultMaxFPS, func(t time.Time) tea.Msg {
		return StreamTickMsg{Time: t}
	})
}
