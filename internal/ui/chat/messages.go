// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the tea messages that drive the chat update loop.
package chat

import (
	"time"

	"github.com/usharma123/chatbot/internal/model"
)

// StreamTickMsg fires on a fixed interval while a response is streaming.
// Each tick drains the streaming buffer into the visible transcript.
type StreamTickMsg struct {
	Time time.Time
}

// TurnCompleteMsg is emitted when RunTurn returns, whether the stream
// finished cleanly or failed.
type TurnCompleteMsg struct {
	Message *model.Message
	Err     error
}

// turnResult carries RunTurn's outcome from the stream goroutine back to
// the update loop over the done channel.
type turnResult struct {
	message *model.Message
	err     error
}
