// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive chat view.
//
// The Model is a bubbletea model wiring together the input area, the
// transcript viewport, the command system, and the streaming session.
// One RunTurn executes per submission; its tokens arrive on a background
// goroutine, get batched by the StreamingBuffer, and drain into the
// viewport on a fixed tick.
package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/usharma123/chatbot/internal/cloud"
	"github.com/usharma123/chatbot/internal/commands"
	"github.com/usharma123/chatbot/internal/config"
	"github.com/usharma123/chatbot/internal/model"
	"github.com/usharma123/chatbot/internal/search"
	"github.com/usharma123/chatbot/internal/session"
	"github.com/usharma123/chatbot/internal/storage"
	"github.com/usharma123/chatbot/internal/ui/components"
	"github.com/usharma123/chatbot/internal/ui/styles"
)

// =============================================================================
// TRANSCRIPT ENTRIES
// =============================================================================

// transcriptEntry is one rendered block in the scrollback. Message entries
// keep a reference to the message so they can be re-rendered on resize;
// notice entries (help text, session lists, errors) keep their rendered
// form as-is.
type transcriptEntry struct {
	msg      *model.Message
	rendered string
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the bubbletea model for the chat view.
type Model struct {
	theme *styles.Theme
	cfg   *config.Config
	sess  *session.Session
	store *storage.ConversationStore

	registry  *commands.Registry
	parser    *commands.Parser
	completer *commands.Completer
	cmdCtx    *commands.Context

	renderer    *components.MessageRenderer
	statusBar   *components.StatusBar
	welcome     *components.Welcome
	sessionList *components.SessionList
	helpView    *components.Help
	errBox      *components.ErrorBox

	input    textarea.Model
	viewport viewport.Model
	spin     spinner.Model
	keys     KeyMap

	entries []transcriptEntry

	// Streaming state. streamText is the UI-side accumulation of flushed
	// tokens; the session's message builder is only read after the turn
	// completes, so the two goroutines never share a buffer.
	streaming  bool
	streamText string
	buf        *StreamingBuffer
	cancelTurn context.CancelFunc

	completions *commands.CompletionState

	width  int
	height int
	ready  bool
}

// Options configures construction of the chat model.
type Options struct {
	Config  *config.Config
	Cloud   *cloud.OpenRouterClient
	Search  *search.Client
	Session *session.Session
	Store   *storage.ConversationStore
	Theme   *styles.Theme
}

// New creates a chat model wired to the given session and storage.
func New(opts Options) *Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)

	cmdCtx := commands.NewContext(opts.Config, opts.Cloud, opts.Search, opts.Store, opts.Session)

	if opts.Store != nil {
		completer.SessionsFn = func() []commands.SessionInfo {
			metas, err := opts.Store.List()
			if err != nil {
				return nil
			}
			infos := make([]commands.SessionInfo, 0, len(metas))
			for _, meta := range metas {
				infos = append(infos, commands.SessionInfo{
					ID:      meta.ID,
					Title:   meta.Summary,
					Preview: meta.Preview,
				})
			}
			return infos
		}
	}

	input := textarea.New()
	input.Placeholder = "Ask anything, or type / for commands"
	input.Prompt = "> "
	input.CharLimit = 8000
	input.SetHeight(1)
	input.ShowLineNumbers = false
	input.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = theme.Spinner

	m := &Model{
		theme:       theme,
		cfg:         opts.Config,
		sess:        opts.Session,
		store:       opts.Store,
		registry:    registry,
		parser:      commands.NewParser(registry),
		completer:   completer,
		cmdCtx:      cmdCtx,
		renderer:    components.NewMessageRenderer(theme),
		statusBar:   components.NewStatusBar(theme),
		welcome:     components.NewWelcome(theme),
		sessionList: components.NewSessionList(theme),
		helpView:    components.NewHelp(theme, registry),
		errBox:      components.NewErrorBox(theme),
		input:       input,
		spin:        spin,
		keys:        DefaultKeyMap(),
		buf:         NewStreamingBuffer(),
		completions: commands.NewCompletionState(),
	}

	if opts.Session != nil {
		m.welcome.Model = opts.Session.Model()
		m.welcome.SearchConfigured = opts.Session.SearchConfigured()
		m.statusBar.Model = opts.Session.Model()
		m.statusBar.SearchEnabled = opts.Session.SearchEnabled()
	}
	if opts.Config != nil {
		m.renderer.ShowStats = opts.Config.UI.ShowStats
	}

	return m
}

// Init starts the spinner tick.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spin.Tick)
}

// =============================================================================
// TRANSCRIPT HELPERS
// =============================================================================

// appendMessage adds a conversation message to the scrollback.
func (m *Model) appendMessage(msg *model.Message) {
	m.entries = append(m.entries, transcriptEntry{
		msg:      msg,
		rendered: m.renderer.Render(msg),
	})
}

// appendNotice adds a pre-rendered block (help, session list, error box)
// to the scrollback.
func (m *Model) appendNotice(rendered string) {
	m.entries = append(m.entries, transcriptEntry{rendered: rendered})
}

// appendUserEcho shows the submitted input immediately. The session
// appends its own canonical user message when the turn runs.
func (m *Model) appendUserEcho(content string) {
	m.appendMessage(model.NewUserMessage(content))
}

// appendSystem adds a system notice styled as a system message.
func (m *Model) appendSystem(content string) {
	m.appendMessage(model.NewSystemMessage(content))
}

// appendError adds an error box to the scrollback.
func (m *Model) appendError(title, message, tip string) {
	m.appendNotice(m.errBox.Render(title, message, tip))
}

// rerenderTranscript re-renders all message entries at the current width.
// Notice entries keep their original rendering.
func (m *Model) rerenderTranscript() {
	for i := range m.entries {
		if m.entries[i].msg != nil {
			m.entries[i].rendered = m.renderer.Render(m.entries[i].msg)
		}
	}
}

// rebuildFromConversation replaces the scrollback with the session's
// current history. Used after /load.
func (m *Model) rebuildFromConversation() {
	m.entries = nil
	for _, msg := range m.sess.Conversation.Messages {
		m.appendMessage(msg)
	}
}

// syncStatus refreshes the status bar from session state.
func (m *Model) syncStatus() {
	if m.sess == nil {
		return
	}
	m.statusBar.Model = m.sess.Model()
	m.statusBar.SearchEnabled = m.sess.SearchEnabled()
	m.statusBar.MessageCount = m.sess.Conversation.MessageCount()
	m.statusBar.TokenEstimate = m.sess.Conversation.EstimateTokens()
	m.statusBar.Streaming = m.streaming
}

// =============================================================================
// TURN EXECUTION
// =============================================================================

// startTurn launches RunTurn on a background goroutine and returns the
// commands that drive the streaming display: the drain tick and the
// completion wait.
func (m *Model) startTurn(input string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelTurn = cancel
	m.streaming = true
	m.streamText = ""
	m.buf.Reset()

	done := make(chan turnResult, 1)
	buf := m.buf
	sess := m.sess

	go func() {
		msg, err := sess.RunTurn(ctx, input, func(token string) {
			buf.Write(token)
		})
		done <- turnResult{message: msg, err: err}
	}()

	return tea.Batch(streamTickCmd(), waitTurnCmd(done))
}

// waitTurnCmd blocks until the turn goroutine finishes.
func waitTurnCmd(done chan turnResult) tea.Cmd {
	return func() tea.Msg {
		res := <-done
		return TurnCompleteMsg{Message: res.message, Err: res.err}
	}
}
