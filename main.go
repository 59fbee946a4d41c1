// chatbot - a terminal chat client for OpenRouter models with
// web-search augmentation and math-aware rendering.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/usharma123/chatbot/internal/cloud"
	"github.com/usharma123/chatbot/internal/commands"
	"github.com/usharma123/chatbot/internal/config"
	"github.com/usharma123/chatbot/internal/search"
	"github.com/usharma123/chatbot/internal/session"
	"github.com/usharma123/chatbot/internal/storage"
	"github.com/usharma123/chatbot/internal/ui/chat"
	"github.com/usharma123/chatbot/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	args := parseArgs(os.Args[1:])
	if args.showVersion {
		fmt.Printf("chatbot %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}
	if args.showHelp {
		printUsage()
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not load config: %v\n", err)
		cfg = config.Default()
	}
	cfg.ApplyEnvOverrides()

	// CLI flags override config.
	if args.model != "" {
		cfg.Chat.DefaultModel = args.model
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	cloudClient := cloud.NewOpenRouterClient(cfg.Cloud.OpenRouterKey)
	if cfg.Cloud.BaseURL != "" {
		cloudClient.WithBaseURL(cfg.Cloud.BaseURL)
	}
	cloudClient.SetModel(cfg.Chat.DefaultModel)
	cloudClient.SetTemperature(cfg.Chat.Temperature)

	if !cloudClient.IsConfigured() {
		fmt.Fprintln(os.Stderr, "Warning: no OpenRouter API key configured.")
		fmt.Fprintln(os.Stderr, "Set OPENROUTER_API_KEY or add openrouter_key to ~/.chatbot/config.toml to chat.")
	}

	// A missing search key only degrades: chat works, /search stays off.
	searchClient := search.NewClient(cfg.Search.TavilyKey)
	if cfg.Search.BaseURL != "" {
		searchClient.WithBaseURL(cfg.Search.BaseURL)
	}
	if cfg.Search.MaxResults > 0 {
		searchClient.WithMaxResults(cfg.Search.MaxResults)
	}

	sess := session.New(cloudClient, searchClient)
	if args.search || (cfg.Search.Enabled && sess.SearchConfigured()) {
		sess.EnableSearch(true)
	}

	store, err := storage.NewConversationStore()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not initialize conversation storage: %v\n", err)
		store = nil
	}

	m := chat.New(chat.Options{
		Config:  cfg,
		Cloud:   cloudClient,
		Search:  searchClient,
		Session: sess,
		Store:   store,
		Theme:   themeFromConfig(cfg),
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	// Hot-reload theme and stats settings when the config file changes.
	if path, err := config.ConfigPathTOML(); err == nil {
		if watcher, werr := config.Watch(path, func(fresh *config.Config) {
			p.Send(commands.ThemeChangedMsg{Theme: fresh.UI.Theme})
			p.Send(commands.StatsToggleMsg{Enabled: fresh.UI.ShowStats})
		}); werr == nil {
			defer watcher.Close()
		}
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running chatbot: %v\n", err)
		os.Exit(1)
	}
}

// themeFromConfig builds the theme, honoring an explicit dark/light
// setting and falling back to terminal background detection.
func themeFromConfig(cfg *config.Config) *styles.Theme {
	switch cfg.UI.Theme {
	case "dark":
		return styles.NewThemeForBackground(true)
	case "light":
		return styles.NewThemeForBackground(false)
	default:
		return styles.NewTheme()
	}
}

// =============================================================================
// ARGUMENT PARSING
// =============================================================================

type cliArgs struct {
	showVersion bool
	showHelp    bool
	search      bool
	model       string
}

func parseArgs(argv []string) cliArgs {
	var args cliArgs
	for i := 0; i < len(argv); i++ {
		switch argv[i] {
		case "--version", "-v":
			args.showVersion = true
		case "--help", "-h":
			args.showHelp = true
		case "--search":
			args.search = true
		case "--model", "-m":
			if i+1 < len(argv) {
				i++
				args.model = argv[i]
			}
		default:
			fmt.Fprintf(os.Stderr, "Unknown flag: %s\n\n", argv[i])
			printUsage()
			os.Exit(1)
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`chatbot - terminal chat for OpenRouter models

Usage:
  chatbot [flags]

Flags:
  -m, --model <name>   Model to use (alias or full OpenRouter ID)
      --search         Start with web search augmentation enabled
  -v, --version        Print version and exit
  -h, --help           Print this help and exit

Environment:
  OPENROUTER_API_KEY   API key for chat completions (required to chat)
  TAVILY_API_KEY       API key for web search (optional)

Configuration is read from ~/.chatbot/config.toml.`)
}
