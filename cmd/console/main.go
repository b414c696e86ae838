package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jwebster45206/freud-of-the-dark/internal/config"
	"github.com/jwebster45206/freud-of-the-dark/pkg/conversation"
	"github.com/jwebster45206/freud-of-the-dark/pkg/snippet"
	"github.com/jwebster45206/freud-of-the-dark/pkg/textfilter"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// The alt screen owns stdout, so logs go to a file or nowhere.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if path := os.Getenv("CONSOLE_LOG"); path != "" {
		f, err := tea.LogToFile(path, "console")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cfg.LogLevel}))
	}

	catalog := snippet.LoadOrBuiltin(cfg.SnippetFile, logger)
	if catalog.Source() == "builtin" {
		fmt.Fprintf(os.Stderr, "Could not load %s; playing with built-in snippets.\n", cfg.SnippetFile)
	}

	opts := []conversation.Option{
		conversation.WithLogger(logger),
		conversation.WithMaxDeliveries(cfg.MaxInteractions),
	}
	if cfg.RandomSeed != 0 {
		opts = append(opts, conversation.WithSeed(cfg.RandomSeed))
	}
	engine, err := conversation.NewDefaultEngine(catalog, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start engine: %v\n", err)
		os.Exit(1)
	}

	filter := textfilter.New(textfilter.ParseRating(cfg.ContentRating))

	p := tea.NewProgram(NewConsoleUI(engine, filter),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}
