package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"folio/internal/adapter/tui/components"
	"folio/internal/infra/config"
)

// runProfile prints the portfolio card rendered for the terminal.
func runProfile() error {
	cfg, err := config.Load(configPath())
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return printProfile(cfg, os.Stdout, terminalWidth(os.Stdout))
}

func printProfile(cfg *config.Config, w io.Writer, width int) error {
	catalog, err := loadCatalog(cfg)
	if err != nil {
		return err
	}
	out, err := components.RenderMarkdown(catalog.Markdown(), width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// terminalWidth returns the width of f, or 80 when f is not a terminal.
func terminalWidth(f *os.File) int {
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
		return min(w, 100)
	}
	return 80
}
