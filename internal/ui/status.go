// Package ui provides the terminal output of htmlserve.
// This file implements the status lines printed while a page is served.
package ui

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	primaryColor = "#7C3AED" // Purple
	successColor = "#10B981" // Green
	warningColor = "#F59E0B" // Amber
	dimColor     = "#6B7280" // Gray
)

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(primaryColor)).Bold(true)
	urlStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(successColor)).Underline(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(warningColor))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(dimColor))
)

// Printer writes user-facing status lines. Colour is used only when the
// destination is a terminal.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	styled bool
}

// NewPrinter creates a Printer for w.
func NewPrinter(w io.Writer) *Printer {
	styled := false
	if f, ok := w.(*os.File); ok {
		styled = term.IsTerminal(int(f.Fd()))
	}
	return &Printer{w: w, styled: styled}
}

// Serving announces the served URL.
func (p *Printer) Serving(url, path string) {
	p.printf("%s %s\n", p.render(titleStyle, "Serving"), p.render(urlStyle, url))
	p.printf("%s\n", p.render(dimStyle, "  "+path+" (closes with the browser tab, or press Ctrl+C)"))
}

// ManualOpen tells the user to open url themselves.
func (p *Printer) ManualOpen(url string, err error) {
	p.printf("%s\n", p.render(warningStyle, fmt.Sprintf("Could not open a browser: %v", err)))
	p.printf("Open %s manually.\n", p.render(urlStyle, url))
}

// NotInstrumented warns that the page has no closing body tag.
func (p *Printer) NotInstrumented(path string) {
	p.printf("%s\n", p.render(warningStyle,
		"No </body> tag in "+path+"; closing the tab will not stop the server (press Ctrl+C)."))
}

// Modified warns that the target changed after it was served.
func (p *Printer) Modified(path string) {
	p.printf("%s\n", p.render(warningStyle,
		path+" changed on disk; restart htmlserve to serve the new version."))
}

// Stopped reports why the session ended.
func (p *Printer) Stopped(reason string) {
	p.printf("%s\n", p.render(dimStyle, "Stopped ("+reason+")."))
}

func (p *Printer) render(s lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return s.Render(text)
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, format, args...)
}
