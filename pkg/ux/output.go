// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling for the graphd CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette - deep ocean teals and arctic waters
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - main brand color
	ColorTealDeep    = lipgloss.Color("#16858E") // Deep teal - accents
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text

	ColorWarning = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	ServerPrompt lipgloss.Style
	ClientPrompt lipgloss.Style
	Reply        lipgloss.Style
	Muted        lipgloss.Style
	Warning      lipgloss.Style
	Error        lipgloss.Style
}{
	ServerPrompt: lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
	ClientPrompt: lipgloss.NewStyle().Foreground(ColorTealDeep),
	Reply:        lipgloss.NewStyle().Foreground(ColorTealPrimary),
	Muted:        lipgloss.NewStyle().Foreground(ColorSlate),
	Warning:      lipgloss.NewStyle().Foreground(ColorWarning),
	Error:        lipgloss.NewStyle().Foreground(ColorError),
}

// Prompt prefixes.
const (
	ServerPrefix = "server > "
	ClientPrefix = "client > "
)

// Printer writes relay output, styled when attached to a terminal.
//
// Thread Safety: Safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	styled bool
}

// NewPrinter returns a Printer for out. Styling is enabled only when out is
// a terminal.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styled: IsTerminal(out)}
}

// NewPlainPrinter returns a Printer that never styles.
func NewPlainPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// NewStyledPrinter returns a Printer that always styles.
func NewStyledPrinter(out io.Writer) *Printer {
	return &Printer{out: out, styled: true}
}

// Styled reports whether output is styled.
func (p *Printer) Styled() bool {
	return p.styled
}

// ServerLine prints a line received from the server.
func (p *Printer) ServerLine(text string) {
	p.printf("%s%s\n", p.render(Styles.ServerPrompt, ServerPrefix), p.render(Styles.Reply, text))
}

// Prompt prints the client prompt without a newline.
func (p *Printer) Prompt() {
	p.printf("%s", p.render(Styles.ClientPrompt, ClientPrefix))
}

// Notice prints a muted informational line.
func (p *Printer) Notice(text string) {
	p.printf("%s\n", p.render(Styles.Muted, text))
}

// Warning prints a warning line.
func (p *Printer) Warning(text string) {
	if !p.styled {
		p.printf("WARN: %s\n", text)
		return
	}
	p.printf("%s\n", Styles.Warning.Render("⚠ "+text))
}

// Error prints an error line.
func (p *Printer) Error(text string) {
	if !p.styled {
		p.printf("ERROR: %s\n", text)
		return
	}
	p.printf("%s\n", Styles.Error.Render("✗ "+text))
}

func (p *Printer) render(style lipgloss.Style, text string) string {
	if !p.styled {
		return text
	}
	return style.Render(text)
}

func (p *Printer) printf(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

// IsTerminal reports whether w is a terminal file.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
