// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// eightd color palette - forge ambers over steel greys
var (
	ColorAmber     = lipgloss.Color("#F2A33C") // highlights, section tabs
	ColorAmberDeep = lipgloss.Color("#C97F1E") // borders, accents
	ColorSteel     = lipgloss.Color("#8A97A0") // muted text
	ColorIron      = lipgloss.Color("#4A555E") // subtle borders
	ColorSuccess   = lipgloss.Color("#3DDC97") // passed sections
	ColorWarning   = lipgloss.Color("#F4D03F") // notices
	ColorError     = lipgloss.Color("#E74C3C") // failed sections
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style

	Box      lipgloss.Style
	CoachBox lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style

	BadgePassed     lipgloss.Style
	BadgeFailed     lipgloss.Style
	BadgeValidating lipgloss.Style
	BadgeIdle       lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorAmber),
	Subtitle: lipgloss.NewStyle().Foreground(ColorAmberDeep),
	Muted:    lipgloss.NewStyle().Foreground(ColorSteel),
	Success:  lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:  lipgloss.NewStyle().Foreground(ColorWarning),
	Error:    lipgloss.NewStyle().Foreground(ColorError),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorIron).
		Padding(0, 1),
	CoachBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorAmberDeep).
		Padding(0, 1),

	TabActive: lipgloss.NewStyle().Bold(true).
		Foreground(ColorAmber).Underline(true),
	TabInactive: lipgloss.NewStyle().Foreground(ColorSteel),

	BadgePassed:     lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	BadgeFailed:     lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	BadgeValidating: lipgloss.NewStyle().SetString("⟳").Foreground(ColorWarning),
	BadgeIdle:       lipgloss.NewStyle().SetString("○").Foreground(ColorIron),
}

// interactive reports whether stdout is a real terminal. Piped output gets
// plain text with no styling or TUI.
func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printOK writes a success line, styled only on a terminal.
func printOK(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if interactive() {
		fmt.Println(Styles.Success.Render("✓ ") + msg)
		return
	}
	fmt.Println(msg)
}

func printErr(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if interactive() {
		fmt.Fprintln(os.Stderr, Styles.Error.Render("✗ ")+msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}
