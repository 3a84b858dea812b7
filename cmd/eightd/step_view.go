// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"eightd/pkg/workflow"
)

func (m stepModel) View() string {
	if m.err != nil {
		return Styles.Error.Render("Could not load the step: "+m.err.Error()) + "\n"
	}
	if m.loading {
		return fmt.Sprintf("\n  %s Loading %s — %s…\n", m.spin.View(), m.code, m.code.Title())
	}

	var b strings.Builder
	b.WriteString(m.viewHeader())
	if len(m.keys) > 1 {
		b.WriteString(m.viewTabs())
	}

	form := m.viewForm()
	coach := m.viewCoach()
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, form, " ", coach))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(Styles.Warning.Render("⚠ "+m.notice) + "\n")
	}
	if banner := m.viewCompletion(); banner != "" {
		b.WriteString(banner + "\n")
	}
	b.WriteString(m.viewFiles())
	b.WriteString(m.viewFooter())
	return b.String()
}

func (m stepModel) viewHeader() string {
	ref := fmt.Sprintf("complaint %d", m.complaintID)
	if m.complaint != nil {
		ref = m.complaint.Reference + " · " + m.complaint.Title
	}
	title := fmt.Sprintf("%s  %s — %s", ref, m.code, m.code.Title())
	return Styles.Title.Render(title) + "\n\n"
}

func statusBadge(status workflow.SectionStatus) string {
	switch status {
	case workflow.SectionPassed:
		return Styles.BadgePassed.String()
	case workflow.SectionFailed:
		return Styles.BadgeFailed.String()
	case workflow.SectionValidating:
		return Styles.BadgeValidating.String()
	default:
		return Styles.BadgeIdle.String()
	}
}

func (m stepModel) viewTabs() string {
	var tabs []string
	for i, key := range m.keys {
		label := statusBadge(m.statuses[key].Status) + " " + key
		if i == m.section {
			label = Styles.TabActive.Render(label)
		} else {
			label = Styles.TabInactive.Render(label)
		}
		tabs = append(tabs, label)
	}
	line := strings.Join(tabs, "   ")
	if m.orch.Validating() {
		line += "  " + m.spin.View()
	}
	return line + "\n\n"
}

func (m stepModel) viewForm() string {
	var b strings.Builder
	for i, w := range m.widgets {
		marker := "  "
		if i == m.focus {
			marker = Styles.Subtitle.Render("▸ ")
		}
		b.WriteString(marker + Styles.Muted.Render(w.spec.Label) + "\n")
		b.WriteString(m.viewWidget(w, i == m.focus))
		b.WriteString("\n")
	}
	return Styles.Box.Render(strings.TrimRight(b.String(), "\n"))
}

func (m stepModel) viewWidget(w *fieldWidget, focused bool) string {
	switch w.spec.Kind {
	case workflow.FieldText:
		return "  " + w.text.View() + "\n"
	case workflow.FieldMultiline:
		return w.area.View() + "\n"
	case workflow.FieldBool:
		box := "[ ] no"
		if w.on {
			box = "[x] yes"
		}
		return "  " + box + "\n"
	case workflow.FieldMultiSelect:
		var b strings.Builder
		for j, opt := range w.spec.Options {
			cursor := " "
			if focused && j == w.cursor {
				cursor = "›"
			}
			mark := "[ ]"
			if w.selected[opt] {
				mark = "[x]"
			}
			fmt.Fprintf(&b, "  %s %s %s\n", cursor, mark, opt)
		}
		return b.String()
	}
	return ""
}

func (m stepModel) viewCoach() string {
	if len(m.coach) == 0 {
		return Styles.CoachBox.Render(Styles.Muted.Render("Coach\nNo feedback yet."))
	}
	var b strings.Builder
	b.WriteString(Styles.Subtitle.Render("Coach") + "\n")
	for _, e := range m.coach {
		switch e.Kind {
		case workflow.CoachGood:
			b.WriteString(Styles.Success.Render("✓ "+e.Text) + "\n")
		case workflow.CoachWarn:
			b.WriteString(Styles.Warning.Render("⚠ "+e.Text) + "\n")
		default:
			b.WriteString(Styles.Muted.Render("· "+e.Text) + "\n")
		}
	}
	return Styles.CoachBox.Render(strings.TrimRight(b.String(), "\n"))
}

// viewCompletion renders the countdown banner after the last section
// passes. D8 completes the report; there is nowhere left to navigate.
func (m stepModel) viewCompletion() string {
	if !m.allPassed {
		return ""
	}
	next, ok := m.code.Next()
	if !ok {
		return Styles.Success.Render("✓ All sections passed — the 8D report is complete.")
	}
	if m.countdown > 0 {
		return Styles.Success.Render(
			fmt.Sprintf("✓ Step complete. Moving to %s in %ds…", next, m.countdown))
	}
	return Styles.Success.Render(fmt.Sprintf("✓ Step complete. Moving to %s…", next))
}

func (m stepModel) viewFiles() string {
	if len(m.files) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(Styles.Muted.Render("Evidence:") + "\n")
	for _, f := range m.files {
		fmt.Fprintf(&b, "  %s %s (%s)\n", f.Icon, f.Filename, f.SizeLabel)
	}
	return b.String()
}

func (m stepModel) viewFooter() string {
	help := "tab focus · ctrl+s save · ctrl+d submit section · esc quit"
	if len(m.keys) > 1 {
		help = "tab focus · ctrl+t section · ctrl+s save · ctrl+d submit section · esc quit"
	}
	return "\n" + Styles.Muted.Render(help) + "\n"
}
