// Package ui holds the terminal render helpers shared by the CLI commands.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/daybookhq/daybook/internal/model"
)

var (
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// colorEnabled is resolved once at startup. Styles degrade to plain text
// on dumb terminals and in pipes.
var colorEnabled = termenv.EnvColorProfile() != termenv.Ascii

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderAccent highlights identifiers and titles.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderPass marks success output.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderWarn marks warnings.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderFail marks errors.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderDim de-emphasizes secondary detail.
func RenderDim(s string) string { return render(dimStyle, s) }

// RenderHeader formats a section heading.
func RenderHeader(s string) string { return render(headerStyle, s) }

// StatusBadge renders a task status with its conventional color.
func StatusBadge(status model.Status) string {
	switch status {
	case model.StatusDone:
		return RenderPass("done")
	case model.StatusInProgress:
		return RenderWarn("in progress")
	default:
		return RenderDim("todo")
	}
}

// TaskLine formats one task for list output.
func TaskLine(t *model.Task, assigneeLabel string) string {
	line := fmt.Sprintf("%s  [%s]  %s", RenderAccent(shortID(t.ID)), StatusBadge(t.Status), t.Title)
	if assigneeLabel != "" && assigneeLabel != model.Self {
		line += RenderDim(fmt.Sprintf("  @%s", assigneeLabel))
	}
	if t.DurationHours != nil {
		line += RenderDim(fmt.Sprintf("  %.1fh", *t.DurationHours))
	}
	if t.PostponeReason != "" {
		line += RenderWarn(fmt.Sprintf("  (postponed: %s)", t.PostponeReason))
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
