// Package ui holds terminal styling shared by the pocket commands.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	// Title styles section headings.
	Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

	// Label styles field names in status output.
	Label = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// Online styles connectivity when reachable.
	Online = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)

	// Offline styles connectivity when unreachable.
	Offline = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

	// Dirty styles pending-upload counts.
	Dirty = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))

	// Muted styles secondary detail.
	Muted = lipgloss.NewStyle().Faint(true)
)

// Plain disables all styling. Used when stdout is not a terminal.
func Plain() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// Field renders a "label: value" line for status output.
func Field(label string, value any) string {
	return fmt.Sprintf("%s %v", Label.Render(label+":"), value)
}
