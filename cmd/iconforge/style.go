package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Dark value first, light second.
var (
	colorSuccess = lipgloss.AdaptiveColor{Dark: "#22c55e", Light: "#16a34a"}
	colorWarning = lipgloss.AdaptiveColor{Dark: "#f59e0b", Light: "#d97706"}
	colorMuted   = lipgloss.AdaptiveColor{Dark: "#6b7280", Light: "#9ca3af"}
	colorAccent  = lipgloss.AdaptiveColor{Dark: "#a78bfa", Light: "#7c3aed"}
)

var (
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleID      = lipgloss.NewStyle().Foreground(colorAccent)
	styleBold    = lipgloss.NewStyle().Bold(true)
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", styleSuccess.Render("✓"), fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", styleWarning.Render("!"), fmt.Sprintf(format, args...))
}

func renderID(id string) string {
	return styleID.Render(shortID(id))
}

// swatch renders a block in hexColor; empty colors render muted.
func swatch(hexColor string) string {
	if hexColor == "" {
		return styleMuted.Render("██")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hexColor)).Render("██")
}

// labelValue right-aligns label in width columns.
func labelValue(label, value string, width int) string {
	l := lipgloss.NewStyle().Width(width).Align(lipgloss.Right).Foreground(colorMuted)
	return fmt.Sprintf("%s %s", l.Render(label+":"), value)
}
