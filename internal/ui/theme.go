package ui

import "github.com/charmbracelet/lipgloss"

// Chapter blue and the accents used across views.
var (
	chapterBlue = lipgloss.Color("#00629B")
	accentCyan  = lipgloss.Color("#00B5E2")

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentCyan).
			Padding(1, 0)

	KeyStyle = lipgloss.NewStyle().
			Foreground(accentCyan).
			Bold(true).
			Width(10)

	MetaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#828282"))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F5F"))

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(chapterBlue).
			Padding(1, 2)
)
