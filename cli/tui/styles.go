// Package tui provides Bubble Tea views for the segwire CLI.
//
// TUI mode is opt-in (--tui) and limited to the read-only inspect and stats
// commands. Views render the same payloads as the json, table, and yaml
// formats; nothing is shown here that those formats omit.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	accentColor = lipgloss.Color("#0EA5E9") // Sky
	okColor     = lipgloss.Color("#22C55E") // Green
	pendColor   = lipgloss.Color("#EAB308") // Yellow
	failColor   = lipgloss.Color("#F43F5E") // Rose
	dimColor    = lipgloss.Color("#94A3B8") // Slate
	textColor   = lipgloss.Color("#F8FAFC")
)

var (
	// TitleStyle for view headers.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginBottom(1)

	// SectionStyle for group headers inside a view.
	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(dimColor)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Width(18)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(textColor)

	SuccessStyle = lipgloss.NewStyle().Foreground(okColor)
	WarningStyle = lipgloss.NewStyle().Foreground(pendColor)
	ErrorStyle   = lipgloss.NewStyle().Foreground(failColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor).
			Padding(1, 2)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			MarginTop(1)

	// StatBoxStyle for a single counter tile.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1).
			Width(18).
			Align(lipgloss.Center)

	StatLabelStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Align(lipgloss.Center)

	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			Align(lipgloss.Center)
)

// KindStyle returns a style for a unit kind or completion state.
func KindStyle(kind string) lipgloss.Style {
	switch kind {
	case "data", "complete":
		return SuccessStyle
	case "announcement", "pending":
		return WarningStyle
	case "malformed":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
