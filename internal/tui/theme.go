package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorCorrect    = lipgloss.Color("#22c55e")
	ColorCommission = lipgloss.Color("#dc2626")
	ColorOmission   = lipgloss.Color("#d97706")
	ColorDimmed     = lipgloss.Color("#6b7280")
	ColorBright     = lipgloss.Color("#f9fafb")
	ColorAccent     = lipgloss.Color("#3b82f6")
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)

	dimStyle = lipgloss.NewStyle().Foreground(ColorDimmed)

	digitStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorAccent).
			Padding(1, 4).
			Width(11).
			Align(lipgloss.Center)

	countdownStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorOmission)
)

func feedbackStyle(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}
