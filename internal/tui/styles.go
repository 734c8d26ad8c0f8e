package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")
	ColorRed       = lipgloss.Color("#E06C75")
	ColorGreen     = lipgloss.Color("#98C379")
	ColorYellow    = lipgloss.Color("#E5C07B")
	ColorBlue      = lipgloss.Color("#61AFEF")
	ColorMagenta   = lipgloss.Color("#C678DD")
	ColorBorder    = lipgloss.Color("#3F4451")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	PaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	FocusedPaneStyle = PaneStyle.
				BorderForeground(ColorBlue)

	PaneTitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	DoneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Strikethrough(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	StatusStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			PaddingLeft(1)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			PaddingLeft(1)

	AIStyle = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorBlue).
		Foreground(ColorFgPrimary).
		PaddingLeft(1)
)

// memberStyle renders a name in the member's palette color.
func memberStyle(color string) lipgloss.Style {
	if color == "" {
		return lipgloss.NewStyle().Foreground(ColorFgPrimary)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Bold(true)
}
