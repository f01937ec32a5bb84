package tui

import "github.com/charmbracelet/lipgloss"

var (
	textColor   = lipgloss.AdaptiveColor{Light: "#262626", Dark: "#d9d9d9"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#626262", Dark: "#a8a8a8"}
	accentColor = lipgloss.AdaptiveColor{Light: "#005577", Dark: "#00aadd"}
	okColor     = lipgloss.AdaptiveColor{Light: "#859900", Dark: "#50fa7b"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#b58900", Dark: "#f1fa8c"}
	failColor   = lipgloss.AdaptiveColor{Light: "#dc322f", Dark: "#ff5555"}
)

var (
	titleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#dddddd"}).
		Bold(true).
		Margin(1, 0, 2, 0)

	menuItemStyle = lipgloss.NewStyle().
		Padding(0, 2).
		Margin(0, 1).
		Foreground(textColor)

	selectedMenuItemStyle = menuItemStyle.
		Foreground(lipgloss.AdaptiveColor{Light: "#ffffff", Dark: "#000000"}).
		Background(accentColor).
		Bold(true)

	helpStyle = lipgloss.NewStyle().
		Foreground(mutedColor).
		Margin(2, 0, 0, 0)

	labelStyle = lipgloss.NewStyle().
		Foreground(okColor).
		Bold(true)

	statStyle = lipgloss.NewStyle().
		Foreground(textColor).
		PaddingLeft(3)

	progressStyle = lipgloss.NewStyle().Margin(1, 0)
	successStyle  = lipgloss.NewStyle().Foreground(okColor).Bold(true)
	warningStyle  = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	errorStyle    = lipgloss.NewStyle().Foreground(failColor).Bold(true)
)

// GetAdaptiveStyles returns title, form and help styles sized to the
// terminal. A zero width leaves them unconstrained.
func GetAdaptiveStyles(width, height int) (title, form, help lipgloss.Style) {
	maxWidth := 0
	if width > 4 {
		maxWidth = width - 4
	}

	title = titleStyle.Align(lipgloss.Center).Width(maxWidth)
	form = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(1, 2).
		Margin(1, 0).
		Width(maxWidth)
	help = helpStyle.Width(maxWidth)
	return title, form, help
}
