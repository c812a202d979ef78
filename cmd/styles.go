package cmd

import "github.com/charmbracelet/lipgloss/v2"

// Color constants shared by the report commands
var (
	rgbBlue   = lipgloss.Color("45")
	rgbPink   = lipgloss.Color("201")
	rgbRed    = lipgloss.Color("196")
	rgbYellow = lipgloss.Color("220")
	rgbGreen  = lipgloss.Color("46")
	rgbGrey   = lipgloss.Color("246")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rgbPink)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rgbBlue)

	subtleStyle = lipgloss.NewStyle().
			Foreground(rgbGrey)

	improvedStyle = lipgloss.NewStyle().
			Foreground(rgbGreen)

	warningStyle = lipgloss.NewStyle().
			Foreground(rgbYellow)

	criticalStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(rgbRed)
)

// alertStyle picks the render style for an alert level.
func alertStyle(level string) lipgloss.Style {
	switch level {
	case "critical":
		return criticalStyle
	case "warning":
		return warningStyle
	default:
		return subtleStyle
	}
}
