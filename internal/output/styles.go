package output

import "github.com/charmbracelet/lipgloss"

// Color palette.
const (
	ColorAccent   = "154"
	ColorAccentLo = "106"
	ColorWhite    = "255"
	ColorGray     = "245"
	ColorDarkGray = "238"
	ColorRed      = "196"
	ColorYellow   = "220"
)

// Styles holds the text styles used by Writer.
type Styles struct {
	Header  lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Dim     lipgloss.Style
	Label   lipgloss.Style
	Score   lipgloss.Style
	Quote   lipgloss.Style
	Panel   lipgloss.Style
}

// DefaultStyles returns the coloured styles for terminals.
func DefaultStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Label:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Score:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentLo)),
		Quote:   lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWhite)).Italic(true),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
	}
}

// NoColorStyles returns unstyled components for pipes and NO_COLOR.
func NoColorStyles() Styles {
	return Styles{
		Header:  lipgloss.NewStyle(),
		Success: lipgloss.NewStyle(),
		Warning: lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle(),
		Dim:     lipgloss.NewStyle(),
		Label:   lipgloss.NewStyle(),
		Score:   lipgloss.NewStyle(),
		Quote:   lipgloss.NewStyle(),
		Panel:   lipgloss.NewStyle(),
	}
}
