package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/strrl/split-specs-dashboard/internal/viewmodel"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("63"))

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229"))

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	emptyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)

	errorNoticeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("231")).
				Background(lipgloss.Color("160")).
				Padding(0, 1)
	infoNoticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("28")).
			Padding(0, 1)

	confirmStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
)

// toneStyle maps a status tone onto a colour.
func toneStyle(t viewmodel.Tone) lipgloss.Style {
	switch t {
	case viewmodel.ToneWarning:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	case viewmodel.ToneSuccess:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	case viewmodel.ToneDanger:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	default:
		return normalStyle
	}
}

// savedStyle highlights time lost to parallel overhead.
func savedStyle(saved int64) lipgloss.Style {
	if saved < 0 {
		return toneStyle(viewmodel.ToneDanger)
	}
	return toneStyle(viewmodel.ToneSuccess)
}
