package cmd

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/fxc/lang"
)

// Styles.
var (
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
)

func severityStyle(s lang.Severity) lipgloss.Style {
	switch s {
	case lang.SeverityError:
		return errorStyle
	case lang.SeverityWarning:
		return warningStyle
	}

	return infoStyle
}
