package ui

import "github.com/charmbracelet/lipgloss"

// The crimson accent mirrors the web client's palette.
var (
	accentColor = lipgloss.Color("#A33B39")
	mutedColor  = lipgloss.Color("245")

	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	sidebarStyle   = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderRight(true).BorderForeground(mutedColor).PaddingRight(1)
	selectedStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(accentColor)
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	statusStyle    = lipgloss.NewStyle().Foreground(mutedColor)
	errorStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	debugPaneStyle = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderLeft(true).BorderForeground(mutedColor).PaddingLeft(1).Foreground(mutedColor)
	guideStyle     = lipgloss.NewStyle().Foreground(mutedColor)
	helpStyle      = lipgloss.NewStyle().Foreground(mutedColor)
)
