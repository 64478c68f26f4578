package ui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ECFD65")).
			Padding(0, 1)

	chapterStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	sceneFrameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(1, 2)

	narrationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA"))

	narrationLargeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA")).
				Bold(true)

	narrationSmallStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#BBBBBB"))

	sceneNumberStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#666666"))

	statusReadyStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575"))

	statusWaitStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00AAFF"))

	statusErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	pausedBadgeStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFFF00")).
				Bold(true)

	overlayStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#874BFD")).
			Padding(1, 3)

	settingsSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#ECFD65")).
				Bold(true)

	settingsDimStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#888888"))
)
