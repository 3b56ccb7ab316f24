package tui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#5FAFFF")
	mutedColor  = lipgloss.Color("#767676")
	okColor     = lipgloss.Color("#5FD75F")
	errColor    = lipgloss.Color("#FF5F5F")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#005F87")).
			Padding(0, 1)

	pageTabStyle       = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
	activePageTabStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true).Underline(true).Padding(0, 1)

	labelStyle      = lipgloss.NewStyle().Foreground(mutedColor)
	activeStyle     = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	filteringStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#D7AF00")).Italic(true)
	footerStyle     = lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1)
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#4E4E4E"))
	emptyStyle      = lipgloss.NewStyle().Foreground(mutedColor).Italic(true).Padding(1, 2)
	infoNoticeStyle = lipgloss.NewStyle().Foreground(accentColor)
	okNoticeStyle   = lipgloss.NewStyle().Foreground(okColor)
	errNoticeStyle  = lipgloss.NewStyle().Foreground(errColor).Bold(true)
	staleStyle      = lipgloss.NewStyle().Foreground(errColor).Italic(true)
)
