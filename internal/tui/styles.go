package tui

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	colorWhite     = lipgloss.Color("#FFFFFF")
	colorLightGray = lipgloss.Color("#CCCCCC")
	colorGray      = lipgloss.Color("#888888")
	colorDarkGray  = lipgloss.Color("#444444")
	colorGreen     = lipgloss.Color("#00FF00")
	colorYellow    = lipgloss.Color("#FFFF00")
	colorRed       = lipgloss.Color("#FF0000")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite).
			Align(lipgloss.Center).
			MarginTop(1).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorLightGray).
			Align(lipgloss.Center).
			MarginBottom(2)

	promptStyle = lipgloss.NewStyle().
			Foreground(colorLightGray)

	statusConnectedStyle = lipgloss.NewStyle().
				Foreground(colorGreen).
				Bold(true)

	statusClosedStyle = lipgloss.NewStyle().
				Foreground(colorRed).
				Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(colorWhite).
			Bold(true)

	eventTimeStyle = lipgloss.NewStyle().
			Foreground(colorDarkGray)

	eventKindStyle = lipgloss.NewStyle().
			Foreground(colorYellow).
			Width(10)

	eventTextStyle = lipgloss.NewStyle().
			Foreground(colorLightGray)

	infoStyle = lipgloss.NewStyle().
			Foreground(colorGray).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorLightGray).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDarkGray).
			Italic(true).
			MarginTop(1)
)

const logo = `
  ██████╗  █████╗  ██████╗ ███████╗██╗      ██████╗  ██████╗ ███╗   ███╗
  ██╔══██╗██╔══██╗██╔════╝ ██╔════╝██║     ██╔═══██╗██╔═══██╗████╗ ████║
  ██████╔╝███████║██║  ███╗█████╗  ██║     ██║   ██║██║   ██║██╔████╔██║
  ██╔═══╝ ██╔══██║██║   ██║██╔══╝  ██║     ██║   ██║██║   ██║██║╚██╔╝██║
  ██║     ██║  ██║╚██████╔╝███████╗███████╗╚██████╔╝╚██████╔╝██║ ╚═╝ ██║
  ╚═╝     ╚═╝  ╚═╝ ╚═════╝ ╚══════╝╚══════╝ ╚═════╝  ╚═════╝ ╚═╝     ╚═╝
`
