package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Output palette, light/dark aware. Level colors live in ui.ConfigureLoggerStyles.
var (
	colorHeader  = lipgloss.AdaptiveColor{Light: "28", Dark: "34"}
	colorCommand = lipgloss.AdaptiveColor{Light: "30", Dark: "86"}
	colorPath    = lipgloss.AdaptiveColor{Light: "19", Dark: "63"}
	colorPattern = lipgloss.AdaptiveColor{Light: "64", Dark: "192"}
	colorDim     = lipgloss.AdaptiveColor{Light: "238", Dark: "247"}
	colorWarn    = lipgloss.AdaptiveColor{Light: "125", Dark: "204"}
)

var (
	StyleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorHeader)
	StyleCommand = lipgloss.NewStyle().Bold(true).Foreground(colorCommand)
	StylePath    = lipgloss.NewStyle().Foreground(colorPath)
	StylePattern = lipgloss.NewStyle().Foreground(colorPattern)
	StyleDim     = lipgloss.NewStyle().Foreground(colorDim)

	styleWarn = lipgloss.NewStyle().Italic(true).Foreground(colorWarn)
)
