package main

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("#20B9B4")
	colorMuted  = lipgloss.Color("#2C4A54")
	colorError  = lipgloss.Color("#E74C3C")

	systemStyle = lipgloss.NewStyle().Foreground(colorAccent)
	userStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(colorMuted)
	errorStyle  = lipgloss.NewStyle().Foreground(colorError)
	introStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

const introText = `Find a restaurant by chatting with the system.

  - Give any of three preferences: food type, price range and area.
  - Price ranges are cheap, moderate and expensive.
  - Areas are north, east, south, west and centre.
  - When asked for other requirements, mention 'children', 'assigned seats',
    'touristic' or 'romantic'.
  - Once a restaurant is suggested, ask for its phone number, address or postcode.
  - Say 'more' for an alternative, or 'start over' to restart.
  - Type 'quit' to leave at any time.`
