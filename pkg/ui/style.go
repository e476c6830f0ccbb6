package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header       lipgloss.Style
	Status       lipgloss.Style
	StudentLabel lipgloss.Style
	TutorLabel   lipgloss.Style
	Message      lipgloss.Style
	Thinking     lipgloss.Style
	Error        lipgloss.Style
	Input        lipgloss.Style
}

func DefaultStyles() *Style {
	return &Style{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#2563EB")).
			Padding(0, 1),
		Status:       lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1),
		StudentLabel: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB")),
		TutorLabel:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#16A34A")),
		Message:      lipgloss.NewStyle().PaddingLeft(2),
		Thinking:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241")).PaddingLeft(2),
		Error:        lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).PaddingLeft(1),
		Input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")),
	}
}
