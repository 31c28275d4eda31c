package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/agentfleet-io/agentfleet/internal/models"
)

// Adaptive colors for light and dark terminals.
var (
	colorWhite  = lipgloss.AdaptiveColor{Light: "0", Dark: "15"}
	colorDim    = lipgloss.AdaptiveColor{Light: "242", Dark: "240"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "28", Dark: "40"}
	colorRed    = lipgloss.AdaptiveColor{Light: "160", Dark: "196"}
	colorYellow = lipgloss.AdaptiveColor{Light: "136", Dark: "220"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "30", Dark: "45"}
)

// Semantic styles for CLI output.
var (
	styleBrand   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleLabel   = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	styleHint    = lipgloss.NewStyle().Foreground(colorDim)
)

// Workspace status badge styles.
var (
	badgeIdle    = lipgloss.NewStyle().Foreground(colorDim)
	badgeRunning = lipgloss.NewStyle().Foreground(colorCyan)
	badgeReplied = lipgloss.NewStyle().Foreground(colorGreen)
	badgeError   = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	badgeYellow  = lipgloss.NewStyle().Foreground(colorYellow)
)

// statusBadge renders a workspace status with its color.
func statusBadge(s models.Status) string {
	switch s {
	case models.StatusRunning:
		return badgeRunning.Render(string(s))
	case models.StatusReplied:
		return badgeReplied.Render(string(s))
	case models.StatusError:
		return badgeError.Render(string(s))
	default:
		return badgeIdle.Render(string(s))
	}
}
